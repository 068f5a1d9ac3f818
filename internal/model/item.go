package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// PublishableItem is one side of a draft/published pair. Drafts point at their
// published copy through PublisherLinkedID and the copy points back.
type PublishableItem struct {
	ID                   int        `db:"id"                     json:"id"`
	TypeID               int        `db:"type_id"                json:"type_id"`
	Title                string     `db:"title"                  json:"title"`
	Slug                 string     `db:"slug"                   json:"slug"`
	Body                 string     `db:"body"                   json:"body"`
	Data                 Fields     `db:"data"                   json:"data"`
	IsDraft              bool       `db:"is_draft"               json:"is_draft"`
	PublisherLinkedID    *int       `db:"publisher_linked_id"    json:"publisher_linked_id"`
	PublisherModifiedAt  time.Time  `db:"publisher_modified_at"  json:"publisher_modified_at"`
	PublisherPublishedAt *time.Time `db:"publisher_published_at" json:"publisher_published_at"`
	CreatedAt            time.Time  `db:"created_at"             json:"created_at"`

	// only populated by list queries that join the linked row
	LinkedModifiedAt *time.Time `db:"linked_modified_at" json:"-"`
}

func (i *PublishableItem) HasBeenPublished() bool {
	return !i.IsDraft || i.PublisherLinkedID != nil
}

func (i *PublishableItem) Validate() error {
	return asValidationError(validation.ValidateStruct(i,
		validation.Field(&i.Title, validation.Required.Error("title is required"), validation.Length(1, 255)),
		validation.Field(&i.Slug,
			validation.Required.Error("slug is required"),
			validation.Match(slugPattern).Error("slug may only contain lowercase letters, digits and dashes"),
		),
		validation.Field(&i.TypeID, validation.Required.Error("type_id is required")),
	))
}

// Fields holds plugin-specific values, stored as JSONB.
type Fields map[string]any

func (f Fields) Value() (driver.Value, error) {
	if f == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(f)
}

func (f *Fields) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*f = Fields{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("model.Fields: cannot scan %T", src)
	}
	out := Fields{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*f = out
	return nil
}

// String returns the value under key if it is a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Clone returns a shallow copy; nested values are shared.
func (f Fields) Clone() Fields {
	if f == nil {
		return nil
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// PublishingStatus names the admin list filters over drafts.
type PublishingStatus string

const (
	StatusUnpublished PublishingStatus = "unpublished"
	StatusPublished   PublishingStatus = "published"
	StatusOutOfDate   PublishingStatus = "out_of_date"
	StatusUpToDate    PublishingStatus = "up_to_date"
)
