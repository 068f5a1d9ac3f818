package publishing

import (
	"fmt"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

// IsDirty reports whether a draft has edits its published copy lacks. It
// relies on item.LinkedModifiedAt, which list queries fill in.
func IsDirty(item model.PublishableItem) bool {
	if !item.IsDraft {
		return false
	}
	if item.PublisherLinkedID == nil || item.LinkedModifiedAt == nil {
		return true
	}
	return item.PublisherModifiedAt.After(*item.LinkedModifiedAt)
}

// StatusOf places a draft in exactly one of unpublished, out_of_date or
// up_to_date.
func StatusOf(item model.PublishableItem) model.PublishingStatus {
	switch {
	case item.PublisherLinkedID == nil:
		return model.StatusUnpublished
	case IsDirty(item):
		return model.StatusOutOfDate
	default:
		return model.StatusUpToDate
	}
}

func ParseStatus(s string) (model.PublishingStatus, error) {
	switch st := model.PublishingStatus(s); st {
	case "", model.StatusUnpublished, model.StatusPublished, model.StatusOutOfDate, model.StatusUpToDate:
		return st, nil
	default:
		return "", model.NewValidationError("status", fmt.Sprintf("unknown status %q", s))
	}
}

// Partitions splits drafts by status. Published is OutOfDate plus UpToDate.
type Partitions struct {
	Unpublished []model.PublishableItem
	Published   []model.PublishableItem
	OutOfDate   []model.PublishableItem
	UpToDate    []model.PublishableItem
}

func Partition(items []model.PublishableItem) Partitions {
	var p Partitions
	for _, it := range items {
		switch StatusOf(it) {
		case model.StatusUnpublished:
			p.Unpublished = append(p.Unpublished, it)
		case model.StatusOutOfDate:
			p.OutOfDate = append(p.OutOfDate, it)
			p.Published = append(p.Published, it)
		case model.StatusUpToDate:
			p.UpToDate = append(p.UpToDate, it)
			p.Published = append(p.Published, it)
		}
	}
	return p
}

// Filter keeps the items in status. The empty status keeps everything.
func Filter(items []model.PublishableItem, status model.PublishingStatus) []model.PublishableItem {
	if status == "" {
		return items
	}
	out := make([]model.PublishableItem, 0, len(items))
	for _, it := range items {
		st := StatusOf(it)
		if st == status || (status == model.StatusPublished && st != model.StatusUnpublished) {
			out = append(out, it)
		}
	}
	return out
}

// ActionSet lists the transitions that make sense for an item right now.
type ActionSet struct {
	Publish   bool `json:"publish"`
	Unpublish bool `json:"unpublish"`
	Revert    bool `json:"revert"`
}

func Actions(item model.PublishableItem) ActionSet {
	dirty := IsDirty(item)
	linked := item.PublisherLinkedID != nil
	return ActionSet{
		Publish:   dirty,
		Unpublish: item.IsDraft && linked,
		Revert:    dirty && linked,
	}
}

// CanPublish decides whether user may publish, unpublish or revert.
func CanPublish(user *model.User) bool {
	switch {
	case user == nil:
		return false
	case user.IsSuperuser:
		return true
	case !user.IsActive:
		return false
	default:
		return user.CanPublish
	}
}
