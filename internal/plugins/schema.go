package plugins

import (
	"fmt"
	"net/url"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

type FieldKind string

const (
	FieldString FieldKind = "string"
	FieldText   FieldKind = "text"
	FieldURL    FieldKind = "url"
	FieldBool   FieldKind = "bool"
	FieldNumber FieldKind = "number"
	FieldList   FieldKind = "list"
)

type Field struct {
	Name     string    `json:"name"     yaml:"name"`
	Kind     FieldKind `json:"kind"     yaml:"kind"`
	Required bool      `json:"required" yaml:"required"`
}

// Schema describes the fields a type stores. Check runs after the per-field
// checks and may rewrite the data, e.g. to derive fields from a URL.
type Schema struct {
	Fields []Field                                       `json:"fields"`
	Check  func(data model.Fields) (model.Fields, error) `json:"-"`
}

func (s Schema) Clean(data model.Fields) (model.Fields, error) {
	out := model.Fields{}
	for _, f := range s.Fields {
		v, present := data[f.Name]
		if !present || v == nil || v == "" {
			if f.Required {
				return nil, model.NewValidationError(f.Name, "this field is required")
			}
			continue
		}
		if err := checkKind(f, v); err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	if s.Check != nil {
		return s.Check(out)
	}
	return out, nil
}

func checkKind(f Field, v any) error {
	bad := func() error {
		return model.NewValidationError(f.Name, fmt.Sprintf("expected a %s value", f.Kind))
	}
	switch f.Kind {
	case FieldString, FieldText, "":
		if _, ok := v.(string); !ok {
			return bad()
		}
	case FieldURL:
		s, ok := v.(string)
		if !ok {
			return bad()
		}
		u, err := url.Parse(s)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return model.NewValidationError(f.Name, "enter a valid URL")
		}
	case FieldBool:
		if _, ok := v.(bool); !ok {
			return bad()
		}
	case FieldNumber:
		switch v.(type) {
		case float64, int:
		default:
			return bad()
		}
	case FieldList:
		if _, ok := v.([]any); !ok {
			return bad()
		}
	default:
		return model.NewValidationError(f.Name, fmt.Sprintf("unsupported field kind %q", f.Kind))
	}
	return nil
}
