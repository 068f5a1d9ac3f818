package plugins

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type pluginsFile struct {
	EventTypes []eventTypeEntry `yaml:"event_types"`
}

type eventTypeEntry struct {
	ID          int     `yaml:"id"`
	Slug        string  `yaml:"slug"`
	VerboseName string  `yaml:"verbose_name"`
	Fields      []Field `yaml:"fields"`
}

// LoadFile registers the event types listed in a YAML file:
//
//	event_types:
//	  - id: 11
//	    slug: exhibition
//	    verbose_name: Exhibition
//	    fields:
//	      - {name: venue, kind: string, required: true}
func (r *Registry) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plugins file: %w", err)
	}
	return r.LoadYAML(raw)
}

func (r *Registry) LoadYAML(raw []byte) error {
	var file pluginsFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse plugins file: %w", err)
	}
	for _, t := range file.EventTypes {
		for _, f := range t.Fields {
			if f.Name == "" {
				return fmt.Errorf("event type %q: field without a name", t.Slug)
			}
		}
		err := r.Register(Descriptor{
			TypeID:      t.ID,
			Kind:        KindEvent,
			Slug:        t.Slug,
			VerboseName: t.VerboseName,
			Schema:      Schema{Fields: t.Fields},
		})
		if err != nil {
			return err
		}
		log.Info().Int("type_id", t.ID).Str("slug", t.Slug).Msg("registered event type")
	}
	return nil
}
