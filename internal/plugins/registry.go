// Package plugins is the registry of content and event types. Each type is
// looked up by its numeric identifier and describes its fields, how it renders
// and what editors call it.
package plugins

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

var ErrUnknownType = errors.New("unknown plugin type")

type Kind string

const (
	KindContent Kind = "content"
	KindEvent   Kind = "event"
)

type Renderer interface {
	Render(w io.Writer, data model.Fields) error
}

type RendererFunc func(w io.Writer, data model.Fields) error

func (f RendererFunc) Render(w io.Writer, data model.Fields) error { return f(w, data) }

type Descriptor struct {
	TypeID      int      `json:"type_id"`
	Kind        Kind     `json:"kind"`
	Slug        string   `json:"slug"`
	VerboseName string   `json:"verbose_name"`
	Schema      Schema   `json:"schema"`
	Renderer    Renderer `json:"-"`
}

// Choice is one entry of a "pick a type" list.
type Choice struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

type Registry struct {
	mu   sync.RWMutex
	byID map[int]Descriptor
}

func NewRegistry() *Registry {
	return &Registry{byID: map[int]Descriptor{}}
}

func (r *Registry) Register(d Descriptor) error {
	if d.TypeID <= 0 {
		return fmt.Errorf("plugin %q: type id must be positive", d.Slug)
	}
	if d.Slug == "" || d.VerboseName == "" {
		return fmt.Errorf("plugin %d: slug and verbose name are required", d.TypeID)
	}
	if d.Renderer == nil {
		d.Renderer = fieldListRenderer(d.VerboseName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byID[d.TypeID]; ok {
		return fmt.Errorf("plugin type %d already registered as %q", d.TypeID, existing.Slug)
	}
	r.byID[d.TypeID] = d
	return nil
}

func (r *Registry) MustRegister(ds ...Descriptor) {
	for _, d := range ds {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) Lookup(typeID int) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.byID[typeID]
	return d, ok
}

// LookupKind only finds types of the given kind.
func (r *Registry) LookupKind(typeID int, kind Kind) (Descriptor, bool) {
	d, ok := r.Lookup(typeID)
	if !ok || d.Kind != kind {
		return Descriptor{}, false
	}
	return d, true
}

// Descriptors returns every registered type of kind ordered by id. An empty
// kind returns all of them.
func (r *Registry) Descriptors(kind Kind) []Descriptor {
	r.mu.RLock()
	out := make([]Descriptor, 0, len(r.byID))
	for _, d := range r.byID {
		if kind == "" || d.Kind == kind {
			out = append(out, d)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].TypeID < out[j].TypeID })
	return out
}

// ChildTypeChoices lists the types of kind sorted by label, case-insensitively,
// with the id breaking ties.
func (r *Registry) ChildTypeChoices(kind Kind) []Choice {
	ds := r.Descriptors(kind)
	out := make([]Choice, 0, len(ds))
	for _, d := range ds {
		out = append(out, Choice{Value: d.TypeID, Label: d.VerboseName})
	}
	sort.SliceStable(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i].Label), strings.ToLower(out[j].Label)
		if li != lj {
			return li < lj
		}
		return out[i].Value < out[j].Value
	})
	return out
}

// Clean validates data against the type's schema and returns the normalized
// fields to store.
func (r *Registry) Clean(typeID int, kind Kind, data model.Fields) (model.Fields, error) {
	d, ok := r.LookupKind(typeID, kind)
	if !ok {
		return nil, model.NewValidationError("type_id", fmt.Sprintf("unknown %s type %d", kind, typeID))
	}
	return d.Schema.Clean(data)
}

func (r *Registry) Render(w io.Writer, typeID int, data model.Fields) error {
	d, ok := r.Lookup(typeID)
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownType, typeID)
	}
	return d.Renderer.Render(w, data)
}
