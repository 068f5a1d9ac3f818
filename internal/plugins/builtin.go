package plugins

import (
	"html/template"
	"io"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

const (
	TypeMap          = 1
	TypeTwitterEmbed = 2
	TypeSlideShow    = 3
	TypeSimpleEvent  = 10
)

var (
	mapTemplate = template.Must(template.New("map").Parse(
		`<iframe class="map-embed" title="{{.PlaceName}}" src="https://maps.google.com/maps?q={{.PlaceName}}&amp;ll={{.Loc}}&amp;output=embed" frameborder="0" allowfullscreen></iframe>`))

	twitterTemplate = template.Must(template.New("twitter").Parse(
		`<blockquote class="twitter-tweet"><a href="{{.}}">{{.}}</a></blockquote>`))

	slideShowTemplate = template.Must(template.New("slideshow").Parse(
		`<div class="slide-show">{{if .ShowTitle}}<h2>{{.Title}}</h2>{{end}}<ul>{{range .Slides}}<li>{{.}}</li>{{end}}</ul></div>`))

	fieldListTemplate = template.Must(template.New("fields").Parse(
		`<dl class="plugin-{{.Name}}">{{range $k, $v := .Data}}<dt>{{$k}}</dt><dd>{{$v}}</dd>{{end}}</dl>`))
)

// Builtins are the types every registry starts with.
func Builtins() []Descriptor {
	return []Descriptor{
		{
			TypeID:      TypeMap,
			Kind:        KindContent,
			Slug:        "map",
			VerboseName: "Map",
			Schema: Schema{
				Fields: []Field{{Name: "share_url", Kind: FieldURL, Required: true}},
				Check:  cleanMap,
			},
			Renderer: RendererFunc(renderMap),
		},
		{
			TypeID:      TypeTwitterEmbed,
			Kind:        KindContent,
			Slug:        "twitter-embed",
			VerboseName: "Twitter embed",
			Schema: Schema{
				Fields: []Field{{Name: "url", Kind: FieldURL, Required: true}},
				Check: func(data model.Fields) (model.Fields, error) {
					return data, ValidateTwitterURL(data.String("url"))
				},
			},
			Renderer: RendererFunc(func(w io.Writer, data model.Fields) error {
				return twitterTemplate.Execute(w, data.String("url"))
			}),
		},
		{
			TypeID:      TypeSlideShow,
			Kind:        KindContent,
			Slug:        "slide-show",
			VerboseName: "Reusable slide show",
			Schema: Schema{
				Fields: []Field{
					{Name: "title", Kind: FieldString, Required: true},
					{Name: "show_title", Kind: FieldBool},
					{Name: "slides", Kind: FieldList},
				},
			},
			Renderer: RendererFunc(renderSlideShow),
		},
		{
			TypeID:      TypeSimpleEvent,
			Kind:        KindEvent,
			Slug:        "simple-event",
			VerboseName: "Simple event",
		},
	}
}

// NewDefaultRegistry returns a registry holding the built-in types.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(Builtins()...)
	return r
}

func cleanMap(data model.Fields) (model.Fields, error) {
	loc, err := ParseShareURL(data.String("share_url"))
	if err != nil {
		return nil, err
	}
	data["loc"] = loc.Loc
	data["place_name"] = loc.PlaceName
	return data, nil
}

func renderMap(w io.Writer, data model.Fields) error {
	loc := DefaultMapLocation()
	if s := data.String("loc"); s != "" {
		loc.Loc = s
	}
	if s := data.String("place_name"); s != "" {
		loc.PlaceName = s
	}
	return mapTemplate.Execute(w, loc)
}

func renderSlideShow(w io.Writer, data model.Fields) error {
	show, _ := data["show_title"].(bool)
	slides, _ := data["slides"].([]any)
	return slideShowTemplate.Execute(w, struct {
		Title     string
		ShowTitle bool
		Slides    []any
	}{data.String("title"), show, slides})
}

func fieldListRenderer(name string) Renderer {
	return RendererFunc(func(w io.Writer, data model.Fields) error {
		return fieldListTemplate.Execute(w, struct {
			Name string
			Data model.Fields
		}{name, data})
	})
}
