package utils

import "github.com/microcosm-cc/bluemonday"

var bodyPolicy = newBodyPolicy()

func newBodyPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowRelativeURLs(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.RequireNoReferrerOnLinks(true)
	return p
}

// SanitizeBody strips scripts, event handlers and unknown tags from
// editor-supplied HTML.
func SanitizeBody(raw string) string {
	return bodyPolicy.Sanitize(raw)
}
