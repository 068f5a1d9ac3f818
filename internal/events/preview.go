package events

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

// PreviewResult holds either the first occurrences of a rule or the reason it
// could not be parsed. It marshals to {"occurrences": [...]} or {"error": "..."}.
type PreviewResult struct {
	Occurrences []time.Time
	Error       string
}

func (p PreviewResult) MarshalJSON() ([]byte, error) {
	if p.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{p.Error})
	}
	occ := p.Occurrences
	if occ == nil {
		occ = []time.Time{}
	}
	return json.Marshal(struct {
		Occurrences []time.Time `json:"occurrences"`
	}{occ})
}

// Preview expands text from now and returns its first limit occurrences.
// limit defaults to DefaultPreviewLimit and is capped at MaxPreviewLimit.
func Preview(text string, limit int, now time.Time) PreviewResult {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	limit = min(limit, MaxPreviewLimit)

	rule, err := ParseRule(text, now, now.Location())
	if err != nil {
		return PreviewResult{Error: previewMessage(err)}
	}
	seq, err := Expand(rule, nil, limit)
	if err != nil {
		return PreviewResult{Error: previewMessage(err)}
	}

	out := make([]time.Time, 0, limit)
	for t := range seq {
		out = append(out, t)
	}
	return PreviewResult{Occurrences: out}
}

func previewMessage(err error) string {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	return err.Error()
}
