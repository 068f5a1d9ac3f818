package endpoints_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/almanac/internal/http/api/admin/control/endpoints"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
	"github.com/Nixie-Tech-LLC/almanac/internal/plugins"
)

type memRules struct {
	rules  map[int]model.RecurrenceRule
	nextID int
}

func (m *memRules) CreateRecurrenceRule(_ context.Context, description, rule string) (*model.RecurrenceRule, error) {
	m.nextID++
	r := model.RecurrenceRule{ID: m.nextID, Description: description, RecurrenceRule: rule, CreatedAt: time.Now()}
	m.rules[r.ID] = r
	return &r, nil
}

func (m *memRules) ListRecurrenceRules(context.Context) ([]model.RecurrenceRule, error) {
	out := make([]model.RecurrenceRule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Description < out[j].Description })
	return out, nil
}

func (m *memRules) DeleteRecurrenceRule(_ context.Context, id int) error {
	if _, ok := m.rules[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func TestRecurrenceRuleLibrary(t *testing.T) {
	store := &memRules{rules: map[int]model.RecurrenceRule{}}
	r := newRouter(t, endpoints.RecurrenceModule(store))

	w := do(t, r, editor, http.MethodPost, "/api/admin/recurrence-rules", packets.CreateRecurrenceRuleRequest{
		Description:    "Weekdays",
		RecurrenceRule: "FREQ=WEEKLY;BYDAY=MO,TU,WE,TH,FR",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[packets.RecurrenceRuleResponse](t, w)

	w = do(t, r, editor, http.MethodPost, "/api/admin/recurrence-rules", packets.CreateRecurrenceRuleRequest{
		Description:    "Broken",
		RecurrenceRule: "FREQ=FORTNIGHTLY",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, editor, http.MethodGet, "/api/admin/recurrence-rules", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]packets.RecurrenceRuleResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Weekdays", list[0].Description)

	w = do(t, r, editor, http.MethodDelete, "/api/admin/recurrence-rules/"+strconv.Itoa(created.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, r, editor, http.MethodDelete, "/api/admin/recurrence-rules/"+strconv.Itoa(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPreviewEndpoint(t *testing.T) {
	r := newRouter(t, endpoints.RecurrenceModule(&memRules{rules: map[int]model.RecurrenceRule{}}))

	w := do(t, r, editor, http.MethodPost, "/api/admin/recurrence-rules/preview", packets.PreviewRequest{
		RecurrenceRule: "FREQ=DAILY",
		Limit:          3,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		Occurrences []time.Time `json:"occurrences"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	require.Len(t, ok.Occurrences, 3)
	assert.InDelta(t, 24, ok.Occurrences[1].Sub(ok.Occurrences[0]).Hours(), 1)

	w = do(t, r, editor, http.MethodPost, "/api/admin/recurrence-rules/preview", packets.PreviewRequest{
		RecurrenceRule: "FREQ=SOMETIMES",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var failed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &failed))
	assert.Contains(t, failed, "error")
	assert.NotContains(t, failed, "occurrences")
}

func TestPluginEndpoints(t *testing.T) {
	r := newRouter(t, endpoints.PluginModule(plugins.NewDefaultRegistry()))

	w := do(t, r, editor, http.MethodGet, "/api/admin/plugins/choices?kind=content", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []plugins.Choice{
		{Value: plugins.TypeMap, Label: "Map"},
		{Value: plugins.TypeSlideShow, Label: "Reusable slide show"},
		{Value: plugins.TypeTwitterEmbed, Label: "Twitter embed"},
	}, decode[[]plugins.Choice](t, w))

	w = do(t, r, editor, http.MethodGet, "/api/admin/plugins?kind=event", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ds []struct {
		TypeID int    `json:"type_id"`
		Slug   string `json:"slug"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ds))
	require.Len(t, ds, 1)
	assert.Equal(t, "simple-event", ds[0].Slug)

	w = do(t, r, editor, http.MethodGet, "/api/admin/plugins/choices", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
