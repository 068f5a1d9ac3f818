package endpoints

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/events"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/api"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/api/admin/control/utils"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
)

type RecurrenceRuleStore interface {
	CreateRecurrenceRule(ctx context.Context, description, rule string) (*model.RecurrenceRule, error)
	ListRecurrenceRules(ctx context.Context) ([]model.RecurrenceRule, error)
	DeleteRecurrenceRule(ctx context.Context, id int) error
}

type RecurrenceController struct {
	store RecurrenceRuleStore
	now   func() time.Time
}

// RecurrenceModule mounts the saved-rule library and the preview endpoint.
func RecurrenceModule(store RecurrenceRuleStore) api.Module {
	ctl := &RecurrenceController{store: store, now: time.Now}
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/recurrence-rules", ctl.listRules)
		c.POST("/recurrence-rules", ctl.createRule)
		c.POST("/recurrence-rules/preview", ctl.previewRule)
		c.DELETE("/recurrence-rules/:id", ctl.deleteRule)
	})
}

// GET /api/admin/recurrence-rules
func (c *RecurrenceController) listRules(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	rules, err := c.store.ListRecurrenceRules(ctx.Request.Context())
	if err != nil {
		return nil, api.FromError(err)
	}
	out := make([]packets.RecurrenceRuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, packets.NewRecurrenceRuleResponse(r))
	}
	return out, nil
}

// POST /api/admin/recurrence-rules
func (c *RecurrenceController) createRule(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.CreateRecurrenceRuleRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if _, err := events.ParseRule(request.RecurrenceRule, c.now(), time.UTC); err != nil {
		return nil, api.FromError(err)
	}

	rule, err := c.store.CreateRecurrenceRule(ctx.Request.Context(), request.Description, request.RecurrenceRule)
	if err != nil {
		return nil, api.FromError(err)
	}
	log.Info().Int("rule_id", rule.ID).Int("user_id", user.ID).Msg("recurrence rule saved")
	return packets.NewRecurrenceRuleResponse(*rule), nil
}

// DELETE /api/admin/recurrence-rules/:id
func (c *RecurrenceController) deleteRule(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := utils.ParamID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := c.store.DeleteRecurrenceRule(ctx.Request.Context(), id); err != nil {
		return nil, api.FromError(err)
	}
	return gin.H{"deleted": id}, nil
}

// POST /api/admin/recurrence-rules/preview
//
// A rule that does not parse is not a request error: the editor shows the
// message inline, so the response is 200 with {"error": ...}.
func (c *RecurrenceController) previewRule(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.PreviewRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	return events.Preview(request.RecurrenceRule, request.Limit, c.now()), nil
}
