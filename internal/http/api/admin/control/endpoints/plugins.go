package endpoints

import (
	"github.com/gin-gonic/gin"

	"github.com/Nixie-Tech-LLC/almanac/internal/http/api"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
	"github.com/Nixie-Tech-LLC/almanac/internal/plugins"
)

// PluginModule exposes the registered content and event types to editors.
func PluginModule(registry *plugins.Registry) api.Module {
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/plugins", func(ctx *gin.Context, user *model.User) (any, *api.APIError) {
			kind, apiErr := parseKind(ctx.Query("kind"), true)
			if apiErr != nil {
				return nil, apiErr
			}
			return registry.Descriptors(kind), nil
		})
		c.GET("/plugins/choices", func(ctx *gin.Context, user *model.User) (any, *api.APIError) {
			kind, apiErr := parseKind(ctx.Query("kind"), false)
			if apiErr != nil {
				return nil, apiErr
			}
			return registry.ChildTypeChoices(kind), nil
		})
	})
}

func parseKind(s string, allowEmpty bool) (plugins.Kind, *api.APIError) {
	switch k := plugins.Kind(s); k {
	case plugins.KindContent, plugins.KindEvent:
		return k, nil
	case "":
		if allowEmpty {
			return "", nil
		}
	}
	return "", api.BadRequest("kind must be content or event")
}
