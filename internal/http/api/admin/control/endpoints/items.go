package endpoints

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/almanac/internal/http/api"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/api/admin/control/packets"
	"github.com/Nixie-Tech-LLC/almanac/internal/http/api/admin/control/utils"
	"github.com/Nixie-Tech-LLC/almanac/internal/model"
	"github.com/Nixie-Tech-LLC/almanac/internal/plugins"
	"github.com/Nixie-Tech-LLC/almanac/internal/publishing"
)

type ItemStore interface {
	CreateDraft(ctx context.Context, item *model.PublishableItem) (*model.PublishableItem, error)
	UpdateDraft(ctx context.Context, item *model.PublishableItem) (*model.PublishableItem, error)
	ListItems(ctx context.Context, status model.PublishingStatus) ([]model.PublishableItem, error)
}

type ItemController struct {
	store    ItemStore
	manager  *publishing.Manager
	registry *plugins.Registry
}

func newItemController(store ItemStore, manager *publishing.Manager, registry *plugins.Registry) *ItemController {
	return &ItemController{store: store, manager: manager, registry: registry}
}

// ItemModule mounts all authenticated /items endpoints
func ItemModule(store ItemStore, manager *publishing.Manager, registry *plugins.Registry) api.Module {
	ctl := newItemController(store, manager, registry)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/items", ctl.listItems)
		c.POST("/items", ctl.createItem)
		c.POST("/items/publish", ctl.publishItems)
		c.POST("/items/unpublish", ctl.unpublishItems)
		c.GET("/items/:id", ctl.getItem)
		c.PUT("/items/:id", ctl.updateItem)
		c.GET("/items/:id/render", ctl.renderItem)
		c.POST("/items/:id/publish", ctl.publishItem)
		c.POST("/items/:id/unpublish", ctl.unpublishItem)
		c.POST("/items/:id/revert", ctl.revertItem)
	})
}

// GET /api/admin/items?status=
func (c *ItemController) listItems(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	status, err := publishing.ParseStatus(ctx.Query("status"))
	if err != nil {
		return nil, api.FromError(err)
	}

	items, err := c.store.ListItems(ctx.Request.Context(), status)
	if err != nil {
		return nil, api.FromError(err)
	}

	out := make([]packets.ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, packets.NewItemResponse(it))
	}
	return out, nil
}

// GET /api/admin/items/:id
func (c *ItemController) getItem(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := utils.ParamID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	item, err := c.manager.Load(ctx.Request.Context(), id)
	if err != nil {
		return nil, api.FromError(err)
	}
	return packets.NewItemResponse(*item), nil
}

// POST /api/admin/items
func (c *ItemController) createItem(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var request packets.CreateItemRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	item := &model.PublishableItem{
		TypeID: request.TypeID,
		Title:  request.Title,
		Slug:   request.Slug,
		Body:   request.Body,
		Data:   request.Data,
	}
	if apiErr := c.clean(item); apiErr != nil {
		return nil, apiErr
	}

	created, err := c.store.CreateDraft(ctx.Request.Context(), item)
	if err != nil {
		return nil, api.FromError(err)
	}
	log.Info().Int("item_id", created.ID).Int("user_id", user.ID).Msg("draft created")
	return packets.NewItemResponse(*created), nil
}

// PUT /api/admin/items/:id
func (c *ItemController) updateItem(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := utils.ParamID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	var request packets.UpdateItemRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}

	item, err := c.manager.Load(ctx.Request.Context(), id)
	if err != nil {
		return nil, api.FromError(err)
	}
	if !item.IsDraft {
		return nil, &api.APIError{Code: http.StatusConflict, Message: "published copies are read-only"}
	}

	if request.TypeID != nil {
		item.TypeID = *request.TypeID
	}
	if request.Title != nil {
		item.Title = *request.Title
	}
	if request.Slug != nil {
		item.Slug = *request.Slug
	}
	if request.Body != nil {
		item.Body = *request.Body
	}
	if request.Data != nil {
		item.Data = *request.Data
	}
	if apiErr := c.clean(item); apiErr != nil {
		return nil, apiErr
	}

	if _, err := c.store.UpdateDraft(ctx.Request.Context(), item); err != nil {
		return nil, api.FromError(err)
	}
	updated, err := c.manager.Load(ctx.Request.Context(), id)
	if err != nil {
		return nil, api.FromError(err)
	}
	return packets.NewItemResponse(*updated), nil
}

// GET /api/admin/items/:id/render
func (c *ItemController) renderItem(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := utils.ParamID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	item, err := c.manager.Load(ctx.Request.Context(), id)
	if err != nil {
		return nil, api.FromError(err)
	}

	var buf bytes.Buffer
	if err := c.registry.Render(&buf, item.TypeID, item.Data); err != nil {
		if errors.Is(err, plugins.ErrUnknownType) {
			return nil, api.BadRequest(err.Error())
		}
		return nil, api.FromError(err)
	}
	return packets.RenderResponse{HTML: buf.String()}, nil
}

// POST /api/admin/items/:id/publish
func (c *ItemController) publishItem(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := utils.ParamID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if _, err := c.manager.Publish(ctx.Request.Context(), user, id); err != nil {
		return nil, api.FromError(err)
	}
	return c.reload(ctx, id)
}

// POST /api/admin/items/:id/unpublish
func (c *ItemController) unpublishItem(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := utils.ParamID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if err := c.manager.Unpublish(ctx.Request.Context(), user, id); err != nil {
		return nil, api.FromError(err)
	}
	return c.reload(ctx, id)
}

// POST /api/admin/items/:id/revert
func (c *ItemController) revertItem(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	id, apiErr := utils.ParamID(ctx)
	if apiErr != nil {
		return nil, apiErr
	}
	if _, err := c.manager.Revert(ctx.Request.Context(), user, id); err != nil {
		return nil, api.FromError(err)
	}
	return c.reload(ctx, id)
}

// POST /api/admin/items/publish
func (c *ItemController) publishItems(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	return c.bulk(ctx, user, "publish", func(ctx context.Context, id int) error {
		_, err := c.manager.Publish(ctx, user, id)
		return err
	})
}

// POST /api/admin/items/unpublish
func (c *ItemController) unpublishItems(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	return c.bulk(ctx, user, "unpublish", func(ctx context.Context, id int) error {
		return c.manager.Unpublish(ctx, user, id)
	})
}

// bulk applies action to each requested draft in its own transaction. One
// draft failing does not stop the others.
func (c *ItemController) bulk(ctx *gin.Context, user *model.User, name string, action func(context.Context, int) error) (any, *api.APIError) {
	var request packets.BulkItemsRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		return nil, api.BadRequest(err.Error())
	}
	if !publishing.CanPublish(user) {
		return nil, api.FromError(model.ErrPermissionDenied)
	}

	resp := packets.BulkItemsResponse{Results: make([]packets.BulkItemResult, 0, len(request.IDs))}
	for _, id := range request.IDs {
		result := packets.BulkItemResult{ID: id}
		err := action(ctx.Request.Context(), id)
		if err == nil {
			var item *model.PublishableItem
			if item, err = c.manager.Load(ctx.Request.Context(), id); err == nil {
				r := packets.NewItemResponse(*item)
				result.Item = &r
			}
		}
		if err != nil {
			result.Error = api.FromError(err).Message
			resp.Failed++
		} else {
			resp.Succeeded++
		}
		resp.Results = append(resp.Results, result)
	}

	log.Info().Str("action", name).Int("succeeded", resp.Succeeded).Int("failed", resp.Failed).Int("user_id", user.ID).Msg("bulk item action")
	return resp, nil
}

func (c *ItemController) reload(ctx *gin.Context, id int) (any, *api.APIError) {
	item, err := c.manager.Load(ctx.Request.Context(), id)
	if err != nil {
		return nil, api.FromError(err)
	}
	return packets.NewItemResponse(*item), nil
}

// clean sanitizes the body and validates the item and its plugin data.
func (c *ItemController) clean(item *model.PublishableItem) *api.APIError {
	item.Body = utils.SanitizeBody(item.Body)
	if err := item.Validate(); err != nil {
		return api.FromError(err)
	}
	data, err := c.registry.Clean(item.TypeID, plugins.KindContent, item.Data)
	if err != nil {
		return api.FromError(err)
	}
	item.Data = data
	return nil
}
