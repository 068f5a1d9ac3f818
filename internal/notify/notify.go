// Package notify tells downstream consumers (site renderers, caches) that
// published content changed.
package notify

import (
	"context"
	"time"
)

type Action string

const (
	ActionPublish   Action = "publish"
	ActionUnpublish Action = "unpublish"
	ActionRevert    Action = "revert"
)

// Transition describes one completed publishing transition.
type Transition struct {
	Action      Action    `json:"action"`
	ItemID      int       `json:"item_id"`
	PublishedID *int      `json:"published_id,omitempty"`
	TypeID      int       `json:"type_id"`
	Slug        string    `json:"slug"`
	UserID      int       `json:"user_id"`
	At          time.Time `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, t Transition) error
}

// Nop drops every notification.
type Nop struct{}

func (Nop) Notify(context.Context, Transition) error { return nil }
