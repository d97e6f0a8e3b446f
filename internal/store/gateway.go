package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/navmaint/drawboard/internal/document"
)

// Gateway loads and saves one scene under a fixed key.
type Gateway struct {
	store Store
	key   string
}

func NewGateway(s Store, key string) *Gateway {
	if key == "" {
		key = DefaultKey
	}
	return &Gateway{store: s, key: key}
}

// Key returns the storage key.
func (g *Gateway) Key() string { return g.key }

// Load returns the saved scene. Missing, unreadable or corrupt state is
// logged and replaced by an empty scene; Load never fails.
func (g *Gateway) Load(ctx context.Context) *document.Scene {
	data, err := g.store.Load(ctx, g.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Error("load scene", "key", g.key, "error", err)
		}
		return document.NewScene()
	}

	scene, err := document.Unmarshal(data)
	if err != nil {
		slog.Warn("discard corrupt scene", "key", g.key, "error", err)
		return document.NewScene()
	}
	return scene
}

// Save persists scene.
func (g *Gateway) Save(ctx context.Context, scene *document.Scene) error {
	data, err := document.Marshal(scene)
	if err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}
	if err := g.store.Save(ctx, g.key, data); err != nil {
		return fmt.Errorf("save scene %s: %w", g.key, err)
	}
	return nil
}
