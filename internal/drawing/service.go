package drawing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/navmaint/drawboard/internal/asset"
	"github.com/navmaint/drawboard/internal/document"
	"github.com/navmaint/drawboard/internal/engine"
	"github.com/navmaint/drawboard/internal/export"
	"github.com/navmaint/drawboard/internal/render"
	"github.com/navmaint/drawboard/internal/store"
)

var (
	ErrInvalidID      = store.ErrInvalidID
	ErrUnknownCommand = errors.New("unknown command")
	ErrBadCommand     = errors.New("malformed command")
	ErrBusy           = errors.New("drawing is controlled by another client")
)

const maxIDLength = 128

// Config holds what every drawing session shares.
type Config struct {
	Store      store.Store
	StorageKey string
	Width      float64
	Height     float64
	// Now overrides the shape id clock.
	Now func() time.Time
}

type session struct {
	mu      sync.Mutex
	engine  *engine.Engine
	gateway *store.Gateway
	// owner is the live client holding the drawing. Empty means REST
	// callers may mutate it.
	owner string
}

func (sess *session) allow(owner string) error {
	if sess.owner != "" && sess.owner != owner {
		return ErrBusy
	}
	return nil
}

// Service keeps one engine per drawing id and persists the scene after
// every mutation.
type Service struct {
	cfg      Config
	pipeline *export.Pipeline

	mu       sync.Mutex
	sessions map[string]*session
}

func NewService(cfg Config) *Service {
	if cfg.Width <= 0 {
		cfg.Width = engine.DefaultWidth
	}
	if cfg.Height <= 0 {
		cfg.Height = engine.DefaultHeight
	}
	return &Service{
		cfg:      cfg,
		pipeline: export.NewPipeline(cfg.Width, cfg.Height),
		sessions: make(map[string]*session),
	}
}

// Pipeline returns the export pipeline sized to the drawings' logical
// canvas.
func (s *Service) Pipeline() *export.Pipeline { return s.pipeline }

func validateID(id string) error {
	if id == "" || len(id) > maxIDLength {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	for _, r := range id {
		if !(r == '_' || r == '-' || r == '.' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return fmt.Errorf("%w: %q", ErrInvalidID, id)
		}
	}
	return nil
}

// open returns the session of a drawing, restoring its scene from the
// store the first time it is asked for.
func (s *Service) open(ctx context.Context, id string) (*session, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		return sess, nil
	}

	gw := store.NewGateway(s.cfg.Store, store.KeyFor(s.cfg.StorageKey, id))
	scene := gw.Load(ctx)
	sess := &session{
		engine: engine.New(engine.Options{
			Width:  s.cfg.Width,
			Height: s.cfg.Height,
			Scene:  scene,
			Now:    s.cfg.Now,
		}),
		gateway: gw,
	}
	// Remote clients send surface-relative points until they mount their own offset.
	sess.engine.Mount(engine.Surface{})
	s.sessions[id] = sess
	slog.Info("drawing opened", "drawing", id, "shapes", len(scene.Shapes))
	return sess, nil
}

// Open loads a drawing and returns its state.
func (s *Service) Open(ctx context.Context, id string) (engine.State, error) {
	sess, err := s.open(ctx, id)
	if err != nil {
		return engine.State{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.engine.State(), nil
}

// Claim makes owner the only caller allowed to change the drawing until
// it calls Release. Claiming a drawing someone else holds fails with
// ErrBusy.
func (s *Service) Claim(ctx context.Context, id, owner string) (engine.State, error) {
	sess, err := s.open(ctx, id)
	if err != nil {
		return engine.State{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.allow(owner); err != nil {
		return engine.State{}, err
	}
	sess.owner = owner
	return sess.engine.State(), nil
}

// Release gives up owner's hold on the drawing and drops any gesture it
// left in progress.
func (s *Service) Release(id, owner string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.owner != owner {
		return
	}
	sess.owner = ""
	sess.engine.PointerUp()
}

// Close drops the in-memory session of a drawing. The saved scene is kept.
func (s *Service) Close(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// with runs fn on the drawing's engine on behalf of owner and saves the
// scene if fn changed it.
func (s *Service) with(ctx context.Context, id, owner string, fn func(e *engine.Engine) error) (engine.State, error) {
	sess, err := s.open(ctx, id)
	if err != nil {
		return engine.State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.allow(owner); err != nil {
		return sess.engine.State(), err
	}
	if err := fn(sess.engine); err != nil {
		return sess.engine.State(), err
	}
	if sess.engine.TakeChanged() {
		if err := sess.gateway.Save(ctx, sess.engine.Scene()); err != nil {
			slog.Error("save scene", "drawing", id, "error", err)
		}
	}
	return sess.engine.State(), nil
}

// Apply runs one interaction command against a drawing nobody has claimed.
func (s *Service) Apply(ctx context.Context, id string, cmd Command) (engine.State, error) {
	return s.ApplyAs(ctx, id, "", cmd)
}

// ApplyAs runs one interaction command for owner.
func (s *Service) ApplyAs(ctx context.Context, id, owner string, cmd Command) (engine.State, error) {
	return s.with(ctx, id, owner, func(e *engine.Engine) error {
		return cmd.apply(e)
	})
}

// Scene returns a snapshot of the drawing's scene.
func (s *Service) Scene(ctx context.Context, id string) (*document.Scene, error) {
	sess, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.engine.Scene(), nil
}

// State returns the drawing's interaction and viewport state.
func (s *Service) State(ctx context.Context, id string) (engine.State, error) {
	return s.Open(ctx, id)
}

// Render returns the live SVG markup of a drawing, selection included.
func (s *Service) Render(ctx context.Context, id string) ([]byte, error) {
	sess, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.engine.Render()
}

// Display returns the live display list of a drawing.
func (s *Service) Display(ctx context.Context, id string) ([]render.Command, error) {
	sess, err := s.open(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.engine.Display(), nil
}

// Export renders a snapshot of the drawing in format f. The session lock
// is only held while taking the snapshot.
func (s *Service) Export(ctx context.Context, id string, f export.Format) (*export.Artifact, error) {
	scene, err := s.Scene(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.pipeline.Export(ctx, f, scene)
}

// ReplaceScene swaps the drawing's scene for an imported one and saves it.
func (s *Service) ReplaceScene(ctx context.Context, id string, scene *document.Scene) (engine.State, error) {
	if err := scene.Validate(); err != nil {
		return engine.State{}, err
	}
	sess, err := s.open(ctx, id)
	if err != nil {
		return engine.State{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.allow(""); err != nil {
		return sess.engine.State(), err
	}
	sess.engine.LoadScene(scene)
	if err := sess.gateway.Save(ctx, sess.engine.Scene()); err != nil {
		return sess.engine.State(), err
	}
	return sess.engine.State(), nil
}

// SetBackground places an image on the drawing. The data URL must decode.
func (s *Service) SetBackground(ctx context.Context, id, dataURL string) (engine.State, error) {
	if _, _, err := asset.DecodeImage(dataURL); err != nil {
		return engine.State{}, err
	}
	return s.with(ctx, id, "", func(e *engine.Engine) error {
		e.SetBackground(dataURL)
		return nil
	})
}

// ClearBackground removes the drawing's background image.
func (s *Service) ClearBackground(ctx context.Context, id string) (engine.State, error) {
	return s.with(ctx, id, "", func(e *engine.Engine) error {
		e.ClearBackground()
		return nil
	})
}
