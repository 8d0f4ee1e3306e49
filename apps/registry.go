package apps

import (
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

// Definitions lists every app this binary can serve.
func Definitions(opts ...Option) []Definition {
	return []Definition{House(), Car(), Loan(), Fashion(opts...), Jellyfish(opts...)}
}

// Option adjusts how the image apps treat uploads.
type Option func(*settings)

type settings struct {
	maxImagePixels int
}

// MaxImagePixels rejects uploads larger than n pixels before decoding them.
// Zero keeps features.DefaultMaxPixels.
func MaxImagePixels(n int) Option {
	return func(s *settings) {
		s.maxImagePixels = n
	}
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Registry holds the loaded apps. It is built once at startup and only read
// afterwards.
type Registry struct {
	apps  map[string]*App
	order []string
}

// Load loads the enabled definitions from root/<name>; an empty enabled list
// loads all of defs. The first artifact failure aborts with an *ml.LoadError.
func Load(root string, defs []Definition, enabled []string, logger *zap.Logger) (*Registry, error) {
	byName := make(map[string]Definition, len(defs))
	for _, def := range defs {
		byName[def.Name] = def
	}
	if len(enabled) == 0 {
		for _, def := range defs {
			enabled = append(enabled, def.Name)
		}
	}

	r := &Registry{apps: make(map[string]*App, len(enabled))}
	for _, name := range enabled {
		def, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("unknown app %q", name)
		}
		if _, dup := r.apps[name]; dup {
			return nil, fmt.Errorf("app %q enabled twice", name)
		}
		dir := filepath.Join(root, name)
		start := time.Now()
		predictor, err := def.Load(dir)
		if err != nil {
			return nil, err
		}
		r.apps[name] = &App{
			Name:        def.Name,
			Title:       def.Title,
			Description: def.Description,
			Fields:      def.Fields,
			LoadedAt:    time.Now(),
			predictor:   predictor,
		}
		r.order = append(r.order, name)
		logger.Info("app loaded", zap.String("app", name), zap.String("dir", dir), zap.Duration("took", time.Since(start)))
	}
	return r, nil
}

// Get returns the loaded app called name.
func (r *Registry) Get(name string) (*App, bool) {
	app, ok := r.apps[name]
	return app, ok
}

// List returns the apps in load order.
func (r *Registry) List() []*App {
	out := make([]*App, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.apps[name])
	}
	return out
}

// Names returns the app names in load order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
