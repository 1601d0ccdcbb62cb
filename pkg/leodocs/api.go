package leodocs

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"
)

// Engine renders templates loaded from a Store. It is safe for concurrent use.
// Use New() to create an engine.
type Engine struct {
	store   Store
	config  *Config
	logger  *Logger
	router  *Router
	cache   *TemplateCache
	metrics Metrics
}

// Option represents a configuration option for the engine.
type Option func(*Engine)

// WithConfig returns an option that sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(e *Engine) {
		e.config = NewConfigWithDefaults(config)
	}
}

// WithLogger returns an option that sets the engine logger.
func WithLogger(logger *Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRouter returns an option that resolves template variants.
func WithRouter(router *Router) Option {
	return func(e *Engine) {
		e.router = router
	}
}

// WithCache returns an option that shares a template cache, for example
// with a TemplateWatcher.
func WithCache(cache *TemplateCache) Option {
	return func(e *Engine) {
		e.cache = cache
	}
}

// WithMetrics returns an option that records renders and cache lookups.
func WithMetrics(metrics Metrics) Option {
	return func(e *Engine) {
		if metrics != nil {
			e.metrics = metrics
		}
	}
}

// New creates an engine reading templates from store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		config:  DefaultConfig(),
		logger:  NopLogger(),
		metrics: nopMetrics{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewTemplateCache(CacheConfig{MaxSize: e.config.CacheMaxSize, TTL: e.config.CacheTTL})
	}
	return e
}

// FilenameSpec holds the metadata a download name is derived from.
type FilenameSpec struct {
	Prefix string `json:"prefix" yaml:"prefix"`
	Month  string `json:"month" yaml:"month"`
	Year   int    `json:"year" yaml:"year"`
}

// Request describes one render. Template names the template directly;
// when it is empty, Variant is resolved through the engine's router.
type Request struct {
	Template string       `json:"template,omitempty" yaml:"template"`
	Variant  string       `json:"variant,omitempty" yaml:"variant"`
	Data     TemplateData `json:"data" yaml:"data"`
	Filename FilenameSpec `json:"filename" yaml:"filename"`
}

// Result is a rendered document. The engine keeps no reference to Data.
type Result struct {
	Data     []byte
	Filename string
	Template string
}

// Config returns the engine's configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Cache returns the engine's template cache.
func (e *Engine) Cache() *TemplateCache {
	return e.cache
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *Logger {
	return e.logger
}

// TemplateFor returns the template identifier a request renders.
func (e *Engine) TemplateFor(req Request) (string, error) {
	if req.Template != "" {
		return req.Template, nil
	}
	if e.router == nil {
		return "", fmt.Errorf("no template requested: %w", ErrTemplateNotFound)
	}
	return e.router.Route(req.Variant)
}

func cacheKey(id string) string {
	if id == "" {
		return id
	}
	return path.Clean(id)
}

// Prepare loads and compiles a template from the store. Compiled templates
// are cached; concurrent first requests for the same template share one load.
func (e *Engine) Prepare(ctx context.Context, id string) (*PreparedTemplate, error) {
	if e.store == nil {
		return nil, errors.New("engine has no template store")
	}
	key := cacheKey(id)
	pt, hit, err := e.cache.GetOrLoad(key, func() (*PreparedTemplate, error) {
		data, err := e.store.Open(ctx, key)
		if err != nil {
			return nil, err
		}
		return Prepare(key, data, e.config, e.logger)
	})
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveCache(hit)
	if e.logger.IsDebugMode() {
		e.logger.WithFields(Fields{"template": id, "cache_hit": hit}).Debug("Template ready")
	}
	return pt, nil
}

// PrepareBytes compiles template bytes without the store or the cache.
func (e *Engine) PrepareBytes(name string, data []byte) (*PreparedTemplate, error) {
	return Prepare(name, data, e.config, e.logger)
}

// Render resolves the request's template, binds its data and returns the
// rendered package. On error no document is returned.
func (e *Engine) Render(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	id, err := e.TemplateFor(req)
	if err != nil {
		e.metrics.ObserveRender(req.Variant, time.Since(start), err)
		return nil, err
	}

	out, err := e.render(ctx, id, req.Data)
	duration := time.Since(start)
	e.metrics.ObserveRender(id, duration, err)
	if err != nil {
		e.logger.WithFields(Fields{"template": id, "class": ErrorClass(err)}).Warn("Render failed: %v", err)
		return nil, err
	}

	result := &Result{
		Data:     out,
		Filename: SuggestFilename(req.Filename.Prefix, req.Filename.Month, req.Filename.Year),
		Template: id,
	}
	e.logger.WithFields(Fields{
		"template": id,
		"filename": result.Filename,
		"bytes":    len(out),
		"duration": duration.String(),
	}).Info("Rendered document")
	return result, nil
}

func (e *Engine) render(ctx context.Context, id string, data TemplateData) ([]byte, error) {
	pt, err := e.Prepare(ctx, id)
	if err != nil {
		return nil, err
	}
	return pt.Render(data)
}

// Inspect reports the tags and problems of a stored template.
func (e *Engine) Inspect(ctx context.Context, id string) (*Report, error) {
	if e.store == nil {
		return nil, errors.New("engine has no template store")
	}
	data, err := e.store.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	return Inspect(data, e.config)
}

// ClearCache removes all templates from the cache.
func (e *Engine) ClearCache() {
	e.cache.Clear()
}

// Close releases the cache and flushes the logger. Flush errors from
// terminals are ignored.
func (e *Engine) Close() error {
	_ = e.logger.Sync()
	return e.cache.Close()
}
