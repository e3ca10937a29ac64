package preview

import (
	"context"
	"net/url"
	"time"

	"github.com/aemlive/rum-proxy/metrics"
	"github.com/aemlive/rum-proxy/pkg/render"

	"github.com/rs/zerolog"
)

const (
	DefaultOriginHost   = "main--helix-website--adobe.aem.live"
	DefaultExplorerPath = "/tools/rum/explorer.html"
)

// Renderer takes a screenshot of a page.
type Renderer interface {
	Render(ctx context.Context, target *url.URL) (render.Screenshot, error)
}

type GeneratorConfig struct {
	Cache    *Cache
	Renderer Renderer
	// Scheme and host every rendered page is served from.
	OriginScheme string
	OriginHost   string
	// Path of the page that is rendered, whatever path was requested.
	ExplorerPath string
	Metrics      *metrics.Collector
	Logger       zerolog.Logger
}

// Generator runs single generation attempts.
type Generator struct {
	cache        *Cache
	renderer     Renderer
	originScheme string
	originHost   string
	explorerPath string
	metrics      *metrics.Collector
	log          zerolog.Logger
}

func NewGenerator(config GeneratorConfig) *Generator {
	g := &Generator{
		cache:        config.Cache,
		renderer:     config.Renderer,
		originScheme: config.OriginScheme,
		originHost:   config.OriginHost,
		explorerPath: config.ExplorerPath,
		metrics:      config.Metrics,
		log:          config.Logger,
	}
	if g.originScheme == "" {
		g.originScheme = "https"
	}
	if g.originHost == "" {
		g.originHost = DefaultOriginHost
	}
	if g.explorerPath == "" {
		g.explorerPath = DefaultExplorerPath
	}
	return g
}

// TargetURL rewrites u to the explorer page on the canonical host, keeping the query.
// Only the dashboard's own page is ever rendered.
func (g *Generator) TargetURL(u *url.URL) *url.URL {
	return &url.URL{
		Scheme:   g.originScheme,
		Host:     g.originHost,
		Path:     g.explorerPath,
		RawQuery: u.RawQuery,
	}
}

// Generate renders and stores the preview for key, unless an entry already exists.
// Render errors are stored as a failed entry and not returned; only store errors are.
// Nothing is retried.
func (g *Generator) Generate(ctx context.Context, key string, target *url.URL) error {
	log := g.log.With().Str("key", key).Logger()

	exists, err := g.cache.Exists(ctx, key)
	if err != nil {
		return err
	}
	if exists {
		log.Trace().Msg("Entry exists, not generating")
		g.metrics.RecordGeneration(metrics.GenerationSkipped)
		return nil
	}

	// not atomic with the check above
	if err := g.cache.claim(ctx, key); err != nil {
		return err
	}

	target = g.TargetURL(target)
	start := time.Now()
	shot, err := g.renderer.Render(ctx, target)
	g.metrics.ObserveRender(time.Since(start))

	// the terminal write must land even if the budget ran out during rendering
	writeCtx := context.WithoutCancel(ctx)
	if err != nil {
		log.Error().Err(err).Str("target", target.String()).Msg("Could not generate preview")
		g.metrics.RecordGeneration(metrics.GenerationFailed)
		return g.cache.markFailed(writeCtx, key, err)
	}
	log.Info().Str("contentType", shot.ContentType).Int("bytes", len(shot.Data)).Msg("Generated preview")
	g.metrics.RecordGeneration(metrics.GenerationLoaded)
	return g.cache.markLoaded(writeCtx, key, shot)
}
