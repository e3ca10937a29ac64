package preview

import (
	"context"
	"net/http"
	"net/url"

	"github.com/aemlive/rum-proxy/metrics"

	"github.com/rs/zerolog"
)

const (
	DefaultPlaceholderURL = "https://www.aem.live/default-social.png?width=1200&format=pjpg&optimize=medium"
	// ready images never change
	ImmutableCacheControl = "public, max-age=31536000"
)

// Response is what the serving path answers with.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Write sends the response to the client.
func (r Response) Write(w http.ResponseWriter) error {
	for name, values := range r.Header {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	w.WriteHeader(r.StatusCode)
	if len(r.Body) == 0 {
		return nil
	}
	_, err := w.Write(r.Body)
	return err
}

type ServerConfig struct {
	Cache     *Cache
	Generator *Generator
	Runner    *Runner
	// Where clients are sent while no image is ready.
	PlaceholderURL string
	Metrics        *metrics.Collector
	Logger         zerolog.Logger
}

// Server is the read side: serve the image if ready, else redirect and generate.
type Server struct {
	cache       *Cache
	generator   *Generator
	runner      *Runner
	placeholder string
	metrics     *metrics.Collector
	log         zerolog.Logger
}

func NewServer(config ServerConfig) *Server {
	s := &Server{
		cache:       config.Cache,
		generator:   config.Generator,
		runner:      config.Runner,
		placeholder: config.PlaceholderURL,
		metrics:     config.Metrics,
		log:         config.Logger,
	}
	if s.placeholder == "" {
		s.placeholder = DefaultPlaceholderURL
	}
	return s
}

// Serve answers a preview request for key. target is the URL of the request,
// used to build the page to render. Store errors are returned.
func (s *Server) Serve(ctx context.Context, key string, target *url.URL) (Response, error) {
	ready, err := s.cache.IsReady(ctx, key)
	if err != nil {
		return Response{}, err
	}

	if ready {
		data, contentType, err := s.cache.Read(ctx, key)
		if err != nil {
			return Response{}, err
		}
		s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("Serving stored preview")
		s.metrics.RecordServe(metrics.ServeHit)
		return Response{
			StatusCode: http.StatusOK,
			Header: http.Header{
				"Cache-Control": {ImmutableCacheControl},
				"Content-Type":  {contentType},
			},
			Body: data,
		}, nil
	}

	// copy, the request URL must not be shared with the background task
	t := *target
	s.runner.Go(ctx, func(ctx context.Context) error {
		return s.generator.Generate(ctx, key, &t)
	})
	s.log.Debug().Str("key", key).Msg("Preview not ready, redirecting to placeholder")
	s.metrics.RecordServe(metrics.ServePlaceholder)
	return Response{
		StatusCode: http.StatusFound,
		Header:     http.Header{"Location": {s.placeholder}},
	}, nil
}
