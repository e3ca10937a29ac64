package rumproxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/aemlive/rum-proxy/metrics"
	cachekey "github.com/aemlive/rum-proxy/pkg/cache-key"
	"github.com/aemlive/rum-proxy/pkg/domainkey"
	responsetransformer "github.com/aemlive/rum-proxy/pkg/response-transformer"
	"github.com/aemlive/rum-proxy/preview"
	"github.com/aemlive/rum-proxy/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const (
	ImagePath    = "/tools/rum/_ogimage"
	CorsPath     = "/tools/rum/_cors"
	ExplorerPath = preview.DefaultExplorerPath

	DefaultPublicURL   = "https://www.aem.live"
	DefaultMetricsPath = "/.rum-proxy/metrics"

	keyPrefix = "images"
)

// ErrInvalidTarget is returned when a URL to proxy cannot be parsed.
var ErrInvalidTarget = errors.New("invalid url")

type Config struct {
	// Storage for preview images.
	Store store.ObjectStore
	// Screenshot service.
	Renderer preview.Renderer
	// Validator for domain keys of the CORS relay.
	DomainKeys *domainkey.Validator
	// URL of the dashboard origin. Every page not handled by the proxy
	// is fetched from here, and only pages of this host are rendered.
	OriginURL url.URL
	// Public URL of the proxy, used in Open-Graph image links.
	PublicURL string
	// Header rules for pages passed through from the origin.
	Rules responsetransformer.Rules
	// Image sent while no preview is ready.
	PlaceholderURL string
	// Upper bound for a background generation.
	GenerationBudget time.Duration
	// Metrics collector. Metrics are not exposed if nil.
	Metrics     *metrics.Collector
	MetricsPath string
	// Client for fetching third-party pages and CORS backends.
	HTTPClient *http.Client
	// Logger to use. A console logger is used if nil.
	Logger *zerolog.Logger
}

type Proxy struct {
	keyer      cachekey.CacheKeyer
	previews   *preview.Server
	runner     *preview.Runner
	renderer   preview.Renderer
	domainKeys *domainkey.Validator
	rules      responsetransformer.Rules
	imageURL   string
	client     *http.Client
	explorer   httputil.ReverseProxy
	router     chi.Router
	log        zerolog.Logger
}

// CreateProxy wires the preview cache, the relays and the router.
func CreateProxy(config Config) *Proxy {
	// use console logger if not specified in config
	var logger zerolog.Logger
	if config.Logger == nil {
		logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		logger = *config.Logger
	}
	if config.OriginURL.Host == "" {
		config.OriginURL = url.URL{Scheme: "https", Host: preview.DefaultOriginHost}
	}
	if config.PublicURL == "" {
		config.PublicURL = DefaultPublicURL
	}
	if config.MetricsPath == "" {
		config.MetricsPath = DefaultMetricsPath
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if config.DomainKeys == nil {
		config.DomainKeys = domainkey.NewValidator("", 0)
	}
	logger = logger.With().
		Str("origin", config.OriginURL.String()).
		Logger()

	cache := preview.NewCache(config.Store, logger)
	generator := preview.NewGenerator(preview.GeneratorConfig{
		Cache:        cache,
		Renderer:     config.Renderer,
		OriginScheme: config.OriginURL.Scheme,
		OriginHost:   config.OriginURL.Host,
		ExplorerPath: ExplorerPath,
		Metrics:      config.Metrics,
		Logger:       logger,
	})
	runner := preview.NewRunner(config.GenerationBudget, logger)

	p := &Proxy{
		keyer: cachekey.NewCacheKeyer(keyPrefix),
		previews: preview.NewServer(preview.ServerConfig{
			Cache:          cache,
			Generator:      generator,
			Runner:         runner,
			PlaceholderURL: config.PlaceholderURL,
			Metrics:        config.Metrics,
			Logger:         logger,
		}),
		runner:     runner,
		renderer:   config.Renderer,
		domainKeys: config.DomainKeys,
		rules:      config.Rules,
		imageURL:   strings.TrimSuffix(config.PublicURL, "/") + ImagePath,
		client:     config.HTTPClient,
		log:        logger,
	}

	p.explorer = httputil.ReverseProxy{
		Director:       createDirector(config.OriginURL.Scheme, config.OriginURL.Host),
		ModifyResponse: p.modifyResponse,
		ErrorHandler:   p.originError,
	}

	r := chi.NewRouter()
	r.Use(hlog.NewHandler(logger))
	r.Use(hlog.RequestIDHandler("reqId", "Request-Id"))
	r.Use(hlog.AccessHandler(logRequest))
	r.Use(middleware.Recoverer)
	if config.Metrics != nil {
		r.Handle(config.MetricsPath, config.Metrics.Handler())
	}
	r.HandleFunc(ImagePath, p.handleImage)
	r.HandleFunc(ImagePath+"*", p.handleImage)
	r.HandleFunc(CorsPath, p.handleCors)
	r.HandleFunc(CorsPath+"*", p.handleCors)
	r.Handle("/*", &p.explorer)
	p.router = r

	return p
}

// ServeHTTP implements the http.Handler interface.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.router.ServeHTTP(w, r)
}

// Wait blocks until running preview generations are done or ctx is done.
func (p *Proxy) Wait(ctx context.Context) error {
	return p.runner.Wait(ctx)
}

func createDirector(scheme, host string) func(req *http.Request) {
	return func(req *http.Request) {
		req.URL.Scheme = scheme
		req.URL.Host = host
		req.Host = host
		if req.URL.Path == ExplorerPath {
			// the body is rewritten, let the transport handle compression
			req.Header.Del("Accept-Encoding")
		}
	}
}

func (p *Proxy) originError(w http.ResponseWriter, r *http.Request, err error) {
	hlog.FromRequest(r).Error().Err(err).Msg("Error connecting to origin")
	http.Error(w, "Could not connect to origin", http.StatusBadGateway)
}

// sendError responds with an empty body and the reason in the x-error header.
func sendError(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("x-error", reason)
	w.WriteHeader(status)
}

func logRequest(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Debug().
		Str("method", r.Method).
		Str("url", r.URL.String()).
		Str("sourceIp", getRequestSourceIp(r)).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Sending response to client")
}

func getRequestSourceIp(r *http.Request) string {
	// RemoteAddr is in the format:
	// 1.2.3.4:10000 for ipv4
	// [1:2:3]:10000 for ipv6
	ipAndPort := r.RemoteAddr
	portSepIdx := strings.LastIndex(ipAndPort, ":")
	// if not found, return
	if portSepIdx < 0 {
		return ipAndPort
	}
	return ipAndPort[:portSepIdx]
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		// upstream proxy headers are not passed on
		if k != "X-Forwarded-For" && k != "X-Forwarded-Proto" && k != "X-Forwarded-Host" {
			for _, v := range vv {
				dst.Add(k, v)
			}
		}
	}
}
