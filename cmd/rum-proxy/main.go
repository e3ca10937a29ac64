package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	rumproxy "github.com/aemlive/rum-proxy"
	"github.com/aemlive/rum-proxy/metrics"
	"github.com/aemlive/rum-proxy/pkg/domainkey"
	"github.com/aemlive/rum-proxy/pkg/render"
	"github.com/aemlive/rum-proxy/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	// CLI flags
	configFilenameFlag string
	portFlag           int
	storeFlag          string
	dbFilenameFlag     string
	redisFlag          string
	verbosityTraceFlag bool
	logFilenameFlag    string

	// this is set by goreleaser
	version string
)

func init() {
	flag.StringVar(&configFilenameFlag, "config", "", "YAML config file")
	flag.IntVar(&portFlag, "port", 8080, "Port to listen on")
	flag.StringVar(&storeFlag, "store", "sqlite", "Image store: memory, sqlite or redis")
	flag.StringVar(&dbFilenameFlag, "db", "rum-proxy.db", "SQLite DB file name (use 'memory' for in-memory db)")
	flag.StringVar(&redisFlag, "redis", "", "Redis address (overrides config and env)")
	flag.BoolVar(&verbosityTraceFlag, "vv", false, "Verbosity: trace logging")
	flag.StringVar(&logFilenameFlag, "log-file", "", "Log file to use (in addition to stdout)")

	if version == "" {
		version = "DEV"
	}
}

func main() {
	flag.Parse()

	// set log level
	logLevel := zerolog.DebugLevel
	if verbosityTraceFlag {
		logLevel = zerolog.TraceLevel
	}

	// set up log output to stdout
	// also output to logfile if specified
	logOutputs := make([]io.Writer, 0)
	logOutputs = append(logOutputs, zerolog.ConsoleWriter{Out: os.Stdout})
	if logFilenameFlag != "" {
		if logFileOutput, err := os.OpenFile(logFilenameFlag, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644); err != nil {
			log.Fatal().Err(err).Msg("Cannot open log file")
		} else {
			logOutputs = append(logOutputs, logFileOutput)
		}
	}
	multiWriter := zerolog.MultiLevelWriter(logOutputs...)
	log.Logger = log.Level(logLevel).Output(multiWriter).
		With().Str("version", version).Logger()

	fileConfig, err := rumproxy.GetConfig(configFilenameFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not read config")
	}
	envConfig, err := rumproxy.GetEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Could not read environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	objects, closeStore, err := openStore(ctx, fileConfig, envConfig)
	if err != nil {
		log.Fatal().Err(err).Str("store", storeFlag).Msg("Could not open store")
	}
	defer closeStore()

	proxyConfig := rumproxy.Config{
		Store: objects,
		Renderer: render.NewClient(render.Config{
			Endpoint: fileConfig.Render.Endpoint,
			Key:      envConfig.PSIKey,
			Strategy: fileConfig.Render.Strategy,
			Category: fileConfig.Render.Category,
			Timeout:  fileConfig.Render.Timeout,
			Logger:   &log.Logger,
		}),
		DomainKeys:       domainkey.NewValidator(fileConfig.DomainKeys.Endpoint, fileConfig.DomainKeys.Timeout),
		Rules:            fileConfig.Rules,
		PublicURL:        fileConfig.PublicURL,
		PlaceholderURL:   fileConfig.PlaceholderURL,
		GenerationBudget: fileConfig.GenerationBudget,
		Metrics:          metrics.NewCollector("rumproxy", nil),
		MetricsPath:      fileConfig.MetricsPath,
		Logger:           &log.Logger,
	}
	if fileConfig.Origin != "" {
		originUrl, err := url.Parse(fileConfig.Origin)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not parse origin url")
		}
		proxyConfig.OriginURL = *originUrl
	}

	proxy := rumproxy.CreateProxy(proxyConfig)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", portFlag),
		Handler:           proxy,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Could not shut down server")
		}
		// generations in flight get to finish their store writes
		if err := proxy.Wait(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Abandoning running generations")
		}
	}()

	log.Info().Msgf("Serving port %v with %s store", portFlag, storeFlag)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	<-shutdownDone
}

func openStore(ctx context.Context, fileConfig rumproxy.FileConfig, envConfig rumproxy.EnvConfig) (store.ObjectStore, func(), error) {
	switch storeFlag {
	case "memory":
		return store.NewMemStore(), func() {}, nil
	case "sqlite":
		// set up sqlite memory provider
		dbFilename := dbFilenameFlag
		if dbFilename == "memory" {
			dbFilename = "file::memory:?cache=shared"
		}
		s, err := store.NewSQLiteStore(dbFilename)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "redis":
		redisConfig := fileConfig.Redis
		if envConfig.RedisAddr != "" {
			redisConfig.Addr = envConfig.RedisAddr
		}
		if envConfig.RedisPassword != "" {
			redisConfig.Password = envConfig.RedisPassword
		}
		if redisFlag != "" {
			redisConfig.Addr = redisFlag
		}
		s, err := store.NewRedisStore(ctx, redisConfig)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", storeFlag)
}
