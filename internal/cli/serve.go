package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"

	"github.com/google/subcommands"

	divshttp "divs/internal/http"
	applog "divs/internal/log"
)

// serveCmd runs the web server.
type serveCmd struct {
	stderr io.Writer
	port   string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "serve the dividend pivot pages over HTTP" }
func (*serveCmd) Usage() string {
	return `divs serve [-port <port>]

  Serves the pivot report and the events listing. Configuration comes from
  the environment (and a .env file when present).
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.port, "port", "", "Port to listen on. Overrides PORT.")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(c.stderr, err)
		return subcommands.ExitUsageError
	}
	if c.port != "" {
		cfg.Port = c.port
	}
	logger := SetupLogger(cfg, c.stderr)

	reader, err := OpenReader(ctx, cfg, logger, "")
	if err != nil {
		logger.Error("Failed to open dividend record", applog.FieldError, err.Error())
		return subcommands.ExitFailure
	}

	scale := int32(cfg.PerUnitScale)
	srv, err := divshttp.NewServer(divshttp.Options{
		Addr:           ":" + cfg.Port,
		Reader:         reader,
		Logger:         logger,
		Currency:       cfg.ReportCurrency,
		Scale:          &scale,
		CacheSize:      cfg.CacheSize,
		CacheTTL:       cfg.CacheTTL,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		logger.Error("Failed to create server", applog.FieldError, err.Error())
		return subcommands.ExitFailure
	}

	shutdownCtx, done := GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown failed", applog.FieldError, err.Error(), applog.FieldOperation, applog.OpShutdown)
		}
	})

	logger.Info("Starting HTTP server", "addr", srv.Addr, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server failed", applog.FieldError, err.Error())
		return subcommands.ExitFailure
	}
	WaitForShutdown(shutdownCtx, done)
	return subcommands.ExitSuccess
}
