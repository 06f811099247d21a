// Package server exposes the simplification engine over HTTP for the
// editing UI: starting runs, polling progress and managing fragments.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/decompose"
	"github.com/klartext/klartext/internal/quota"
	"github.com/klartext/klartext/internal/run"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	DB           *gorm.DB
	Orchestrator *run.Orchestrator
	Decomposer   *decompose.Decomposer
	Tracker      *quota.Tracker
	Config       *config.Config
	Port         int
	Out          io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled, then
// shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("server: db is required")
	}
	if opts.Orchestrator == nil {
		return fmt.Errorf("server: orchestrator is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	registerRoutes(router, &handlers{
		db:         opts.DB,
		orch:       opts.Orchestrator,
		decomposer: opts.Decomposer,
		tracker:    opts.Tracker,
		cfg:        opts.Config,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Klartext API running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}
