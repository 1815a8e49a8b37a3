package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/amuxd/amuxd/internal/common/config"
	"github.com/amuxd/amuxd/internal/common/logger"
	"github.com/amuxd/amuxd/internal/debughttp"
	"github.com/amuxd/amuxd/internal/events"
	"github.com/amuxd/amuxd/internal/orchestrator/dispatch"
	"github.com/amuxd/amuxd/internal/session"
	"github.com/amuxd/amuxd/internal/session/registry"
)

func main() {
	agentFlag := flag.String("agent", "", "agent kind to spawn on startup for smoke testing (claude_code, gemini_cli)")
	workdirFlag := flag.String("workdir", ".", "workdir for the smoke-test session")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	log, err := logger.NewLogger(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetDefault(log)

	log.Info("Starting amuxd core...")

	// 3. Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Initialize session registry
	reg := registry.New()

	// 5. Initialize in-process event bus and its websocket mirror
	bus := events.NewBus()
	hub := events.NewHub(bus, log)

	hubStop := make(chan struct{})
	go hub.Run(hubStop)

	// 6. Initialize the command dispatcher. This binary has no
	// interactive UI of its own, so input state is always zero-valued —
	// the save-on-modal-interrupt behavior only matters to a TUI caller.
	disp := dispatch.New(reg, &cfg.Agents, nil, log)

	// 7. Setup HTTP server with Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(debughttp.RequestLogger(log), debughttp.Recovery(log), debughttp.ErrorHandler(log))

	v1 := router.Group("/api/v1")
	debughttp.SetupRoutes(v1, reg, hub, log)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// 8. Create HTTP server
	addr := cfg.DebugHTTP.Addr
	if addr == "" {
		addr = ":8090"
	}
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// 9. Start server in goroutine, unless disabled
	if cfg.DebugHTTP.Enabled {
		go func() {
			log.Info("debug HTTP server listening", zap.String("addr", addr))
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatal("Failed to start debug HTTP server", zap.Error(err))
			}
		}()
	}

	// 9b. Optionally spawn one agent on startup, so this binary can be
	// driven from the command line as a standalone smoke test instead of
	// only as a library embedded by a TUI.
	if *agentFlag != "" {
		kind := session.AgentKind(*agentFlag)
		s, err := disp.NewSession(ctx, "smoke-test", kind, *workdirFlag)
		if err != nil {
			log.Fatal("failed to spawn smoke-test session", zap.Error(err))
		}
		log.Info("spawned smoke-test session", zap.String("local_id", s.LocalID), zap.String("agent_kind", *agentFlag))
	}

	// 10. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down amuxd core...")

	// 11. Graceful shutdown
	cancel()
	close(hubStop)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("amuxd core stopped")
}
