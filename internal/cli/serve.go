package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/opsgate/slb-mcp-gateway/internal/audit"
	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/config"
	"github.com/opsgate/slb-mcp-gateway/internal/dispatcher"
	"github.com/opsgate/slb-mcp-gateway/internal/httpapi"
	"github.com/opsgate/slb-mcp-gateway/internal/learning"
	"github.com/opsgate/slb-mcp-gateway/internal/patterns"
	"github.com/opsgate/slb-mcp-gateway/internal/ratelimit"
	"github.com/opsgate/slb-mcp-gateway/internal/rpctransport"
	"github.com/opsgate/slb-mcp-gateway/internal/store"
	"github.com/opsgate/slb-mcp-gateway/internal/supervisor"
	"github.com/spf13/cobra"
)

var (
	flagServeAgentName   string
	flagServeClientName  string
	flagServeDataDir     string
	flagServeDisableHTTP bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gateway: JSON-RPC over stdio, plus the optional HTTP metrics listener",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAgentName, "agent-name", "", "agent identity recorded in the session journal")
	serveCmd.Flags().StringVar(&flagServeClientName, "client-name", "mcp-client", "MCP client name recorded in the session journal")
	serveCmd.Flags().StringVar(&flagServeDataDir, "data-dir", "", "directory for the learning store's queue/approved files (default: alongside the journal db)")
	serveCmd.Flags().BoolVar(&flagServeDisableHTTP, "no-http", false, "disable the HTTP metrics/dashboard listener even if enabled in config")
}

// runServe wires every component (§2 C1-C9) and serves stdio JSON-RPC until
// the client closes its end of the pipe or the process receives a signal.
func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.LoadOptions{
		ProjectDir:         flagProject,
		ConfigPathOverride: flagConfig,
	})
	if err != nil {
		return err
	}

	patternStore := patterns.NewStore()
	if _, err := patternStore.ApplyOverrides(cfg.Security.AdditionalSafe, cfg.Security.AdditionalBlocked, cfg.Security.SuppressPatterns); err != nil {
		return err
	}

	dataDir := flagServeDataDir
	if dataDir == "" {
		dataDir = learningDataDir()
	}
	learningStore, err := learning.NewStore(dataDir)
	if err != nil {
		return err
	}
	defer learningStore.Close()

	publisher := audit.New(dispatcher.LoadEnvConfig().DisableAttemptPublish)
	cls := classifier.New(patternStore, learningStore, publisher)
	limiter := ratelimit.New(ratelimit.Config{
		Enabled:     cfg.RateLimit.Enabled,
		IntervalMs:  cfg.RateLimit.IntervalMs,
		MaxRequests: cfg.RateLimit.MaxRequests,
		Burst:       cfg.RateLimit.Burst,
	})
	sup := supervisor.New(supervisor.RealExecutor{})

	var db *store.DB
	if dbPath := GetDB(); dbPath != "" {
		db, err = store.Open(dbPath)
		if err != nil {
			log.Warn("serve: journal database unavailable, continuing without it", "path", dbPath, "err", err)
			db = nil
		} else {
			defer db.Close()
		}
	}

	disp := dispatcher.New(cfg, cls, learningStore, limiter, sup, publisher, db, dispatcher.LoadEnvConfig())

	sessionID := uuid.NewString()
	agentName := flagServeAgentName
	if agentName == "" {
		agentName = GetActor()
	}
	disp.BindSession(sessionID, agentName, flagServeClientName, flagProject)

	stop := make(chan struct{})
	watcher, err := config.NewWatcher(config.LoadOptions{
		ProjectDir:         flagProject,
		ConfigPathOverride: flagConfig,
	}, patternStore, nil)
	if err != nil {
		log.Warn("serve: config watcher unavailable, live reload disabled", "err", err)
	} else {
		go watcher.Run(stop)
		defer close(stop)
	}

	var httpSrv *httpapi.Server
	if cfg.HTTP.Enabled && !flagServeDisableHTTP {
		httpSrv = httpapi.New(httpapi.Config{
			Addr:          cfg.HTTP.Addr,
			AuthToken:     cfg.Security.OperatorAuthToken,
			EnablePromReg: true,
		}, publisher)
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil {
				log.Warn("http api server stopped", "err", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpSrv.Shutdown(ctx); err != nil {
				log.Warn("http api shutdown", "err", err)
			}
		}()
		log.Info("http metrics listener started", "addr", cfg.HTTP.Addr)
	}

	go watchSignals(db, sessionID)

	log.Info("slb-mcp-gateway serving", "sessionID", sessionID, "agent", agentName)
	server := rpctransport.NewServer(disp)
	return server.Serve(os.Stdin, os.Stdout)
}

// watchSignals ends the session record on SIGINT/SIGTERM so the journal
// doesn't carry a stuck-open session after a clean shutdown; stdio EOF (the
// normal shutdown path) is handled by Serve returning instead.
func watchSignals(db *store.DB, sessionID string) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	if db != nil {
		if err := db.EndSession(sessionID); err != nil {
			log.Warn("failed to end session on shutdown signal", "err", err)
		}
	}
	os.Exit(0)
}

func learningDataDir() string {
	if flagProject != "" {
		return flagProject + "/.slb-mcp-gateway"
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home + "/.slb-mcp-gateway"
	}
	return ".slb-mcp-gateway"
}
