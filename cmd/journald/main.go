package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/downfa11-org/go-journal/pkg/config"
	"github.com/downfa11-org/go-journal/pkg/controller"
	"github.com/downfa11-org/go-journal/pkg/journal"
	"github.com/downfa11-org/go-journal/pkg/metrics"
	"github.com/downfa11-org/go-journal/pkg/server"
	"github.com/downfa11-org/go-journal/util"
)

func main() {
	// Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	fmt.Printf("🚀 Starting journal for group %s at %s\n", cfg.GroupID, cfg.Location)
	fmt.Printf("🧹 Sweep: %s | ♻️ Republish after: %s | 📊 Exporter: %v\n",
		cfg.SweepPeriod(), cfg.RepublishAfter(), cfg.EnableExporter)

	// Initialization
	m := journal.NewManager(cfg, nil)
	st, err := m.GetStore(cfg.GroupID)
	if err != nil {
		log.Fatalf("❌ Failed to open journal: %v", err)
	}
	util.Info("journal %s/%s ready", st.GroupID(), st.UniqueID())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.EnableExporter {
		srv := metrics.StartMetricsServer(cfg.ExporterPort)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	} else {
		util.Info("📉 Exporter disabled")
	}

	serveErr := make(chan error, 1)
	if cfg.ServerPort > 0 {
		srv := server.NewServer(controller.NewCommandHandler(m, cfg), cfg.GroupID)
		if err := srv.Listen(fmt.Sprintf(":%d", cfg.ServerPort)); err != nil {
			m.CloseAll()
			log.Fatalf("❌ Failed to listen on %d: %v", cfg.ServerPort, err)
		}
		go func() { serveErr <- srv.Serve(ctx) }()
	}

	exitCode := 0
	select {
	case <-ctx.Done():
		util.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			util.Error("command server stopped: %v", err)
			exitCode = 1
		}
	}

	m.CloseAll()
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
