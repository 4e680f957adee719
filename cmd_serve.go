package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/wellness/internal/server"
	"github.com/sadopc/wellness/internal/store"
)

var (
	serveAddr string
	serveDB   string
)

// serveCmd runs the reference gateway
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a local metrics gateway backed by SQLite",
	Long: `Serves the metrics API the dashboard talks to:

  POST /api/auth/register, /api/auth/login
  GET  /api/metrics?startDate=&endDate=
  POST /api/metrics, PUT/DELETE /api/metrics/{id}
  GET  /api/metrics/summary, /api/metrics/export/csv, /api/metrics/ai/summary

Stops gracefully on SIGINT or SIGTERM.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :5000)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "SQLite database path (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	dbPath, err := databasePath()
	if err != nil {
		return err
	}

	st, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer st.Close()

	logger.Info("opened database", zap.String("path", dbPath))

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(st,
		server.WithLogger(logger.Named("server")),
		server.WithTokenTTL(cfg.GetTokenTTL()),
	)
	return srv.ListenAndServe(ctx, addr)
}

func databasePath() (string, error) {
	switch {
	case serveDB != "":
		return serveDB, nil
	case cfg.Server.DatabasePath != "":
		return cfg.Server.DatabasePath, nil
	}
	return store.DefaultDBPath()
}
