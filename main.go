package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sadopc/wellness/internal/config"
	"github.com/sadopc/wellness/internal/export"
	"github.com/sadopc/wellness/internal/gateway"
	"github.com/sadopc/wellness/internal/logging"
	"github.com/sadopc/wellness/internal/session"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiURL     string

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "wellness",
	Short: "Personal wellness dashboard for the terminal",
	Long: `wellness tracks daily steps, sleep and mood against a metrics gateway.

Run without arguments to open the interactive dashboard. Use "wellness serve"
to run a local gateway backed by SQLite.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return err
		}
		if apiURL != "" {
			cfg.API.BaseURL = apiURL
		}

		// Only the gateway logs to the terminal; every other command
		// either owns the screen or prints results there.
		opts := logging.Options{Level: cfg.Logging.Level, Verbose: verbose, File: cfg.Logging.File}
		if cmd == serveCmd {
			opts.File = ""
		}
		logger, err = logging.New(opts)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runDashboard,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Gateway base URL (or set WELLNESS_API_URL)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(moodCmd)
	rootCmd.AddCommand(exportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newClient builds a gateway client whose credential persists in the
// configured token file.
func newClient() (*gateway.Client, error) {
	sess, err := gateway.NewSession(gateway.FileTokenStore{Path: cfg.API.TokenFile})
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return gateway.New(cfg.API.BaseURL, sess,
		gateway.WithTimeout(cfg.GetAPITimeout()),
		gateway.WithLogger(logger.Named("gateway")),
	), nil
}

func newController(c *gateway.Client) *session.Controller {
	return session.New(c, session.WithLogger(logger.Named("session")))
}

func newExporter(c *gateway.Client, dir string) *export.Exporter {
	exp := export.NewExporter(dir, c, logger.Named("export"))
	if cfg.Export.DateLayout != "" {
		exp.DateLayout = cfg.Export.DateLayout
	}
	exp.Renderer = export.ChromeRenderer{Bin: cfg.Export.ChromePath}
	return exp
}

// requireLogin fails commands that need a credential when none is stored.
func requireLogin(c *gateway.Client) error {
	if !c.Authenticated() {
		return errors.New(`not signed in; run "wellness login" first`)
	}
	return nil
}

// gatewayError turns a gateway failure into the message shown to the user.
func gatewayError(err error, def string) error {
	if gateway.IsAuthExpired(err) {
		return errors.New(session.MsgAuthExpired)
	}
	return errors.New(gateway.UserMessage(err, def))
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
