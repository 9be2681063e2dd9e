package cmd

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zdunecki/skymesh/pkg/cli"
	"github.com/zdunecki/skymesh/pkg/config"
	"github.com/zdunecki/skymesh/pkg/store"
)

var (
	// Global flags
	configFile string
	storeFlag  string
	dataDir    string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "skymesh",
	Short: "Find and order the right Skymesh internet plan",
	Long: `Skymesh sizes a home internet connection from three quick questions,
recommends a plan and takes the order. Run without arguments for the
interactive terminal app, or use "serve" for the HTTP API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.Name() == "skymesh")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default ./skymesh.yaml)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "storage backend: file, sqlite or memory")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for the file store")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// initConfig loads configuration, applies flag overrides and starts the
// logger. The terminal app logs to a file so the alt screen stays clean.
func initConfig(tui bool) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if storeFlag != "" {
		c.Store.Driver = storeFlag
	}
	if dataDir != "" {
		c.Store.Dir = dataDir
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if err := config.InitLogger(c.Log, tui); err != nil {
		return err
	}
	cfg = c
	return nil
}

// openStore opens the configured backend; callers close it.
func openStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func runTUI(ctx context.Context) error {
	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	zap.L().Info("terminal app starting", zap.String("store", cfg.Store.Driver))
	return cli.Run(ctx, cli.Options{
		Store:            st,
		AutoAdvanceDelay: cfg.Wizard.AutoAdvanceDelay,
		TransitionSpeed:  cfg.Transition.Speed,
	})
}

func Execute() error {
	defer zap.L().Sync() //nolint:errcheck
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		zap.L().Error("command failed", zap.Error(err))
		return err
	}
	return nil
}
