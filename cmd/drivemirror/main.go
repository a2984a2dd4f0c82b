// drivemirror mirrors a folder tree between two Google Drive accounts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Ning0612/drivemirror/internal/config"
	"github.com/Ning0612/drivemirror/internal/logger"
	"github.com/Ning0612/drivemirror/internal/progress"
	"github.com/Ning0612/drivemirror/internal/remote/gdrive"
	"github.com/Ning0612/drivemirror/internal/service"
	"github.com/Ning0612/drivemirror/internal/state"
)

var version = "dev"

var (
	flagConfig   string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:          "drivemirror",
		Short:        "Mirror a folder tree between two Google Drive accounts",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file path")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(), newAuthCmd(), newHistoryCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads config and initializes logging
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}

	logCfg := logger.Config{
		Level:  logger.ParseLevel(level),
		Format: logger.ParseFormat(cfg.Log.Format),
	}
	if cfg.Log.File != "" {
		logCfg.File = logger.FileConfig{
			Enabled:    true,
			Path:       config.ExpandPath(cfg.Log.File),
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			MaxBackups: cfg.Log.MaxBackups,
		}
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newRunCmd() *cobra.Command {
	var (
		flagSource     string
		flagDest       string
		flagWorkers    int
		flagTimeout    int
		flagChunkSize  int
		flagNoAdaptive bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a mirror transfer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Shutdown()

			if flagSource != "" {
				cfg.Transfer.SourceRootID = flagSource
			}
			if flagDest != "" {
				cfg.Transfer.DestRootID = flagDest
			}
			if cmd.Flags().Changed("workers") {
				cfg.Transfer.MaxWorkers = flagWorkers
			}
			if cmd.Flags().Changed("timeout") {
				cfg.Transfer.NetworkTimeoutSeconds = flagTimeout
			}
			if cmd.Flags().Changed("chunk-size") {
				cfg.Transfer.ChunkSizeBytes = flagChunkSize
			}
			if flagNoAdaptive {
				cfg.Transfer.AdaptiveConcurrency = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			source, err := gdrive.New(ctx, cfg.Auth.ClientID, cfg.Auth.ClientSecret,
				config.ExpandPath(cfg.Auth.SourceTokenPath), cfg.Transfer.ChunkSizeBytes)
			if err != nil {
				return fmt.Errorf("source account: %w", err)
			}
			dest, err := gdrive.New(ctx, cfg.Auth.ClientID, cfg.Auth.ClientSecret,
				config.ExpandPath(cfg.Auth.DestTokenPath), cfg.Transfer.ChunkSizeBytes)
			if err != nil {
				source.Close()
				return fmt.Errorf("destination account: %w", err)
			}

			svc, err := service.New(cfg, source, dest)
			if err != nil {
				return err
			}
			defer svc.Close()

			summary, runErr := svc.Run(ctx)
			if summary != nil {
				fmt.Printf("\n%d/%d files transferred (%s), %d failed, elapsed %s\n",
					summary.Succeeded, summary.TotalFiles,
					progress.FormatBytes(summary.Bytes),
					len(summary.Failed),
					summary.Elapsed.Round(time.Second),
				)
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&flagSource, "source", "", "source folder id")
	cmd.Flags().StringVar(&flagDest, "dest", "", "destination folder id")
	cmd.Flags().IntVar(&flagWorkers, "workers", config.DefaultMaxWorkers, "number of parallel workers")
	cmd.Flags().IntVar(&flagTimeout, "timeout", config.DefaultNetworkTimeout, "network timeout in seconds")
	cmd.Flags().IntVar(&flagChunkSize, "chunk-size", config.DefaultChunkSizeBytes, "upload chunk size in bytes")
	cmd.Flags().BoolVar(&flagNoAdaptive, "no-adaptive", false, "disable adaptive concurrency")
	return cmd
}

func newAuthCmd() *cobra.Command {
	var flagAccount string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to the source or destination account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Shutdown()

			var tokenPath string
			switch flagAccount {
			case "source":
				tokenPath = config.ExpandPath(cfg.Auth.SourceTokenPath)
			case "dest":
				tokenPath = config.ExpandPath(cfg.Auth.DestTokenPath)
			default:
				return fmt.Errorf("--account must be 'source' or 'dest', got %q", flagAccount)
			}

			auth := gdrive.NewAuthenticator(cfg.Auth.ClientID, cfg.Auth.ClientSecret, tokenPath)
			_, err = auth.Authenticate(context.Background())
			return err
		},
	}

	cmd.Flags().StringVar(&flagAccount, "account", "", "account to authorize (source or dest)")
	cmd.MarkFlagRequired("account")
	return cmd
}

func newHistoryCmd() *cobra.Command {
	var flagLimit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent transfer runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Shutdown()

			manager, err := state.NewManager(cfg.GetDataDir())
			if err != nil {
				return err
			}
			defer manager.Close()

			records, err := manager.History(flagLimit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("no runs recorded")
				return nil
			}

			for _, r := range records {
				fmt.Printf("#%d  %s  %-9s  %d/%d files  %s  %s\n",
					r.ID,
					r.StartTime.Format("2006-01-02 15:04:05"),
					r.Status,
					r.FilesOK, r.FilesTotal,
					progress.FormatBytes(r.Bytes),
					r.EndTime.Sub(r.StartTime).Round(time.Second),
				)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&flagLimit, "limit", 10, "number of runs to show")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("drivemirror", version)
		},
	}
}
