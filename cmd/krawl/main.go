package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/OPEN-NEXT/LOSH-krawler/internal/config"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/logging"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/normalizer"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/storage"
)

var version = "dev"

type app struct {
	cfg    config.Config
	logger *log.Logger

	logLevel string
	logJSON  bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand(&app{}).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "krawl",
		Short:         "Collect open hardware metadata and normalize it into OKH graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.LogLevel = a.logLevel
			}
			if cmd.Flags().Changed("log-json") {
				cfg.LogJSON = a.logJSON
			}
			a.cfg = cfg
			a.logger = logging.New(cfg.LogLevel, cfg.LogJSON)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "debug|info|warn|error")
	cmd.PersistentFlags().BoolVar(&a.logJSON, "log-json", false, "log as JSON")

	cmd.AddCommand(newFetchCommand(a))
	cmd.AddCommand(newConvertCommand(a))
	cmd.AddCommand(newExportCommand(a))
	cmd.AddCommand(newReportCommand(a))
	cmd.AddCommand(newStateCommand(a))
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the krawler version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})
	return cmd
}

func (a *app) openDB() (*storage.DB, error) {
	return storage.Open(a.cfg.DBPath)
}

func (a *app) deps() (normalizer.Deps, error) {
	return normalizer.LoadDeps(a.logger)
}
