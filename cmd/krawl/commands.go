package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OPEN-NEXT/LOSH-krawler/internal"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/fetcher"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/normalizer"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/report"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/serializer"
	"github.com/OPEN-NEXT/LOSH-krawler/internal/storage"
)

func newFetchCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch projects from a provider into the local store",
	}

	var reset bool
	oshwa := &cobra.Command{
		Use:   "oshwa",
		Short: "Sync the OSHWA certification listing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.Require("OSHWA_API_TOKEN", a.cfg.OSHWAAPIToken); err != nil {
				return err
			}
			svc, closeDB, err := a.oshwaSync()
			if err != nil {
				return err
			}
			defer closeDB()
			res, err := svc.Sync(cmd.Context(), reset)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "oshwa sync done run=%s fetched=%d stored=%d failed=%d\n", res.RunID, res.Fetched, res.Stored, res.Failed)
			return nil
		},
	}
	oshwa.Flags().BoolVar(&reset, "reset", false, "forget the stored cursor and start from the beginning")

	byURL := &cobra.Command{
		Use:   "url <oshwa-url|uid>",
		Short: "Fetch a single OSHWA project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Require("OSHWA_API_TOKEN", a.cfg.OSHWAAPIToken); err != nil {
				return err
			}
			svc, closeDB, err := a.oshwaSync()
			if err != nil {
				return err
			}
			defer closeDB()
			p, err := svc.FetchOne(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", p.ID())
			return nil
		},
	}

	renormalize := &cobra.Command{
		Use:   "renormalize",
		Short: "Rebuild stored OSHWA projects from their raw records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, closeDB, err := a.oshwaSync()
			if err != nil {
				return err
			}
			defer closeDB()
			res, err := svc.Renormalize(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "renormalized run=%s records=%d stored=%d failed=%d\n", res.RunID, res.Fetched, res.Stored, res.Failed)
			return nil
		},
	}

	cmd.AddCommand(oshwa, byURL, renormalize)
	return cmd
}

func (a *app) oshwaSync() (*fetcher.SyncService, func(), error) {
	deps, err := a.deps()
	if err != nil {
		return nil, nil, err
	}
	db, err := a.openDB()
	if err != nil {
		return nil, nil, err
	}
	svc := fetcher.NewSyncService(db, a.cfg, normalizer.NewOSHWA(deps), a.logger)
	return svc, func() { _ = db.Close() }, nil
}

func newConvertCommand(a *app) *cobra.Command {
	var input, inputType, source, format, output string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Normalize one provider document and serialize it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(input)
			if err != nil {
				return err
			}
			if inputType == "" {
				inputType = filepath.Ext(input)
			}
			des, err := serializer.ForType(inputType)
			if err != nil {
				return err
			}
			ser, err := serializer.ForFormat(format)
			if err != nil {
				return err
			}
			deps, err := a.deps()
			if err != nil {
				return err
			}
			n, err := normalizer.Default(deps).Get(source)
			if err != nil {
				return err
			}

			p, err := des.Deserialize(data, n, nil)
			if err != nil {
				return err
			}
			blob, err := ser.Serialize(p)
			if err != nil {
				return err
			}
			if output == "" {
				_, err = cmd.OutOrStdout().Write(blob)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			return os.WriteFile(output, blob, 0o644)
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "provider document to convert")
	cmd.Flags().StringVar(&inputType, "type", "", "json|toml, defaults to the input extension")
	cmd.Flags().StringVar(&source, "normalizer", internal.SourceOSHWA, "oshwa|wikifactory")
	cmd.Flags().StringVar(&format, "format", "ttl", "ttl|nt|yaml|json")
	cmd.Flags().StringVar(&output, "output", "", "output file, stdout when empty")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored projects",
	}

	var source, out, format string
	rdf := &cobra.Command{
		Use:   "rdf",
		Short: "Write one graph file per stored project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ser, err := serializer.ForFormat(format)
			if err != nil {
				return err
			}
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			rows, err := db.ListProjects(source)
			if err != nil {
				return err
			}
			projects := make([]*internal.Project, 0, len(rows))
			for _, row := range rows {
				projects = append(projects, row.Project)
			}
			if out == "" {
				out = filepath.Join(a.cfg.OutputDir, "rdf")
			}
			written, err := serializer.WriteProjects(projects, ser, out)
			if err != nil {
				a.logger.Warn("some projects were not exported", "err", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d of %d projects to %s\n", len(written), len(projects), out)
			return nil
		},
	}
	rdf.Flags().StringVar(&source, "source", "", "only export projects of this provider")
	rdf.Flags().StringVar(&out, "out", "", "output directory")
	rdf.Flags().StringVar(&format, "format", "ttl", "ttl|nt")

	cmd.AddCommand(rdf)
	return cmd
}

func newReportCommand(a *app) *cobra.Command {
	var runID, out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the status report of a sync run as xlsx",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			if runID == "" {
				latest, err := db.LatestRunID()
				if err != nil {
					return err
				}
				if latest == nil {
					return fmt.Errorf("no sync run recorded yet")
				}
				runID = *latest
			}
			rows, err := db.ListReports(runID)
			if err != nil {
				return err
			}
			if out == "" {
				out = filepath.Join(a.cfg.OutputDir, "reports", runID+".xlsx")
			}
			if err := report.ExportXLSX(rows, out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report run=%s rows=%d written to %s\n", runID, len(rows), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "run id, defaults to the latest run")
	cmd.Flags().StringVar(&out, "out", "", "output xlsx path")
	return cmd
}

func newStateCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect or reset stored fetcher state",
	}
	store := func() *storage.StateStore {
		return storage.NewStateStore(a.cfg.StateDir(), a.logger)
	}

	show := &cobra.Command{
		Use:   "show <fetcher>",
		Short: "Print the stored state of a fetcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := store().Load(strings.ToLower(args[0]))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "    ")
			return enc.Encode(state)
		},
	}
	del := &cobra.Command{
		Use:   "delete <fetcher>",
		Short: "Delete the stored state of a fetcher",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			existed, err := store().Delete(strings.ToLower(args[0]))
			if err != nil {
				return err
			}
			if !existed {
				fmt.Fprintf(cmd.OutOrStdout(), "no state stored for %s\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted state of %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(show, del)
	return cmd
}
