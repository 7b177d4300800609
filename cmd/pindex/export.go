package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/pindex/internal/export"
	"github.com/hyperengineering/pindex/internal/report"
)

var exportOpen bool

// Browser launchers, replaced in tests.
var (
	openURL  = browser.OpenURL
	openFile = browser.OpenFile
)

var exportCmd = &cobra.Command{
	Use:   "export <project-id>",
	Short: "Write a project's report archive",
	Long:  "Write the project's report as JSON to the export directory and, when a bucket is configured, upload it and print a pre-signed download URL.",
	Args:  cobra.ExactArgs(1),
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportOpen, "open", false,
		"Open the exported report in a browser")
}

func runExport(cmd *cobra.Command, args []string) error {
	s, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	uploader, err := export.NewUploader(cfg.Export)
	if err != nil {
		return err
	}
	logger := cliLogger(cmd.ErrOrStderr())
	exporter := export.NewExporter(report.NewBuilder(s, logger), uploader, cfg.Export.Dir, logger)

	result, err := exporter.Export(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput {
		if err := printJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Exported report to %s (%s)\n", result.Location, humanize.Bytes(uint64(result.SizeBytes)))
		if result.URL != "" {
			fmt.Fprintf(out, "Download: %s\n", result.URL)
			if result.ExpiresAt != nil {
				fmt.Fprintf(out, "Link expires %s\n", humanize.Time(*result.ExpiresAt))
			}
		}
	}

	if !exportOpen {
		return nil
	}
	if result.URL != "" {
		return openURL(result.URL)
	}
	return openFile(result.Location)
}
