/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/friendsincode/bragi_sequencer/internal/db"
	"github.com/friendsincode/bragi_sequencer/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import data from legacy sequencing systems",
}

var importLegacyCmd = &cobra.Command{
	Use:   "legacy",
	Short: "Import a legacy SQLite library",
	Long: `Import tracks, channels, and playlist memberships from a legacy
sequencer's SQLite database. Tracks keep their legacy integer IDs so the
assignment tie-break order is preserved.

Examples:
  bragisequencer import legacy --source /data/library.db --dry-run
  bragisequencer import legacy --source /data/library.db --channel "Main"`,
	RunE: runImportLegacy,
}

var (
	importSourcePath string
	importChannel    string
	importDryRun     bool
)

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importLegacyCmd)

	importLegacyCmd.Flags().StringVar(&importSourcePath, "source", "", "Path to the legacy SQLite database (required)")
	importLegacyCmd.Flags().StringVar(&importChannel, "channel", "", "Import everything into this channel instead of one channel per legacy playlist")
	importLegacyCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Analyze the source without importing")
	importLegacyCmd.MarkFlagRequired("source")
}

func runImportLegacy(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := initDatabase()
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	svc := importer.NewService(database, logger)
	report, err := svc.ImportLegacyLibrary(context.Background(), importer.Options{
		SourcePath:  importSourcePath,
		ChannelName: importChannel,
		DryRun:      importDryRun,
	})
	if err != nil {
		return fmt.Errorf("import legacy library: %w", err)
	}

	verb := "imported"
	if importDryRun {
		verb = "would import"
	}
	fmt.Printf("%s %d channels, %d tracks (%d skipped), %d memberships (%d missing tracks)\n",
		verb, report.Channels, report.Tracks, report.TracksSkipped, report.Memberships, report.MembershipsMissed)
	return nil
}
