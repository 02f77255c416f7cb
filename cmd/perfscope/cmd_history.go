// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/AleutianAI/perfscope/pkg/ux"
	"github.com/AleutianAI/perfscope/pkg/validation"
	"github.com/AleutianAI/perfscope/services/perfscope/api"
	"github.com/AleutianAI/perfscope/services/perfscope/history"
	"github.com/spf13/cobra"
)

var (
	historyLimit      int
	exportDir         string
	exportToInflux    bool
	historyTimeUnit   string
	historyMemoryUnit string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and export recorded analyses",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded analyses, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a recorded analysis",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyExportCmd = &cobra.Command{
	Use:   "export <id>",
	Short: "Export a sweep's time and memory curves",
	Long: `Writes <id>_time.csv and <id>_memory.csv with "Input Size,Value" rows.
With --influx, the record is also written to the configured InfluxDB bucket.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistoryExport,
}

func init() {
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum records to list")
	historyShowCmd.Flags().StringVar(&historyTimeUnit, "time-unit", "ms", "ms, s or min")
	historyShowCmd.Flags().StringVar(&historyMemoryUnit, "memory-unit", "KB", "bytes, KB or MB")
	historyExportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default from config)")
	historyExportCmd.Flags().BoolVar(&exportToInflux, "influx", false, "also write to InfluxDB")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyExportCmd)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	store, err := requireStore()
	if err != nil {
		return err
	}
	records, err := store.List(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(api.HistoryListResponse{Records: records, Count: len(records)})
	}
	if len(records) == 0 {
		ux.Info("No recorded analyses")
		return nil
	}
	out := ux.Stdout()
	for _, r := range records {
		fmt.Fprintf(out, "%s  %s  %-8s  %-12s %-12s %s\n",
			r.ID(),
			r.RecordedAt.Local().Format(time.DateTime),
			r.Report.Mode,
			r.Report.Result.TimeComplexity,
			r.Report.Result.SpaceComplexity,
			r.Source,
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	id, err := validation.SanitizeRecordID(args[0])
	if err != nil {
		return err
	}
	store, err := requireStore()
	if err != nil {
		return err
	}
	rec, err := store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputJSON(rec)
	}
	tu, err := ux.ParseTimeUnit(historyTimeUnit)
	if err != nil {
		return err
	}
	mu, err := ux.ParseMemoryUnit(historyMemoryUnit)
	if err != nil {
		return err
	}
	ux.RenderResult(toResultView(&rec.Report), ux.DisplayUnits{Time: tu, Memory: mu})
	ux.KeyValue("recorded_at", rec.RecordedAt.Local().Format(time.RFC3339))
	if rec.Source != "" {
		ux.KeyValue("source", rec.Source)
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	id, err := validation.SanitizeRecordID(args[0])
	if err != nil {
		return err
	}
	store, err := requireStore()
	if err != nil {
		return err
	}
	if err := store.Delete(cmd.Context(), id); err != nil {
		return err
	}
	ux.Success(fmt.Sprintf("Deleted %s", id))
	return nil
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	id, err := validation.SanitizeRecordID(args[0])
	if err != nil {
		return err
	}
	store, err := requireStore()
	if err != nil {
		return err
	}
	rec, err := store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}

	dir := exportDir
	if dir == "" {
		dir = appCfg.Export.CSVDir
	}
	paths, err := history.ExportCSV(dir, rec)
	if err != nil {
		return err
	}
	series := make([]string, 0, len(paths))
	for s := range paths {
		series = append(series, string(s))
	}
	sort.Strings(series)
	for _, s := range series {
		ux.Success(fmt.Sprintf("Wrote %s", paths[history.Series(s)]))
	}

	if !exportToInflux {
		return nil
	}
	sink, err := openInflux()
	if err != nil {
		return err
	}
	if sink == nil {
		return fmt.Errorf("export.influx.url is not configured")
	}
	if err := sink.Write(cmd.Context(), rec); err != nil {
		return err
	}
	ux.Success(fmt.Sprintf("Wrote %s to InfluxDB bucket %s", rec.ID(), appCfg.Export.Influx.Bucket))
	return nil
}
