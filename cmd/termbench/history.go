package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/termbench/internal/report"
	"github.com/Adithya-Monish-Kumar-K/termbench/internal/store"
	"github.com/Adithya-Monish-Kumar-K/termbench/pkg/postgres"
)

func historyCmd(configPath *string) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent benchmark runs from the run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			client, err := postgres.New(ctx, cfg.Postgres)
			if err != nil {
				return err
			}
			defer client.Close()

			runs, err := store.New(client).Recent(ctx, limit)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			return printHistory(cmd.OutOrStdout(), runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")
	return cmd
}

func printHistory(out io.Writer, runs []report.Run) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tALGORITHM\tSTATE\tSTARTED\tDURATION\tRECALL\tPRECISION")
	for _, run := range runs {
		recall, precision := "-", "-"
		if run.Result != nil {
			recall = fmt.Sprintf("%.3f", run.Result.Recall)
			precision = formatPrecision(run.Result.Cutoffs, run.Result.PrecisionByCutoff)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.Algorithm,
			run.State,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			run.Duration().Round(time.Millisecond),
			recall,
			precision,
		)
	}
	return w.Flush()
}

func formatPrecision(cutoffs []int, precision []float64) string {
	if len(cutoffs) == 0 {
		return "-"
	}
	parts := make([]string, len(cutoffs))
	for i, k := range cutoffs {
		parts[i] = fmt.Sprintf("P@%d=%.3f", k, precision[i])
	}
	return strings.Join(parts, " ")
}
