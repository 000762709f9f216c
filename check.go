package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"repairer-discovery/services"
)

var errChecksFailed = errors.New("one or more connection checks failed")

func newCheckCommand(a *app) *cobra.Command {
	var asJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check the listing source, AI service and database independently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var source, ai, database services.Pinger
			source = a.launcher()

			gen, err := a.gemini(ctx)
			if err != nil {
				ai = services.PingFunc(func(context.Context) error { return err })
			} else if gen != nil {
				defer gen.Close()
				ai = gen
			}

			database = services.PingFunc(func(ctx context.Context) error {
				store, err := a.postgres(ctx, 1)
				if err != nil {
					return err
				}
				defer store.Close()
				return store.Ping(ctx)
			})

			report := services.NewDiagnostics(source, ai, database, timeout, a.logger).TestConnection(ctx)

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), renderReport(report))
			}

			if !report.AllOK() {
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	cmd.Flags().DurationVar(&timeout, "timeout", 60*time.Second, "Per-check timeout")
	return cmd
}

func renderReport(r *services.ConnectionReport) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Check", "OK", "Latency", "Error"})
	for _, c := range []struct {
		name string
		res  services.CheckResult
	}{
		{"listing source", r.Source},
		{"AI service", r.AI},
		{"database", r.Database},
	} {
		ok := "no"
		if c.res.OK {
			ok = "yes"
		}
		tw.AppendRow(table.Row{c.name, ok, c.res.Latency.Round(time.Millisecond), c.res.Error})
	}
	return tw.Render()
}
