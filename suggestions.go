package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"repairer-discovery/models"
	"repairer-discovery/services"
)

var errBlankReason = errors.New("a rejection reason is required")

func newSuggestionsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "Review discovered repairers",
	}
	cmd.AddCommand(newSuggestionsListCommand(a))
	cmd.AddCommand(newSuggestionsApproveCommand(a))
	cmd.AddCommand(newSuggestionsRejectCommand(a))
	return cmd
}

// withSuggestions opens the store for one command.
func (a *app) withSuggestions(cmd *cobra.Command, fn func(*services.SuggestionService) error) error {
	store, err := a.postgres(cmd.Context(), 1)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(services.NewSuggestionService(store, a.logger))
}

func newSuggestionsListCommand(a *app) *cobra.Command {
	var status string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List suggestions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSuggestions(cmd, func(svc *services.SuggestionService) error {
				list, err := svc.List(cmd.Context(), models.SuggestionStatus(status))
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(list)
				}
				if len(list) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No suggestions")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSuggestions(list))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status: pending, approved or rejected")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func renderSuggestions(list []*models.Suggestion) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "Name", "City", "Confidence", "Quality", "Method", "Accuracy", "Status", "Created"})
	for _, s := range list {
		p := s.ScrapedData
		tw.AppendRow(table.Row{
			s.ID,
			p.Name,
			p.PostalCode + " " + p.City,
			strconv.FormatFloat(s.ConfidenceScore, 'f', 2, 64),
			s.QualityScore,
			string(p.Method),
			string(p.Accuracy),
			string(s.Status),
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return tw.Render()
}

func newSuggestionsApproveCommand(a *app) *cobra.Command {
	var reviewer string

	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a pending suggestion and add it to the registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSuggestions(cmd, func(svc *services.SuggestionService) error {
				rec, err := svc.Approve(cmd.Context(), args[0], reviewer)
				if err != nil {
					return decisionHint(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Approved %s → registry record %s (%s)\n", args[0], rec.ID, rec.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "Reviewer identity recorded with the decision")
	return cmd
}

func newSuggestionsRejectCommand(a *app) *cobra.Command {
	var reviewer string
	var reason string

	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a pending suggestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(reason) == "" {
				return errBlankReason
			}
			return a.withSuggestions(cmd, func(svc *services.SuggestionService) error {
				if err := svc.Reject(cmd.Context(), args[0], reason, reviewer); err != nil {
					return decisionHint(err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rejected %s\n", args[0])
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Why the suggestion is rejected")
	cmd.Flags().StringVar(&reviewer, "reviewer", "", "Reviewer identity recorded with the decision")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func decisionHint(err error) error {
	switch {
	case errors.Is(err, services.ErrSuggestionNotFound):
		return fmt.Errorf("%w (see `suggestions list`)", err)
	case errors.Is(err, services.ErrAlreadyDecided):
		return fmt.Errorf("%w; decisions are final", err)
	}
	return err
}
