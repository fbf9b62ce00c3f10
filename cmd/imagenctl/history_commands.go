package main

import (
	"fmt"
	"strconv"

	"github.com/jrsteele09/go-imagen-client/apimodel"
	"github.com/jrsteele09/go-imagen-client/generation"
	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse generation jobs",
	}

	var q generation.HistoryQuery
	list := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			page, err := a.gen.Histories(cmd.Context(), q)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, page)
			}
			rows := make([][]string, 0, len(page.Result))
			for _, h := range page.Result {
				rows = append(rows, []string{h.UUID, h.Type, strconv.Itoa(h.Status), summary(&h), h.CreatedAt})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"UUID", "Type", "Status", "Input", "Created"}, rows, nil))
			fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d, %d jobs\n", page.CurrentPage, page.LastPage, page.Total)
			return nil
		},
	}
	list.Flags().StringVar(&q.FilterBy, "type", "all", "Job type filter")
	list.Flags().IntVar(&q.ItemsPerPage, "per-page", generation.DefaultItemsPerPage, "Jobs per page")
	list.Flags().IntVar(&q.Page, "page", 1, "Page number")

	show := &cobra.Command{
		Use:   "show <uuid>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			h, err := a.gen.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printHistory(cmd, ctx, h)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func summary(h *apimodel.History) string {
	if h.InputText != "" {
		return h.InputText
	}
	return h.Prompt
}

func printHistory(cmd *cobra.Command, ctx *commandContext, h *apimodel.History) error {
	if ctx.jsonOutput() {
		return writeJSON(cmd, h.Raw)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, keyValueRows(
		"UUID", h.UUID,
		"Type", h.Type,
		"Status", strconv.Itoa(h.Status),
		"Model", h.Model,
		"Input", summary(h),
		"Created", h.CreatedAt,
	), nil))
	return nil
}
