package main

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"conductor/internal/db"
	"conductor/internal/models"
	"conductor/internal/peerreview"
	"conductor/internal/utils"
)

func withStore(ctx *commandContext, cmd *cobra.Command, fn func(context.Context, *db.Store) error) error {
	store, err := ctx.store(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = store.Close(closeCtx)
	}()
	return fn(cmd.Context(), store)
}

func newIndexesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "indexes",
		Short: "Create the MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, cmd, func(c context.Context, store *db.Store) error {
				if err := store.EnsureIndexes(c); err != nil {
					return err
				}
				rows := make([][]string, 0, len(db.Indexes()))
				for _, spec := range db.Indexes() {
					rows = append(rows, []string{spec.Collection, strconv.Itoa(len(spec.Models))})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Collection", "Indexes"}, rows, 2))
				return nil
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print Commons totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(ctx, cmd, func(c context.Context, store *db.Store) error {
				stats, err := statsHandler(store).Collect(c)
				if err != nil {
					return err
				}
				rows := [][]string{
					{"Books", strconv.FormatInt(stats.Books, 10)},
					{"Public collections", strconv.FormatInt(stats.Collections, 10)},
					{"Adoption reports", strconv.FormatInt(stats.AdoptionReports, 10)},
					{"Peer reviews", strconv.FormatInt(stats.PeerReviews, 10)},
					{"Reviewed books", strconv.FormatInt(stats.ReviewedBooks, 10)},
					{"Organizations", strconv.FormatInt(stats.Orgs, 10)},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Metric", "Count"}, rows, 2))
				return nil
			})
		},
	}
}

func newRubricCommand() *cobra.Command {
	rubricCmd := &cobra.Command{
		Use:   "rubric",
		Short: "Peer review rubric tools",
	}
	rubricCmd.AddCommand(&cobra.Command{
		Use:   "check <file>",
		Short: "Validate a rubric YAML file and print its prompts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rubric, err := peerreview.LoadRubricFile(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderRubric(rubric))
			return nil
		},
	})
	return rubricCmd
}

func renderRubric(r models.PeerReviewRubric) string {
	type item struct {
		order int
		cells []string
	}
	items := make([]item, 0, len(r.Headings)+len(r.Prompts))
	for _, h := range r.Headings {
		items = append(items, item{h.Order, []string{strconv.Itoa(h.Order), "heading", h.Title, ""}})
	}
	for _, p := range r.Prompts {
		required := ""
		if p.PromptRequired {
			required = "yes"
		}
		items = append(items, item{p.Order, []string{strconv.Itoa(p.Order), string(p.PromptType), p.PromptText, required}})
	}
	slices.SortStableFunc(items, func(a, b item) int { return cmp.Compare(a.order, b.order) })

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, it.cells)
	}
	return fmt.Sprintf("%s (%s)\n%s", r.RubricTitle, r.RubricID,
		renderTable([]string{"Order", "Type", "Text", "Required"}, rows, 1))
}

func newTokenCommand(ctx *commandContext) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <userID>",
		Short: "Issue a bearer token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.config()
			if err != nil {
				return err
			}
			utils.InitJwtSecret(cfg.JWTSecret)
			token, err := utils.GenerateJWT(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}
