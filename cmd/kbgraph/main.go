// Command kbgraph runs link generation and graph reads from a terminal
// against the configured store.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"kbgraph-backend/application/commands"
	"kbgraph-backend/application/queries"
	"kbgraph-backend/infrastructure/di"
)

// backend is what the commands need from the application
type backend interface {
	GenerateLinks(ctx context.Context, cmd commands.GenerateLinksCommand) (*commands.GenerateLinksResult, error)
	GetGraphData(ctx context.Context, q queries.GetGraphDataQuery) (*queries.GraphData, error)
}

type openFunc func(ctx context.Context) (backend, func(), error)

type containerBackend struct {
	*di.Container
}

func (b containerBackend) GenerateLinks(ctx context.Context, cmd commands.GenerateLinksCommand) (*commands.GenerateLinksResult, error) {
	return b.LinkService.GenerateLinks(ctx, cmd)
}

func (b containerBackend) GetGraphData(ctx context.Context, q queries.GetGraphDataQuery) (*queries.GraphData, error) {
	return b.GraphQuery.GetGraphData(ctx, q)
}

func openContainer(ctx context.Context) (backend, func(), error) {
	container, cleanup, err := di.InitializeContainer(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize container: %w", err)
	}
	return containerBackend{container}, func() {
		_ = container.Logger.Sync()
		cleanup()
	}, nil
}

func main() {
	if err := newRootCmd(openContainer).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(open openFunc) *cobra.Command {
	root := &cobra.Command{
		Use:          "kbgraph",
		Short:        "Build and inspect knowledge-base similarity links",
		SilenceUsage: true,
	}
	root.AddCommand(newGenerateCmd(open), newGraphCmd(open))
	return root
}

func newGenerateCmd(open openFunc) *cobra.Command {
	var (
		userID        string
		minSimilarity float64
		maxLinks      int
		ordering      string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Rebuild the automatic links of one owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			genCmd := commands.GenerateLinksCommand{UserID: userID, Ordering: ordering}
			if cmd.Flags().Changed("min-similarity") {
				genCmd.MinSimilarity = &minSimilarity
			}
			if cmd.Flags().Changed("max-links") {
				genCmd.MaxLinks = &maxLinks
			}

			b, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := b.GenerateLinks(cmd.Context(), genCmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "owner whose entries are linked")
	cmd.Flags().Float64Var(&minSimilarity, "min-similarity", 0, "minimum Jaccard similarity (default from config)")
	cmd.Flags().IntVar(&maxLinks, "max-links", 0, "maximum links per run (default from config)")
	cmd.Flags().StringVar(&ordering, "ordering", "", "discovery or strength (default from config)")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newGraphCmd(open openFunc) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the stored graph of one owner",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, cleanup, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			graph, err := b.GetGraphData(cmd.Context(), queries.GetGraphDataQuery{UserID: userID})
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), graph)
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "owner whose graph is printed")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
