package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lazypower/graphwalk/internal/explorer"
	"github.com/lazypower/graphwalk/internal/fetch"
	"github.com/lazypower/graphwalk/internal/graph"
)

var (
	exploreHops   int
	exploreTicks  int
	exploreRemote bool
	exploreURL    string
	exploreJSON   bool
)

var exploreCmd = &cobra.Command{
	Use:   "explore ID",
	Short: "Expand an entity's neighborhood and print the settled layout",
	Long: `Explore expands ID and then every newly discovered entity, hop by hop,
exactly as clicking each node in the UI would. Once the requested depth is
reached the layout runs until it settles and the final positions are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().IntVar(&exploreHops, "hops", 1, "Expansion rounds; 1 expands ID only")
	exploreCmd.Flags().IntVar(&exploreTicks, "max-ticks", 2000, "Upper bound on layout ticks")
	exploreCmd.Flags().BoolVar(&exploreRemote, "remote", false, "Read from a running server instead of the local database")
	exploreCmd.Flags().StringVar(&exploreURL, "url", "", "Server URL for --remote (default from config or $GRAPHWALK_URL)")
	exploreCmd.Flags().BoolVar(&exploreJSON, "json", false, "Print the final scene as JSON")
}

func runExplore(cmd *cobra.Command, args []string) error {
	f, release, err := openFetcher(exploreRemote, exploreURL)
	if err != nil {
		return err
	}
	defer release()

	opts := cfg.ExplorerOptions()
	opts.Logger = logger
	ex := explorer.New(opts)

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	if err := expandHops(ctx, ex, f, args[0], exploreHops); err != nil {
		return err
	}

	ticks := ex.Simulator().RunUntilSettled(exploreTicks)
	logger.Debug("layout finished", zap.Int("ticks", ticks), zap.Stringer("state", ex.Simulator().State()))

	out := cmd.OutOrStdout()
	if exploreJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ex.Scene())
	}

	nodes := ex.Graph().Nodes()
	rows := make([][]string, len(nodes))
	for i, n := range nodes {
		rows[i] = []string{n.Label, string(n.Category), n.ID, fmt.Sprintf("%8.1f", n.X), fmt.Sprintf("%8.1f", n.Y)}
	}
	printTable(out, []string{"NAME", "CATEGORY", "ID", "X", "Y"}, rows)
	info.Fprintf(out, "\n  %d nodes, %d edges, %d ticks (%s)\n",
		len(nodes), ex.Graph().EdgeLen(), ticks, ex.Simulator().State())
	for _, n := range ex.Notices() {
		bad.Fprintf(out, "  ! %s\n", n.Message)
	}
	return nil
}

type expansion struct {
	ticket explorer.Ticket
	nb     fetch.Neighbors
	err    error
}

// expandHops fetches each frontier concurrently and merges the results one at
// a time on the calling goroutine, so the explorer keeps a single owner.
func expandHops(ctx context.Context, ex *explorer.Explorer, f fetch.Fetcher, root string, hops int) error {
	frontier := []string{root}
	for hop := 0; hop < max(hops, 1) && len(frontier) > 0; hop++ {
		results := make([]expansion, len(frontier))
		for i, id := range frontier {
			results[i].ticket = ex.BeginExpand(id)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(8)
		for i := range results {
			g.Go(func() error {
				results[i].nb, results[i].err = f.NeighborsByID(gctx, results[i].ticket.ID)
				return nil
			})
		}
		g.Wait()

		var next []string
		for _, r := range results {
			res, err := ex.FinishExpand(r.ticket, r.nb, r.err)
			switch {
			case hop == 0 && errors.Is(err, fetch.ErrNotFound):
				return fmt.Errorf("explore %s: %w", root, err)
			case err != nil:
				logger.Warn("expand failed", zap.String("id", r.ticket.ID), zap.Error(err))
				continue
			}
			next = append(next, addedExcept(res, r.ticket.ID)...)
		}
		frontier = next
	}
	return nil
}

func addedExcept(res graph.MergeResult, focal string) []string {
	var ids []string
	for _, id := range res.AddedNodes {
		if id != focal {
			ids = append(ids, id)
		}
	}
	return ids
}
