package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	searchLimit    int
	searchCategory string
	searchRemote   bool
	searchURL      string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search entities by name or alias",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")
	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "Filter by category")
	searchCmd.Flags().BoolVar(&searchRemote, "remote", false, "Query a running server instead of the local database")
	searchCmd.Flags().StringVar(&searchURL, "url", "", "Server URL for --remote (default from config or $GRAPHWALK_URL)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	f, release, err := openFetcher(searchRemote, searchURL)
	if err != nil {
		return err
	}
	defer release()

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	res, err := f.SearchByQuery(ctx, query, searchLimit, searchCategory)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	if len(res.Entities) == 0 {
		bad.Fprintf(out, "No entities match %q\n", query)
		return nil
	}

	rows := make([][]string, len(res.Entities))
	for i, e := range res.Entities {
		rows[i] = []string{e.Name, e.Category, e.ID, fmt.Sprintf("%.2f", e.Confidence)}
	}
	printTable(out, []string{"NAME", "CATEGORY", "ID", "CONFIDENCE"}, rows)
	info.Fprintf(out, "\n  %d of %d matches\n", len(res.Entities), res.Total)
	return nil
}
