package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/lazypower/graphwalk/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Load entities and relationships from YAML or JSON files",
	Long: `Each file holds an "entities" list and a "relationships" list. Files ending
in .json are read as JSON, everything else as YAML. All files are validated
before anything is written, and the whole set is stored in one transaction.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	sets := make([]store.ImportSet, len(args))

	var g errgroup.Group
	g.SetLimit(4)
	for i, path := range args {
		g.Go(func() error {
			set, err := readImportFile(path)
			if err != nil {
				return err
			}
			sets[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var all store.ImportSet
	for _, s := range sets {
		all.Entities = append(all.Entities, s.Entities...)
		all.Relationships = append(all.Relationships, s.Relationships...)
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	nEnt, nRel, err := db.ImportBatch(cmd.Context(), all)
	if err != nil {
		return err
	}
	logger.Info("import complete", zap.Int("files", len(args)), zap.Int("entities", nEnt), zap.Int("relationships", nRel))
	brand.Fprintf(cmd.OutOrStdout(), "Imported %d entities and %d relationships from %d file(s)\n", nEnt, nRel, len(args))
	return nil
}

func readImportFile(path string) (store.ImportSet, error) {
	var set store.ImportSet
	data, err := os.ReadFile(path)
	if err != nil {
		return set, fmt.Errorf("read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(data, &set)
	} else {
		err = yaml.Unmarshal(data, &set)
	}
	if err != nil {
		return set, fmt.Errorf("parse %s: %w", path, err)
	}
	return set, nil
}
