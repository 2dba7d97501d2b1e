package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/reslab/reslab/record"
)

func newSeedCmd() *cobra.Command {
	var collection string

	cmd := &cobra.Command{
		Use:   "seed <file.json>",
		Short: "Import a JSON array of records into a collection",
		Long: `Reads a JSON file containing an array of objects and creates one
document per object in the configured record store. Useful for loading
project and people fixtures before first use.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := buildLogger(cfg)

			store, err := openRecordStore(cfg, logger.WithComponent("seed"))
			if err != nil {
				return err
			}
			if closer, ok := store.(interface{ Close() error }); ok {
				defer closer.Close()
			}

			n, err := seedFromFile(cmd, store, collection, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records into %s\n", n, collection)
			return nil
		},
	}

	cmd.Flags().StringVar(&collection, "collection", record.CollectionProjects, "target collection (projects or people)")
	return cmd
}

// seedFromFile decodes a JSON array of field maps and creates one document per
// element. It stops at the first store failure so a partial import is visible
// in the returned count.
func seedFromFile(cmd *cobra.Command, store record.Store, collection, path string) (int, error) {
	if collection != record.CollectionProjects && collection != record.CollectionPeople {
		return 0, fmt.Errorf("unknown collection %q", collection)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading seed file %s: %w", path, err)
	}

	var rows []record.Fields
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("parsing seed file %s: expected a JSON array of objects: %w", path, err)
	}

	for i, fields := range rows {
		if _, err := store.Create(cmd.Context(), collection, fields); err != nil {
			return i, fmt.Errorf("creating record %d: %w", i, err)
		}
	}
	return len(rows), nil
}
