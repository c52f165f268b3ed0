package main

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/boq-cli/internal/model"
)

var parseConcurrency int

var parseCmd = &cobra.Command{
	Use:   "parse <file>...",
	Short: "Parse BOQ documents and print extracted line items as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ing, err := newIngestor(nil)
		if err != nil {
			return eris.Wrap(err, "init parser")
		}

		results := make(map[string]model.ParseResult, len(args))
		var mu sync.Mutex

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(parseConcurrency)
		for _, path := range args {
			g.Go(func() error {
				result, err := ing.parseFile(gctx, path)
				if err != nil {
					return err
				}
				zap.L().Info("parsed document",
					zap.String("file", path),
					zap.Int("items", result.TotalItems),
					zap.Int("flagged", result.FlaggedItems),
					zap.Strings("errors", result.Errors),
				)
				mu.Lock()
				results[path] = result
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if len(args) == 1 {
			return enc.Encode(results[args[0]])
		}
		return enc.Encode(results)
	},
}

func init() {
	parseCmd.Flags().IntVar(&parseConcurrency, "concurrency", 4, "max documents parsed in parallel")
	rootCmd.AddCommand(parseCmd)
}
