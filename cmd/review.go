package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/boq-cli/internal/review"
)

var (
	reviewProject string
	reviewOut     string
)

var reviewCmd = &cobra.Command{
	Use:   "review <file>",
	Short: "Parse a BOQ document and stage it as an editable review session",
	Long:  "Parses the document and writes a YAML session file with every item selected. Edit the file (selection, quantities, stage assignment), then pass it to `boq-cli commit`.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		ing, err := newIngestor(nil)
		if err != nil {
			return eris.Wrap(err, "init parser")
		}

		result, err := ing.parseFile(ctx, args[0])
		if err != nil {
			return err
		}

		session := review.NewSession(reviewProject, result)
		if err := review.SaveFile(reviewOut, session); err != nil {
			return eris.Wrap(err, "write session")
		}

		zap.L().Info("review session staged",
			zap.String("file", args[0]),
			zap.String("session", reviewOut),
			zap.Int("items", len(session.Items)),
			zap.Int("flagged", session.FlaggedCount()),
			zap.String("selected_total", session.SelectedTotal().String()),
		)
		return nil
	},
}

func init() {
	reviewCmd.Flags().StringVar(&reviewProject, "project", "", "project ID (required)")
	reviewCmd.Flags().StringVar(&reviewOut, "out", "session.yaml", "session file path")
	_ = reviewCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(reviewCmd)
}
