package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/boq-cli/internal/importer"
	"github.com/sells-group/boq-cli/internal/review"
)

var (
	commitSession string
	commitProject string
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit the selected items of a review session as budget line items",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		session, err := review.LoadFile(commitSession)
		if err != nil {
			return eris.Wrap(err, "load session")
		}
		if commitProject != "" {
			session.ProjectID = commitProject
		}
		if session.ProjectID == "" {
			return eris.New("session has no project ID; pass --project")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		n, err := importer.Commit(ctx, st, session)
		if err != nil {
			return err
		}

		zap.L().Info("commit complete",
			zap.String("project", session.ProjectID),
			zap.Int("items", n),
		)
		return nil
	},
}

func init() {
	commitCmd.Flags().StringVar(&commitSession, "session", "session.yaml", "review session file")
	commitCmd.Flags().StringVar(&commitProject, "project", "", "project ID (overrides the session file)")
	rootCmd.AddCommand(commitCmd)
}
