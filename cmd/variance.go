package main

import (
	"encoding/json"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/boq-cli/internal/variance"
)

var (
	varianceProject string
	varianceJSON    bool
)

var varianceCmd = &cobra.Command{
	Use:   "variance",
	Short: "Report quoted-versus-actual spend for a project",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		items, err := st.ListBudgetItems(ctx, varianceProject)
		if err != nil {
			return eris.Wrap(err, "list budget items")
		}
		expenses, err := st.ListExpenses(ctx, varianceProject)
		if err != nil {
			return eris.Wrap(err, "list expenses")
		}

		report := variance.Compute(items, expenses)

		if varianceJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		return printReport(report)
	},
}

// printReport renders the report as an aligned table with grouped number
// formatting.
func printReport(report variance.Report) error {
	p := message.NewPrinter(language.English)
	money := func(d decimal.Decimal) string {
		return p.Sprintf("%.2f", d.InexactFloat64())
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	p.Fprintln(w, "DESCRIPTION\tUNIT\tQUOTED\tACTUAL\tVARIANCE\tUSAGE")
	for _, iv := range report.Items {
		p.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s%%\n",
			iv.Item.Description, iv.Item.Unit,
			money(iv.QuotedAmount), money(iv.ActualAmount), money(iv.Variance),
			iv.UsagePercent.Round(1),
		)
	}
	p.Fprintf(w, "TOTAL\t\t%s\t%s\t%s\t\n",
		money(report.TotalQuoted), money(report.TotalActual), money(report.TotalVariance),
	)
	return w.Flush()
}

func init() {
	varianceCmd.Flags().StringVar(&varianceProject, "project", "", "project ID (required)")
	varianceCmd.Flags().BoolVar(&varianceJSON, "json", false, "emit the full report as JSON")
	_ = varianceCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(varianceCmd)
}
