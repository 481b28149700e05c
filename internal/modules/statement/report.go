package statement

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// Render formats statements as a fixed-width table for logs and the CLI
// surface. Amounts are USD millions, EPS in dollars.
func Render(statements []Statement) string {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 4, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintln(w, "QUARTER\tNET SALES\tCOGS\tSG&A\tIMPAIR\tOP INC\tINTEREST\tOTHER\tM2M\tPRETAX\tTAX\tNET\tEPS\tNORM EPS\t")
	for _, s := range statements {
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.1f\t%.2f\t%.2f\t\n",
			s.QuarterKey, s.NetSales, s.CostOfSales, s.SGA, s.Impairments,
			s.OperatingIncome, s.InterestIncome, s.OtherIncome, s.Unrealized,
			s.PretaxIncome, s.TaxExpense, s.NetIncome, s.BasicEPS, s.NormalizedEPS)
	}
	w.Flush()
	return sb.String()
}
