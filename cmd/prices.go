package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"trippin/model"
	"trippin/pricing"
)

func pricesCmd() *cobra.Command {
	var currency string
	cmd := &cobra.Command{
		Use:   "prices",
		Short: "Print the plan catalog in one currency",
		RunE: func(cmd *cobra.Command, args []string) error {
			if currency == "" {
				currency = cfg.DefaultCurrency
			}
			return printPrices(cmd.OutOrStdout(), currency)
		},
	}
	cmd.Flags().StringVar(&currency, "currency", "", "currency code (default DEFAULT_CURRENCY)")
	return cmd
}

func printPrices(w io.Writer, currency string) error {
	plans, err := pricing.QuoteAll(model.Catalog(), strings.ToUpper(currency))
	if err != nil {
		return err
	}
	for _, p := range plans {
		if _, err := fmt.Fprintf(w, "%-3d %-10s %-8s %-10s %s\n", p.ID, p.Name, p.Duration, p.Data, p.FormattedPrice); err != nil {
			return err
		}
	}
	return nil
}
