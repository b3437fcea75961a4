package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"daleel/internal/checkout"
	"daleel/internal/logger"
	"daleel/pkg/models"
)

var taxCmd = &cobra.Command{
	Use:   "tax",
	Short: "Start the tax payment for one quarter",
	Long: `Show the service-fee notice for a quarter's tax payment.

The tax amount stays hidden until the flat 5% service fee is accepted. With
--agree the fee is accepted and the payment intent (tax, revenue, service fee
and total) is printed as JSON for the checkout page.`,
	Example: `  daleel tax --business 42 --name "Nile Traders" --quarter Q3
  daleel tax --business 42 --name "Nile Traders" --quarter Q3 --agree`,
	RunE: runTax,
}

func init() {
	rootCmd.AddCommand(taxCmd)

	addBusinessFlags(taxCmd)
	taxCmd.Flags().StringP("quarter", "q", "", "Quarter to pay (1-4 or Q1-Q4, required)")
	taxCmd.Flags().Bool("agree", false, "Accept the service fee and hand off to checkout")
	taxCmd.Flags().Duration("timeout", 0, "Give up after this long (default: no limit)")
	_ = taxCmd.MarkFlagRequired("quarter")
}

func runTax(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("tax-cmd")

	quarterFlag, _ := cmd.Flags().GetString("quarter")
	agree, _ := cmd.Flags().GetBool("agree")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	quarter, err := models.ParseQuarter(quarterFlag)
	if err != nil {
		return err
	}

	ctx, cancel := createContext(timeout, log)
	defer cancel()

	out := cmd.OutOrStdout()
	view, err := mountLedger(ctx, cmd, checkout.NewJSONWriter(out))
	if err != nil {
		return err
	}
	defer view.Unmount()

	if _, err := waitLoaded(ctx, view); err != nil {
		return err
	}
	if err := view.RequestTaxDisclosure(quarter); err != nil {
		return err
	}

	state, _ := view.Snapshot()
	if !agree {
		renderDisclosure(out, state)
		fmt.Fprintln(out, "Run again with --agree to accept the fee and continue to checkout.")
		return view.CancelDisclosure()
	}

	if !view.Agree() {
		return fmt.Errorf("could not hand off %s to checkout", quarter)
	}
	return nil
}
