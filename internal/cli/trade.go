package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"stock-advisor/internal/logging"
	"stock-advisor/internal/models"
)

func addTradingCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newBuyCmd(app))
	rootCmd.AddCommand(newSellCmd(app))
}

func newBuyCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buy <symbol> <quantity> [price]",
		Short: "Record a buy transaction",
		Long: `Record a purchase in the portfolio ledger. When the price is omitted the
current market price is fetched. Passing --rec links the transaction to a
saved recommendation and marks it executed.`,
		Example: `  advisor buy AAPL 10
  advisor buy AAPL 10 189.50 --commission 1.00
  advisor buy MSFT 5 --rec 6f1c2a...`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrade(cmd, app, models.ActionBuy, args)
		},
	}
	addTradeFlags(cmd)
	return cmd
}

func newSellCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sell <symbol> <quantity> [price]",
		Short: "Record a sell transaction",
		Long: `Record a sale in the portfolio ledger. Selling more than the held
quantity is rejected; selling the full quantity closes the position.`,
		Example: `  advisor sell AAPL 5
  advisor sell AAPL 10 195.20 --notes "taking profits"`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrade(cmd, app, models.ActionSell, args)
		},
	}
	addTradeFlags(cmd)
	return cmd
}

func addTradeFlags(cmd *cobra.Command) {
	cmd.Flags().Float64("commission", 0, "commission paid on the trade")
	cmd.Flags().String("rec", "", "recommendation id to mark executed")
	cmd.Flags().String("notes", "", "free-form notes for the transaction")
}

func runTrade(cmd *cobra.Command, app *App, action models.Action, args []string) error {
	output := NewOutput(cmd)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	symbol := strings.ToUpper(args[0])
	qty, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		output.Error("Invalid quantity: %s", args[1])
		return err
	}

	var price float64
	if len(args) == 3 {
		price, err = strconv.ParseFloat(args[2], 64)
		if err != nil {
			output.Error("Invalid price: %s", args[2])
			return err
		}
	} else {
		info, err := app.Source.SymbolInfo(ctx, symbol)
		if err != nil {
			output.Error("Could not fetch current price for %s: %v", symbol, err)
			return err
		}
		price = info.CurrentPrice
		if price <= 0 {
			output.Error("No current price available for %s; pass one explicitly", symbol)
			return fmt.Errorf("no price for %s", symbol)
		}
		output.Dim("Using market price %.2f", price)
	}

	commission, _ := cmd.Flags().GetFloat64("commission")
	recID, _ := cmd.Flags().GetString("rec")
	notes, _ := cmd.Flags().GetString("notes")

	var txn *models.Transaction
	if action == models.ActionBuy {
		txn, err = app.Ledger.Buy(ctx, symbol, qty, price, commission, recID, notes)
	} else {
		txn, err = app.Ledger.Sell(ctx, symbol, qty, price, commission, recID, notes)
	}
	if err != nil {
		output.Error("Transaction failed: %v", err)
		return err
	}

	logging.LogTransaction(app.Logger, symbol, string(action), qty, price)

	if output.IsJSON() {
		return output.JSON(txn)
	}

	output.Success("%s %.2f %s @ %.2f (total %.2f)", action, qty, symbol, price, txn.TotalCost)
	output.Dim("  transaction id: %s", txn.ID)
	output.Dim("  cash balance:   %.2f", app.Ledger.CashBalance())
	if recID != "" {
		output.Dim("  recommendation %s marked executed", recID)
	}
	return nil
}
