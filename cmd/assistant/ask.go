package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"warehouse-assistant/internal/app"
)

var (
	askSession string
	askUser    string
	askCatalog string
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Interpret one message and print the result as JSON",
	Long: `Interpret one message against the configured catalog and print the
interpretation result.

Examples:
  assistant ask "How many laptops do we have?"
  assistant ask --session s1 "Check stock for Bluetooth Headphones"
  assistant ask --session s1 "set it to 5"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askSession, "session", "s", "", "session id for follow-up context")
	askCmd.Flags().StringVarP(&askUser, "user", "u", "", "user id")
	askCmd.Flags().StringVar(&askCatalog, "catalog", "", "override interpreter.catalog (memory or postgres)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	if askCatalog != "" {
		cfg.Interpreter.Catalog = askCatalog
	}

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, log, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.Interpreter.Interpret(ctx, strings.Join(args, " "), askSession, askUser)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
