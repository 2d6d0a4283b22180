package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"warehouse-assistant/internal/app"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Copy the catalog into the product search index",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Interpreter.Search = true
		if len(cfg.Database.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses is required")
		}

		ctx := context.Background()
		a, err := app.Build(ctx, cfg, log, nil)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Search.Reindex(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "indexed %d products into %s\n", n, cfg.Database.Elasticsearch.Index)
		return nil
	},
}
