package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"warehouse-assistant/pkg/registry"
)

var (
	registryPath  string
	registryWrite string
)

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Print, validate or export the workflow activity registry",
	Long: `Print the built-in activity registry as JSON.

Examples:
  assistant activities
  assistant activities --registry configs/activity-registry.json
  assistant activities --write configs/activity-registry.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.Default()
		if registryPath != "" {
			var err error
			if reg, err = registry.LoadRegistry(registryPath); err != nil {
				return err
			}
		}

		data, err := json.MarshalIndent(reg, "", "  ")
		if err != nil {
			return err
		}
		if registryWrite != "" {
			if err := os.WriteFile(registryWrite, append(data, '\n'), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d activities to %s\n", len(reg.Activities), registryWrite)
			return nil
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

func init() {
	activitiesCmd.Flags().StringVar(&registryPath, "registry", "", "validate and print a registry file instead of the built-in one")
	activitiesCmd.Flags().StringVar(&registryWrite, "write", "", "write the registry to this file instead of stdout")
}
