package main

import (
	"encoding/json"
	"fmt"
	"os"

	"order-portal/config"
	"order-portal/internal/app"
	"order-portal/internal/util"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "portalctl",
		Short:         "Command line client for the order portal",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(cancelCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadPortal wires the services from the environment. Only warnings are
// logged unless LOG_LEVEL asks for more, so command output stays readable.
func loadPortal() (*app.Portal, error) {
	cfg := config.Load()
	level := cfg.Server.LogLevel
	if level == "" {
		level = "warn"
	}
	if err := util.InitLogger(util.LogOptions{Env: cfg.Server.Env, Level: level, Component: "cli"}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return app.New(cfg), nil
}

func wantJSON(cmd *cobra.Command) bool {
	asJSON, _ := cmd.Flags().GetBool("json")
	return asJSON
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
