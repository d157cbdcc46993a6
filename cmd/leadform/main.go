package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "leadform",
		Short: "Health plan lead form engine",
		Long: `leadform runs the multi-step health plan quote form.

It serves form sessions over HTTP, walks the form in the terminal, exposes
the form helpers as MCP tools and checks RUTs and communes from the shell.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "leadform.yaml", "path to the YAML config file")

	root.AddCommand(serveCmd(a))
	root.AddCommand(fillCmd(a))
	root.AddCommand(mcpCmd(a))
	root.AddCommand(rutCmd())
	root.AddCommand(localitiesCmd(a))
	return root
}
