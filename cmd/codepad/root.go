package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "codepad",
	Short: "Code playground backed by the Piston execution API",
	Long: `codepad - pick a language, write code, run it remotely.

Languages come from the Piston runtimes endpoint and runs go to its
execute endpoint. Use "serve" for the browser playground, "mcp" to expose
the same operations as MCP tools, or "repl" for a terminal session.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: ./config.yaml, overridable with CODEPAD_* env vars)")
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Root().PersistentFlags().GetString("config")
	return path
}
