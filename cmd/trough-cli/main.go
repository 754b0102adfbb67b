// Package main implements trough-cli, an interactive shell for running
// SQL against one or more segments. It is a supplemental client, not
// part of the coordination protocol: it talks to trough-sync-master for
// segment discovery and writer provisioning, and directly to whichever
// trough-sync-local agent holds a readable or writable copy to run
// queries.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	masterAddr string
	writable   bool
	schemaID   string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "trough-cli: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "trough-cli [segments...]",
	Short: "Interactive shell for trough segments",
	Long: `trough-cli connects to one or more trough segments and opens an
interactive shell for running read-only queries, or writes when
started with --writable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := NewClient(masterAddr)
		repl := NewRepl(client, args, writable, schemaID)
		return repl.Run(context.Background(), os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&masterAddr, "master", "m", "http://localhost:8080", "trough-sync-master base URL")
	rootCmd.PersistentFlags().BoolVarP(&writable, "writable", "w", false, "allow executing write statements")
	rootCmd.PersistentFlags().StringVarP(&schemaID, "schema", "s", "default", "schema id for the session; provisioning requests do not carry it, and trough-sync-local applies its own built-in schema to a new segment")
}
