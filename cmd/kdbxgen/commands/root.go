// Package commands registers kdbxgen's cobra subcommands, the way the
// teacher's cmd/headers/commands package registers download/etc.
// subcommands onto a shared rootCmd.
package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kdbxgen",
	Short: "generate KDBX fixture databases for tests and property checks",
}

// Execute runs the root command; main.go's sole job is to call this.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
