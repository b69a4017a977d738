// Command mesh is the CLI for the value/shape/query kernel: it validates
// value.json records against named shapes, expands them to their
// shape-inferred defaults, and runs query-string filters against the
// sqlstore reference driver. Grounded on the teacher's cmd/morfx cobra
// root-command-plus-subcommands layout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "mesh",
		Short: "Validate, expand, and query linked-data records against shape definitions",
	}

	root.AddCommand(newValidateCmd(), newExpandCmd(), newQueryCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
