package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxhq/mesh/internal/sqlstore"
	"github.com/oxhq/mesh/model"
)

func newExpandCmd() *cobra.Command {
	var shapesDir string
	var explain bool
	var noColor bool
	var diffContext int

	cmd := &cobra.Command{
		Use:   "expand <shape> <value.json>",
		Short: "Expand and populate a value.json record against a named shape's defaults",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadShape(shapesDir, args[0])
			if err != nil {
				return err
			}
			payload, err := readValueFile(args[1])
			if err != nil {
				return err
			}
			base, err := blankModel(s)
			if err != nil {
				return fmt.Errorf("building default model: %w", err)
			}
			populated, err := model.Populate(base, payload)
			if err != nil {
				return fmt.Errorf("populating model: %w", err)
			}

			out, err := sqlstore.MarshalValue(populated)
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}

			if !explain {
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			orig, err := sqlstore.MarshalValue(payload)
			if err != nil {
				return fmt.Errorf("encoding input: %w", err)
			}
			diff, err := unifiedDiff(string(orig), string(out), args[1], diffContext, colorEnabled(noColor))
			if err != nil {
				return fmt.Errorf("rendering diff: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), diff)
			return nil
		},
	}

	cmd.Flags().StringVar(&shapesDir, "shapes", ".", "directory of *.shape.json shape definitions")
	cmd.Flags().BoolVar(&explain, "explain", false, "show a unified diff instead of the expanded value")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable ANSI highlighting in --explain output")
	cmd.Flags().IntVar(&diffContext, "diff-context", 3, "lines of context for --explain")
	return cmd
}
