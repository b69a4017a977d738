package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oxhq/mesh/model"
	"github.com/oxhq/mesh/validate"
)

func newValidateCmd() *cobra.Command {
	var shapesDir string
	var delta bool

	cmd := &cobra.Command{
		Use:   "validate <shape> <value.json>",
		Short: "Validate a value.json record against a named shape",
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

			violations := validate.Validate(s, populated, delta)
			if len(violations) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "valid")
				return nil
			}
			for _, v := range violations {
				fmt.Fprintln(cmd.OutOrStdout(), v.String())
			}
			os.Exit(1)
			return nil
		},
	}

	cmd.Flags().StringVar(&shapesDir, "shapes", ".", "directory of *.shape.json shape definitions")
	cmd.Flags().BoolVar(&delta, "delta", false, "validate as a partial update: absent fields do not violate cardinality")
	return cmd
}
