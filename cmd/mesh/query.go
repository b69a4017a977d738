package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oxhq/mesh/internal/config"
	"github.com/oxhq/mesh/internal/sqlstore"
	"github.com/oxhq/mesh/queryparser"
	"github.com/oxhq/mesh/value"
)

func newQueryCmd() *cobra.Command {
	var shapesDir string

	cmd := &cobra.Command{
		Use:   "query <shape> <query-string>",
		Short: "Run a query-string against records of a named shape, via the sqlstore reference driver",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadShape(shapesDir, args[0])
			if err != nil {
				return err
			}
			base, err := blankModel(s)
			if err != nil {
				return fmt.Errorf("building default model: %w", err)
			}
			q, err := queryparser.Parse(args[1], base, s)
			if err != nil {
				return fmt.Errorf("parsing query string: %w", err)
			}
			qv, err := value.EmbedValue(q)
			if err != nil {
				return fmt.Errorf("embedding query: %w", err)
			}

			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			st, err := sqlstore.Open(cfg.DSN, cfg.Debug)
			if err != nil {
				return fmt.Errorf("opening store %s: %w", cfg.DSN, err)
			}

			result, found, err := st.Retrieve(cmd.Context(), qv)
			if err != nil {
				return fmt.Errorf("executing query: %w", err)
			}
			if !found {
				fmt.Fprintln(cmd.OutOrStdout(), "[]")
				return nil
			}
			out, err := sqlstore.MarshalValue(result)
			if err != nil {
				return fmt.Errorf("encoding result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&shapesDir, "shapes", ".", "directory of *.shape.json shape definitions")
	config.RegisterFlags(cmd.Flags())
	return cmd
}
