package commands

import (
	"context"
	"fmt"

	"github.com/maltedev/product-options-crawler/internal/brands"
	"github.com/maltedev/product-options-crawler/internal/filetx"
	"github.com/spf13/cobra"
)

var brandsCmd = &cobra.Command{
	Use:   "brands-sql",
	Short: "Render brand_data.json as an INSERT batch",
	RunE:  runBrands,
}

func init() {
	rootCmd.AddCommand(brandsCmd)
}

func runBrands(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	src := a.path(a.cfg.Output.BrandsFile)
	dst := a.path(a.cfg.Output.BrandSQLFile)
	if src == "" || dst == "" {
		return fmt.Errorf("output.brands_file and output.brand_sql_file must be set")
	}

	lookup, err := brands.LoadFile(a.fs, src)
	if err != nil {
		return err
	}

	list := lookup.Brands()
	content, err := brands.GenerateSQL(list)
	if err != nil {
		return err
	}

	res := a.txm.Run(cmd.Context(), func(_ context.Context, tx *filetx.Tx) error {
		return tx.WriteFile(dst, content)
	})
	if err := res.Err(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d brands to %s\n", len(list), dst)
	return nil
}
