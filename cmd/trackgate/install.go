package main

import (
	"github.com/spf13/cobra"

	"github.com/yanizio/trackgate/internal/config"
)

func newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install",
		Short: "Create the site_disable table (safe to re-run)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg := config.Get()

			db, err := openDB(ctx, cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			store, _ := newStore(db, cfg)
			if err := store.Install(ctx); err != nil {
				return err
			}
			cmd.Println("site_disable ready")
			return nil
		},
	}
}
