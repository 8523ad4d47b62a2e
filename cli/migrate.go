package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blogem/content-api/database"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			db, err := database.InitializeDatabase(cfg.Database.Path, log)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			return db.Close()
		},
	}
}
