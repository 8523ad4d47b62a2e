package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blogem/content-api/database"
	"github.com/blogem/content-api/metrics"
	"github.com/blogem/content-api/repositories"
	"github.com/blogem/content-api/services"
)

type pruneOptions struct {
	days int
}

func newPruneLogsCmd(opts *rootOptions) *cobra.Command {
	prune := pruneOptions{}
	cmd := &cobra.Command{
		Use:   "prune-logs",
		Short: "Delete audit records older than the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			days := prune.days
			if !cmd.Flags().Changed("days") {
				days = cfg.Audit.RetentionDays
			}

			db, err := database.InitializeDatabase(cfg.Database.Path, log)
			if err != nil {
				return fmt.Errorf("initialize database: %w", err)
			}
			defer db.Close()

			repos := repositories.NewRepositories(db)
			retention := services.NewRetentionService(repos.Audit, metrics.New(), log)
			n, err := retention.PruneLogs(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d audit records older than %d days\n", n, days)
			return nil
		},
	}
	cmd.Flags().IntVar(&prune.days, "days", 0, "retention window in days (default from config)")
	return cmd
}
