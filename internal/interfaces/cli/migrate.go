package cli

import (
	"github.com/spf13/cobra"

	"github.com/medregula/casetrack/internal/infrastructure/database/postgres"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
)

func newMigrateCmd(opts *RootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}

			log, err := logging.NewLogger(cfg.Log)
			if err != nil {
				return err
			}

			conn, err := postgres.NewConnection(cfg.Database, log)
			if err != nil {
				return err
			}
			defer conn.Close()

			if dir == "" {
				dir = cfg.Database.MigrationsDir
			}
			return conn.RunMigrations(dir)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "migrations directory (default: database.migrations_dir)")
	return cmd
}
