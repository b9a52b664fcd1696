package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wardenbot/warden/internal/config"
	"github.com/wardenbot/warden/internal/database"
	"github.com/wardenbot/warden/internal/log"
)

// migrateCmd applies database migrations manually. The serve command performs
// this automatically unless database.auto_migrate is disabled.
func migrateCmd() *cobra.Command {
	var downAll bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, errConfig := config.Read(cfgFile)
			if errConfig != nil {
				return errConfig
			}

			action := database.MigrateUp
			if downAll {
				action = database.MigrateDn
			}

			db := database.New(conf.Database.DSN, false, conf.Database.LogQueries)
			if errConnect := db.Connect(cmd.Context()); errConnect != nil {
				return errConnect
			}

			defer db.Close()

			if errMigrate := db.Migrate(action); errMigrate != nil {
				slog.Error("Could not migrate schema", log.ErrAttr(errMigrate))
				os.Exit(1)
			}

			slog.Info("Schema migration complete")

			return nil
		},
	}

	cmd.Flags().BoolVarP(&downAll, "down", "d", false, "Fully reverts all migrations")

	return cmd
}
