package main

import (
	"github.com/ray-remotestate/foodie/database"
	"github.com/spf13/cobra"
)

var migrateDown bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := cfg.Logger()
		db, err := database.Connect(cmd.Context(), cfg.DatabaseURL, log)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(db, migrateDown); err != nil {
			return err
		}
		log.WithField("down", migrateDown).Info("migration is successful")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateDown, "down", false, "roll every migration back")
}
