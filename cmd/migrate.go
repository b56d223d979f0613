package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/billbatista/acasinha-ledger/migrations"
)

// newMigrateCmd reports the schema version. Opening the app already
// applied any pending migration.
func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.app.DB == nil {
				pterm.Info.Println("The memory driver has no schema.")
				return nil
			}
			version, dirty, err := migrations.Version(c.app.DB.DB, c.cfg.Database.Driver)
			if err != nil {
				return err
			}
			if dirty {
				pterm.Warning.Printf("Schema version %d is dirty\n", version)
				return nil
			}
			pterm.Success.Printf("Schema is at version %d\n", version)
			return nil
		},
	}
}
