package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fleximart/fleximart-etl/internal/etlerr"
	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/store"
)

var schemaDropExisting bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create the destination tables",
	Long: `Create the customers, products, orders, order_items and etl_runs
tables in the destination database. Tables that already exist are left
alone unless --drop-existing is given.

Example:
  fleximart-etl schema --driver mysql --user root --database fleximart
  fleximart-etl schema --driver sqlite --database data/fleximart.db --drop-existing`,
	RunE: runSchema,
}

func init() {
	addDestinationFlags(schemaCmd)
	schemaCmd.Flags().BoolVar(&schemaDropExisting, "drop-existing", false,
		"drop existing tables before creating them")
}

func runSchema(cmd *cobra.Command, args []string) error {
	applyDestinationFlags()

	// The destination is required here regardless of load.enabled.
	cfg.Load.Enabled = true
	if err := cfg.ResolveCredentials(prompter); err != nil {
		return err
	}
	if err := cfg.ValidateDestination(); err != nil {
		return err
	}

	logging.Info().
		Str("driver", cfg.Load.Driver).
		Str("database", cfg.Load.Database).
		Msg("Preparing destination schema")

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Store())
	if err != nil {
		return etlerr.Destination("open "+cfg.Load.Driver, err)
	}
	defer st.Close()

	sch, ok := st.(store.Schema)
	if !ok {
		logging.Info().
			Str("driver", cfg.Load.Driver).
			Msg("Destination has no tables to create")
		return nil
	}

	if schemaDropExisting {
		logging.Info().Msg("Dropping existing schema")
		if err := sch.DropSchema(ctx); err != nil {
			return etlerr.Destination("drop schema", err)
		}
	}

	if err := sch.CreateSchema(ctx); err != nil {
		return etlerr.Destination("create schema", err)
	}

	logging.Info().
		Str("driver", cfg.Load.Driver).
		Msg("Destination schema ready")
	return nil
}
