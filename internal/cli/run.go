package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fleximart/fleximart-etl/internal/load"
	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/pipeline"
	"github.com/fleximart/fleximart-etl/pkg/version"
)

var (
	runCustomers   string
	runProducts    string
	runSales       string
	runOrders      string
	runOrderItems  string
	runLoadDB      bool
	runNoSave      bool
	runOutputDir   string
	runReportPath  string
	runDriver      string
	runHost        string
	runPort        int
	runUser        string
	runPassword    string
	runDatabase    string
	runDSN         string
	runCountryCode string
	runKeyStrategy string
	runPushgateway string
	runRunID       string
	runDryRun      bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ETL pipeline",
	Long: `Extract the raw exports, clean them, assign keys and optionally load
the result into the destination database.

Cleaned files are written to the output directory unless --no-save is
given. The destination is only written with --load-db (or load.enabled in
the config file). The destination password is taken from --password, then
FLEXIMART_DB_PASSWORD or MYSQL_PASSWORD, then an interactive prompt.

Example:
  fleximart-etl run
  fleximart-etl run --load-db --driver mysql --user root --database fleximart
  fleximart-etl run --load-db --driver postgres --dsn "postgres://etl@db/fleximart"
  fleximart-etl run --dry-run --no-save
  fleximart-etl run --orders data/orders_raw.csv --order-items data/order_items_raw.csv`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runCustomers, "customers", "",
		"raw customers CSV file")
	runCmd.Flags().StringVar(&runProducts, "products", "",
		"raw products CSV file")
	runCmd.Flags().StringVar(&runSales, "sales", "",
		"raw sales CSV file (empty to skip)")
	runCmd.Flags().StringVar(&runOrders, "orders", "",
		"raw orders CSV file (requires --order-items)")
	runCmd.Flags().StringVar(&runOrderItems, "order-items", "",
		"raw order items CSV file (requires --orders)")
	runCmd.Flags().BoolVar(&runLoadDB, "load-db", false,
		"load the cleaned data into the destination database")
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false,
		"skip writing cleaned CSV files")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "",
		"directory for cleaned CSV files")
	runCmd.Flags().StringVar(&runReportPath, "report", "",
		"data quality report file (appended)")
	addDestinationFlags(runCmd)
	runCmd.Flags().StringVar(&runCountryCode, "country-code", "",
		"phone country code (default: 91)")
	runCmd.Flags().StringVar(&runKeyStrategy, "key-strategy", "",
		"surrogate key strategy: monotonic or dense")
	runCmd.Flags().StringVar(&runPushgateway, "pushgateway-url", "",
		"Prometheus Pushgateway to push run metrics to")
	runCmd.Flags().StringVar(&runRunID, "run-id", "",
		"identifier for this run (default: random UUID)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false,
		"load into an in-memory store instead of the destination")
}

// addDestinationFlags registers the destination connection flags on cmd.
// run and schema share the same variables.
func addDestinationFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runDriver, "driver", "",
		"destination driver (mysql, postgres, sqlite)")
	cmd.Flags().StringVar(&runHost, "host", "",
		"destination host")
	cmd.Flags().IntVar(&runPort, "port", 0,
		"destination port")
	cmd.Flags().StringVar(&runUser, "user", "",
		"destination user")
	cmd.Flags().StringVar(&runPassword, "password", "",
		"destination password")
	cmd.Flags().StringVar(&runDatabase, "database", "",
		"destination database name (file path for sqlite)")
	cmd.Flags().StringVar(&runDSN, "dsn", "",
		"destination connection string, overrides host, port, user and database")
}

// applyDestinationFlags overrides the destination settings with the
// flags given on the command line.
func applyDestinationFlags() {
	if runDriver != "" {
		cfg.Load.Driver = runDriver
	}
	if runHost != "" {
		cfg.Load.Host = runHost
	}
	if runPort > 0 {
		cfg.Load.Port = runPort
	}
	if runUser != "" {
		cfg.Load.User = runUser
	}
	if runPassword != "" {
		cfg.Load.Password = runPassword
	}
	if runDatabase != "" {
		cfg.Load.Database = runDatabase
	}
	if runDSN != "" {
		cfg.Load.DSN = runDSN
	}
}

// applyRunFlags overrides config values with the flags given on the
// command line.
func applyRunFlags(cmd *cobra.Command) {
	if runCustomers != "" {
		cfg.Inputs.Customers = runCustomers
	}
	if runProducts != "" {
		cfg.Inputs.Products = runProducts
	}
	if cmd.Flags().Changed("sales") {
		cfg.Inputs.Sales = runSales
	}
	if runOrders != "" {
		cfg.Inputs.Orders = runOrders
	}
	if runOrderItems != "" {
		cfg.Inputs.OrderItems = runOrderItems
	}
	// Orders given on the command line replace the configured sales export
	// unless --sales is also given.
	if (runOrders != "" || runOrderItems != "") && !cmd.Flags().Changed("sales") {
		cfg.Inputs.Sales = ""
	}
	if cmd.Flags().Changed("load-db") {
		cfg.Load.Enabled = runLoadDB
	}
	if runNoSave {
		cfg.Output.Enabled = false
	}
	if runOutputDir != "" {
		cfg.Output.Dir = runOutputDir
	}
	if runReportPath != "" {
		cfg.Report.Path = runReportPath
	}
	applyDestinationFlags()
	if runCountryCode != "" {
		cfg.CountryCode = runCountryCode
	}
	if runKeyStrategy != "" {
		cfg.KeyStrategy = runKeyStrategy
	}
	if runPushgateway != "" {
		cfg.Metrics.PushgatewayURL = runPushgateway
	}
	if runDryRun {
		cfg.Load.Enabled = true
		cfg.Load.Driver = "memory"
		cfg.Load.DSN = ""
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	applyRunFlags(cmd)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.ResolveCredentials(prompter); err != nil {
		return err
	}
	if err := cfg.ValidateRun(); err != nil {
		return err
	}

	opts := runOptions()

	logging.Info().
		Bool("save_output", opts.OutputDir != "").
		Bool("load_db", opts.Load).
		Str("driver", opts.Store.Driver).
		Str("database", opts.Store.Database).
		Msg("ETL pipeline configuration")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logging.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	res, err := pipeline.Run(ctx, opts)
	if res != nil {
		if werr := res.Summary.WriteText(cmd.OutOrStdout()); werr != nil {
			logging.Warn().Err(werr).Msg("Failed to print summary")
		}
	}
	return err
}

// runOptions builds the pipeline options from the validated config.
func runOptions() pipeline.Options {
	strategy, _ := load.ParseStrategy(cfg.KeyStrategy)

	opts := pipeline.Options{
		RunID:          runRunID,
		Version:        version.Short(),
		CountryCode:    cfg.CountryCode,
		KeyStrategy:    strategy,
		Sources:        cfg.Sources(),
		Load:           cfg.Load.Enabled,
		Store:          cfg.Store(),
		ReportPath:     cfg.Report.Path,
		PushgatewayURL: cfg.Metrics.PushgatewayURL,
		MetricsJob:     cfg.Metrics.Job,
	}
	if cfg.Output.Enabled {
		opts.OutputDir = cfg.Output.Dir
	}
	return opts
}
