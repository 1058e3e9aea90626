//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// Package cli implements the command-line interface for fleximart-etl.
package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/fleximart/fleximart-etl/internal/config"
	"github.com/fleximart/fleximart-etl/internal/etlerr"
	"github.com/fleximart/fleximart-etl/internal/logging"
	"github.com/fleximart/fleximart-etl/internal/store"
	"github.com/fleximart/fleximart-etl/pkg/version"
)

// Exit codes returned by ExitCode.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfig      = 2
	ExitSource      = 3
	ExitDestination = 4
)

var (
	// Global flags
	cfgFile  string
	envFile  string
	logLevel string

	// Global config
	cfg *config.Config

	// prompter supplies the destination password as a last resort.
	prompter config.Prompter = config.NewTerminalPrompter()

	rootCmd = &cobra.Command{
		Use:   "fleximart-etl",
		Short: "Extract, clean and load FlexiMart sales data",
		Long: `fleximart-etl reads the raw FlexiMart customer, product and sales
exports, cleans them (duplicates, missing values, phone and date formats,
category casing), assigns surrogate keys, resolves foreign keys and loads
the normalized tables into MySQL, PostgreSQL or SQLite.

Every run appends a data quality report listing rows read, dropped and
modified per entity kind.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps an error returned by Execute to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch etlerr.KindOf(err) {
	case etlerr.ConfigurationError:
		return ExitConfig
	case etlerr.SourceUnavailable:
		return ExitSource
	case etlerr.DestinationUnavailable:
		return ExitDestination
	}
	return ExitFailure
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default: ./fleximart-etl.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"file of environment variables to load if present")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(storesCmd)
}

func initConfig() error {
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}

	// Override with CLI flags
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Reinitialize logger with config
	logging.Init(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: true,
	})

	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(version.Info())
	},
}

var storesCmd = &cobra.Command{
	Use:   "stores [driver]",
	Short: "List available destination drivers",
	Long: `List the destination drivers compiled into this binary, or describe
one of them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 {
			desc, err := store.Describe(args[0])
			if err != nil {
				return etlerr.Config("%v", err)
			}
			cmd.Printf("%s - %s\n", args[0], desc)
			return nil
		}

		names := store.List()
		if len(names) == 0 {
			return errors.New("no destination drivers registered")
		}
		cmd.Println("Available destination drivers:")
		cmd.Println()
		for _, name := range names {
			desc, _ := store.Describe(name)
			cmd.Printf("  %-11s - %s\n", name, desc)
		}
		cmd.Println()
		cmd.Println("Use 'fleximart-etl run --load-db --driver <driver>' to load into one.")
		return nil
	},
}
