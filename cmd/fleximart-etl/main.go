//-------------------------------------------------------------------------
//
// FlexiMart ETL
//
// Portions copyright (c) 2025 - 2026, pgEdge, Inc.
// This software is released under The PostgreSQL License
//
//-------------------------------------------------------------------------

// fleximart-etl cleans the FlexiMart raw exports and loads them into a
// relational database.
package main

import (
	"fmt"
	"os"

	"github.com/fleximart/fleximart-etl/internal/cli"

	// Register destination backends
	_ "github.com/fleximart/fleximart-etl/internal/store/memstore"
	_ "github.com/fleximart/fleximart-etl/internal/store/pgstore"
	_ "github.com/fleximart/fleximart-etl/internal/store/sqlstore"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
