// Command romdb is a CLI exercising pkg/rom end to end: it loads a
// JSON field schema, opens a Redis-backed rom.Store against it, and
// drives save/get/query/delete/reindex/lock/serve from the command
// line, grounded on the teacher's cmd/mycelicmemory Cobra tree (root
// command with persistent --config/--log-level flags, one subcommand
// file per concern).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/romkit/rom/internal/logging"
	"github.com/romkit/rom/pkg/config"
	"github.com/romkit/rom/pkg/rom"
	"github.com/romkit/rom/pkg/store"
)

var (
	// Version is set during build.
	Version = "0.1.0"

	cfgFile    string
	schemaPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:     "romdb",
	Short:   "Entity-mapping and secondary-indexing engine CLI over Redis",
	Version: Version,
	Long: `romdb drives the rom indexing engine from the command line: save and
fetch records by primary key or unique field, run filter/range/prefix/
geo queries, delete records and their index entries, and serve the same
operations over a small REST API.

A --schema file describes the record type being driven (namespace,
primary-key field, and one entry per field naming its type and, for
indexed fields, the built-in key-generator to use):

  romdb --schema user.json put '{"email":"a@b","created":100.5}'
  romdb --schema user.json get 1
  romdb --schema user.json query '{"filters":[{"kind":"range","field":"created","lo":50}]}'
  romdb --schema user.json serve`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (not read: configuration always comes from config.yaml in ., ~/.rom or /etc/rom)")
	rootCmd.PersistentFlags().StringVarP(&schemaPath, "schema", "s", "", "path to a JSON field-schema file (required for put/get/query/delete/reindex)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(putCmd, getCmd, queryCmd, deleteCmd, reindexCmd, lockCmd, serveCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load()
}

// openStore loads the schema file and opens a rom.Store bound to a live
// Redis connection, the shared setup every data-touching subcommand
// needs.
func openStore(ctx context.Context) (*rom.Store, *store.RedisBackend, error) {
	if schemaPath == "" {
		return nil, nil, fmt.Errorf("romdb: --schema is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logging.Init(logging.Config{Level: logLevel, Format: cfg.Logging.Format, Output: "stderr"})

	d, err := loadSchema(schemaPath)
	if err != nil {
		return nil, nil, err
	}
	backend, err := store.NewRedisBackend(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("romdb: connect redis: %w", err)
	}
	st, err := rom.New(d, backend)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	return st, backend, nil
}
