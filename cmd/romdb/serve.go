package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/romkit/rom/internal/api"
	"github.com/romkit/rom/internal/logging"
	"github.com/romkit/rom/pkg/rom"
	"github.com/romkit/rom/pkg/store"
)

var serveSchemas []string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the REST API over one or more namespace schemas",
	Long: `serve opens one rom.Store per --schema/--schema-file path given and
exposes save/get/query/delete/reindex for each under /v1/<namespace>,
the namespace for each store taken from its own schema file. At least
one schema is required; the top-level --schema flag alone (without any
--schema-file) serves just the namespace it declares.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logging.Init(logging.Config{Level: logLevel, Format: cfg.Logging.Format, Output: "stdout"})

		schemas := serveSchemas
		if schemaPath != "" {
			schemas = append([]string{schemaPath}, serveSchemas...)
		}
		if len(schemas) == 0 {
			return fmt.Errorf("romdb: serve requires at least one --schema")
		}

		backend, err := store.NewRedisBackend(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("romdb: connect redis: %w", err)
		}
		defer backend.Close()

		stores := make(map[string]*rom.Store, len(schemas))
		for _, path := range schemas {
			d, err := loadSchema(path)
			if err != nil {
				return err
			}
			st, err := rom.New(d, backend)
			if err != nil {
				return err
			}
			stores[d.Namespace] = st
		}

		srv := api.NewServer(cfg, stores)

		sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()

		return srv.Start(sigCtx, 10*time.Second)
	},
}

func init() {
	serveCmd.Flags().StringArrayVar(&serveSchemas, "schema-file", nil, "additional schema file to serve (repeatable); --schema also serves its namespace")
}
