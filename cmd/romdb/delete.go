package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a record and every index entry it owns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, backend, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer backend.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("romdb: invalid id: %w", err)
		}
		if err := st.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Println("deleted", id)
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex <id>",
	Short: "Recompute and rewrite a record's index entries from its stored fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, backend, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer backend.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("romdb: invalid id: %w", err)
		}
		if err := st.Reindex(ctx, id); err != nil {
			return err
		}
		fmt.Println("reindexed", id)
		return nil
	},
}
