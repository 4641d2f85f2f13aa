package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/romkit/rom/internal/entitylock"
)

var lockTTL time.Duration

var lockCmd = &cobra.Command{
	Use:   "lock <id>",
	Short: "Acquire the optional entity lock for a record and hold it until Enter is pressed",
	Long: `lock acquires the named entity lock for the given record id (spec.md
§5's optional mutual-exclusion primitive, for callers that need to
serialize several writes across one record rather than relying on the
writer's single-write race check) and releases it once a line (Enter)
is read from standard input.`,
	Args: cobra.ExactArgs(1),
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

		locker := entitylock.New(backend)
		lk, ok, err := locker.TryLock(ctx, st.Descriptor.Namespace, id, lockTTL)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("romdb: lock held by another caller")
		}
		defer locker.Unlock(ctx, lk)

		fmt.Printf("locked %s:%d for %s, press enter to release\n", st.Descriptor.Namespace, id, lockTTL)
		fmt.Scanln()
		return nil
	},
}

func init() {
	lockCmd.Flags().DurationVar(&lockTTL, "ttl", 30*time.Second, "lock hold duration")
}
