package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/romkit/rom/internal/model"
)

var getByField string

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Fetch a record by primary key, or by a unique field with --by",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, backend, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer backend.Close()

		var rec *model.Record
		var found bool

		if getByField != "" {
			spec, ok := st.Descriptor.Field(getByField)
			if !ok {
				return fmt.Errorf("romdb: field %q not declared", getByField)
			}
			val, err := model.Decode(spec.Kind, args[0])
			if err != nil {
				return err
			}
			rec, found, err = st.GetBy(ctx, getByField, val)
			if err != nil {
				return err
			}
		} else {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("romdb: invalid id: %w", err)
			}
			rec, found, err = st.Get(ctx, id)
			if err != nil {
				return err
			}
		}

		if !found {
			return fmt.Errorf("romdb: no such record")
		}
		out, err := model.FieldsToJSON(rec.Fields)
		if err != nil {
			return err
		}
		out[st.Descriptor.PKField] = rec.ID
		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(b))
		return nil
	},
}

func init() {
	getCmd.Flags().StringVar(&getByField, "by", "", "look up by this unique field instead of the primary key")
}
