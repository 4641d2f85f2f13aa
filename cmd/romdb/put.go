package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/romkit/rom/internal/model"
)

var putCmd = &cobra.Command{
	Use:   "put <json-fields>",
	Short: "Save a record (insert if it has no id field, update otherwise)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, backend, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer backend.Close()

		var body map[string]any
		if err := json.Unmarshal([]byte(args[0]), &body); err != nil {
			return fmt.Errorf("romdb: invalid JSON: %w", err)
		}

		var id int64
		if raw, ok := body[st.Descriptor.PKField]; ok {
			if f, ok := raw.(float64); ok {
				id = int64(f)
			}
			delete(body, st.Descriptor.PKField)
		}

		fields, err := model.FieldsFromJSON(st.Descriptor, body)
		if err != nil {
			return err
		}

		newID, err := st.Save(ctx, &model.Record{ID: id, Fields: fields})
		if err != nil {
			return err
		}
		fmt.Println(newID)
		return nil
	},
}
