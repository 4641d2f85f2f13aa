package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// queryDoc is the same filter shape internal/api.queryRequest accepts,
// so a saved query file works unchanged against either the CLI or the
// REST API.
type queryDoc struct {
	Filters []struct {
		Kind   string   `json:"kind"`
		Field  string   `json:"field"`
		Term   string   `json:"term"`
		Terms  []string `json:"terms"`
		Lo     *float64 `json:"lo"`
		Hi     *float64 `json:"hi"`
		Geo    string   `json:"geo"`
		Lon    float64  `json:"lon"`
		Lat    float64  `json:"lat"`
		Radius float64  `json:"radius"`
		Unit   string   `json:"unit"`
		Count  int      `json:"count"`
	} `json:"filters"`
	OrderBy string `json:"order_by"`
	Offset  int64  `json:"offset"`
	Count   int64  `json:"count"`
}

var queryCmd = &cobra.Command{
	Use:   "query <json-query>",
	Short: "Run a filter/range/prefix/suffix/pattern/geo query and print matching ids",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, backend, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer backend.Close()

		var doc queryDoc
		if err := json.Unmarshal([]byte(args[0]), &doc); err != nil {
			return fmt.Errorf("romdb: invalid JSON: %w", err)
		}

		q := st.Query()
		for _, f := range doc.Filters {
			switch f.Kind {
			case "term":
				q.Filter(f.Field, f.Term)
			case "or_terms":
				q.FilterOr(f.Field, f.Terms...)
			case "range":
				q.FilterRange(f.Field, f.Lo, f.Hi)
			case "prefix":
				q.StartsWith(f.Field, f.Term)
			case "suffix":
				q.EndsWith(f.Field, f.Term)
			case "like":
				q.Like(f.Field, f.Term)
			case "near":
				q.Near(f.Geo, f.Lon, f.Lat, f.Radius, f.Unit, f.Count)
			default:
				return fmt.Errorf("romdb: unknown filter kind %q", f.Kind)
			}
		}
		if doc.OrderBy != "" {
			field, desc := doc.OrderBy, false
			if field[0] == '-' {
				field, desc = field[1:], true
			}
			q.OrderBy(field, desc)
		}
		count := doc.Count
		if count <= 0 {
			count = 50
		}
		q.Limit(doc.Offset, count)

		ids, err := q.All(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Println(id)
		}
		return nil
	},
}
