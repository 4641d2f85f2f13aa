package api

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/romkit/rom/internal/errs"
	"github.com/romkit/rom/internal/model"
	"github.com/romkit/rom/pkg/rom"
)

// resolveStore looks the :ns path parameter up in the server's registry
// and stashes the matching *rom.Store in the Gin context for downstream
// handlers, rather than every handler re-resolving it.
func (s *Server) resolveStore(c *gin.Context) {
	ns := c.Param("ns")
	st, ok := s.stores[ns]
	if !ok {
		NotFoundError(c, "unknown namespace "+ns)
		c.Abort()
		return
	}
	c.Set("store", st)
}

func storeFrom(c *gin.Context) *rom.Store {
	return c.MustGet("store").(*rom.Store)
}

// saveRecord handles POST /v1/:ns: the body is a flat field-name ->
// JSON-value map. An "id" key (matching the descriptor's primary-key
// field) merges into an existing record; its absence inserts a new one.
func (s *Server) saveRecord(c *gin.Context) {
	st := storeFrom(c)

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		BadRequestError(c, "invalid JSON body: "+err.Error())
		return
	}

	var id int64
	if raw, ok := body[st.Descriptor.PKField]; ok {
		switch v := raw.(type) {
		case float64:
			id = int64(v)
		case string:
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				BadRequestError(c, "invalid "+st.Descriptor.PKField)
				return
			}
			id = parsed
		}
		delete(body, st.Descriptor.PKField)
	}

	fields, err := model.FieldsFromJSON(st.Descriptor, body)
	if err != nil {
		BadRequestError(c, err.Error())
		return
	}

	rec := &model.Record{ID: id, Fields: fields}
	newID, err := st.Save(c.Request.Context(), rec)
	if err != nil {
		WriteError(c, err)
		return
	}

	if id == 0 {
		CreatedResponse(c, "record saved", gin.H{"id": newID})
	} else {
		SuccessResponse(c, "record saved", gin.H{"id": newID})
	}
}

func (s *Server) getRecord(c *gin.Context) {
	st := storeFrom(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		BadRequestError(c, "invalid id")
		return
	}

	rec, found, err := st.Get(c.Request.Context(), id)
	if err != nil {
		WriteError(c, err)
		return
	}
	if !found {
		NotFoundError(c, "no such record")
		return
	}

	out, err := model.FieldsToJSON(rec.Fields)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	SuccessResponse(c, "ok", out)
}

func (s *Server) deleteRecord(c *gin.Context) {
	st := storeFrom(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		BadRequestError(c, "invalid id")
		return
	}
	if err := st.Delete(c.Request.Context(), id); err != nil {
		WriteError(c, err)
		return
	}
	SuccessResponse(c, "record deleted", nil)
}

// getByUnique handles GET /v1/:ns/by/:field?value=... (spec.md §6's
// get_by(field=value) unique lookup).
func (s *Server) getByUnique(c *gin.Context) {
	st := storeFrom(c)
	field := c.Param("field")
	spec, ok := st.Descriptor.Field(field)
	if !ok {
		WriteError(c, &errs.QueryError{Reason: "field " + field + " not declared"})
		return
	}

	raw := c.Query("value")
	val, err := model.Decode(spec.Kind, raw)
	if err != nil {
		BadRequestError(c, err.Error())
		return
	}

	rec, found, err := st.GetBy(c.Request.Context(), field, val)
	if err != nil {
		WriteError(c, err)
		return
	}
	if !found {
		NotFoundError(c, "no such record")
		return
	}
	out, err := model.FieldsToJSON(rec.Fields)
	if err != nil {
		InternalError(c, err.Error())
		return
	}
	SuccessResponse(c, "ok", out)
}

func (s *Server) reindexRecord(c *gin.Context) {
	st := storeFrom(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		BadRequestError(c, "invalid id")
		return
	}
	if err := st.Reindex(c.Request.Context(), id); err != nil {
		WriteError(c, err)
		return
	}
	SuccessResponse(c, "record reindexed", nil)
}

// queryRequest is the JSON shape POST /v1/:ns/query accepts: an ordered
// list of filter atoms assembled the same way pkg/rom.QueryBuilder
// would, plus paging/ordering options.
type queryRequest struct {
	Filters []queryFilter `json:"filters"`
	OrderBy string        `json:"order_by"`
	Offset  int64         `json:"offset"`
	Count   int64         `json:"count"`
}

type queryFilter struct {
	Kind  string   `json:"kind"` // term, or_terms, range, prefix, suffix, like, near
	Field string   `json:"field"`
	Term  string   `json:"term"`
	Terms []string `json:"terms"`
	Lo    *float64 `json:"lo"`
	Hi    *float64 `json:"hi"`

	Geo    string  `json:"geo"`
	Lon    float64 `json:"lon"`
	Lat    float64 `json:"lat"`
	Radius float64 `json:"radius"`
	Unit   string  `json:"unit"`
	Count  int     `json:"count"`
}

// runQuery handles POST /v1/:ns/query: it translates the request body
// into rom.QueryBuilder calls and returns the matching ids.
func (s *Server) runQuery(c *gin.Context) {
	st := storeFrom(c)

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestError(c, "invalid JSON body: "+err.Error())
		return
	}

	q := st.Query()
	for _, f := range req.Filters {
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
			BadRequestError(c, "unknown filter kind "+f.Kind)
			return
		}
	}

	if req.OrderBy != "" {
		field, desc := req.OrderBy, false
		if field[0] == '-' {
			field, desc = field[1:], true
		}
		q.OrderBy(field, desc)
	}
	q.Limit(req.Offset, clampCount(req.Count, 50))

	ids, err := q.All(c.Request.Context())
	if err != nil {
		WriteError(c, err)
		return
	}
	SuccessResponse(c, "ok", gin.H{"ids": ids, "count": len(ids)})
}
