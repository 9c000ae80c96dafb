package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/soilledger/soilmap/internal/db"
)

// DBHandler handles the SQL endpoints over the in-memory mirror.
type DBHandler struct {
	mirror *db.Mirror
}

// NewDBHandler creates a new database handler. mirror may be nil.
func NewDBHandler(mirror *db.Mirror) *DBHandler {
	return &DBHandler{mirror: mirror}
}

// RegisterRoutes registers database routes with Huma.
func (h *DBHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/tables", h.ListTables, huma.OperationTags("query"))
	huma.Post(api, "/api/v1/query", h.Query, huma.OperationTags("query"))
}

// TablesOutput is the response for listing tables.
type TablesOutput struct {
	Body struct {
		Tables []string `json:"tables" doc:"List of table names"`
	}
}

// ListTables returns all DuckDB tables.
func (h *DBHandler) ListTables(ctx context.Context, input *struct{}) (*TablesOutput, error) {
	if h.mirror == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	tables, err := db.Tables(ctx, h.mirror.DB())
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list tables", err)
	}

	out := &TablesOutput{}
	out.Body.Tables = tables
	return out, nil
}

// QueryInput is the input for SQL queries.
type QueryInput struct {
	Body struct {
		Query string `json:"query" required:"true" minLength:"1" doc:"SQL query to execute" example:"SELECT kind, area_acres FROM shapes"`
	}
}

// QueryOutput is the response for SQL queries.
type QueryOutput struct {
	Body *db.Result
}

// Query executes a SQL query against the mirror.
func (h *DBHandler) Query(ctx context.Context, input *QueryInput) (*QueryOutput, error) {
	if h.mirror == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	res, err := db.Query(ctx, h.mirror.DB(), input.Body.Query)
	if err != nil {
		return nil, huma.Error400BadRequest("Query failed: " + err.Error())
	}
	return &QueryOutput{Body: res}, nil
}
