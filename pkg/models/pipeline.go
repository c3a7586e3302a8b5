package models

import (
	"time"
)

// SanitizedSQL is statement text that has passed keyword-denylist
// screening. Nothing is executed in raw form; only sanitized or trusted
// text reaches the executor.
type SanitizedSQL string

// TrustedSQL is statement text produced by the renderer from fixed
// templates. Trusted text bypasses the denylist: it never contains
// generator output.
type TrustedSQL string

// RowSet holds execution results. Columns preserves result order, which
// follows the catalog, not the request.
type RowSet struct {
	Columns []string                 `json:"columns"`
	Rows    []map[string]interface{} `json:"rows"`
}

// NumRows returns the number of rows in the set.
func (rs *RowSet) NumRows() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// PipelineRequest describes one incoming request to the orchestrator.
type PipelineRequest struct {
	Question      string        `json:"question"`
	RawSQL        string        `json:"raw_sql,omitempty"`
	Trusted       TrustedSQL    `json:"-"`
	RefreshSchema bool          `json:"refresh_schema,omitempty"`
	ExplainOnly   bool          `json:"explain_only,omitempty"`
	SchemaTTL     time.Duration `json:"schema_ttl,omitempty"`
}

// PipelineState carries one request through the stage sequence. It is
// created at request start, mutated by each stage in order, and either
// discarded after the response is returned or retained in session
// history by the host.
type PipelineState struct {
	Question      string       `json:"question"`
	RawSQL        string       `json:"raw_sql,omitempty"`
	SanitizedSQL  SanitizedSQL `json:"sanitized_sql,omitempty"`
	SchemaContext string       `json:"schema_context,omitempty"`
	Rows          *RowSet      `json:"rows,omitempty"`
	Errors        []string     `json:"errors,omitempty"`
	Preview       string       `json:"preview"`
	Executed      bool         `json:"executed"`
	StartedAt     time.Time    `json:"started_at"`
	FinishedAt    time.Time    `json:"finished_at"`
}

// AddError appends a non-fatal error message, preserving arrival order.
func (s *PipelineState) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// HasErrors reports whether any stage recorded a non-fatal error.
func (s *PipelineState) HasErrors() bool {
	return len(s.Errors) > 0
}

// RequestResult is the host-facing response assembled by the handler:
// the classified action, the statement text (rendered or sanitized),
// execution output, and the accumulated error sequence.
type RequestResult struct {
	Action       Action       `json:"action"`
	SQL          string       `json:"sql,omitempty"`
	SanitizedSQL SanitizedSQL `json:"sanitized_sql,omitempty"`
	Rows         *RowSet      `json:"rows,omitempty"`
	Preview      string       `json:"preview,omitempty"`
	Report       string       `json:"report,omitempty"`
	Errors       []string     `json:"errors,omitempty"`
	NeedsConfirm bool         `json:"needs_confirm"`
}
