package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tabletalk/tabletalk/pkg/infrastructure/metrics"
	"github.com/tabletalk/tabletalk/pkg/models"
)

// DefaultSchemaTTL is the schema-context cache lifetime applied when a
// request does not carry its own.
const DefaultSchemaTTL = 24 * time.Hour

// Pipeline sequences schema-context retrieval, sanitization, execution,
// and result formatting into a single request lifecycle. Every stage is
// a total function over the pipeline state: failures are accumulated,
// never raised, and the terminal state is always reached.
type Pipeline struct {
	schema    SchemaProvider
	executor  QueryExecutor
	sanitizer *SQLSanitizer
	logger    zerolog.Logger
	metrics   metrics.Collector
	schemaTTL time.Duration
}

// NewPipeline creates a pipeline over the given collaborators.
func NewPipeline(
	schema SchemaProvider,
	executor QueryExecutor,
	logger zerolog.Logger,
	collector metrics.Collector,
) *Pipeline {
	return &Pipeline{
		schema:    schema,
		executor:  executor,
		sanitizer: NewSQLSanitizer(),
		logger:    logger,
		metrics:   collector,
		schemaTTL: DefaultSchemaTTL,
	}
}

// Process runs the four stages in fixed sequence over a fresh state.
func (p *Pipeline) Process(ctx context.Context, req models.PipelineRequest) *models.PipelineState {
	timer := p.metrics.StartTimer("pipeline_duration_seconds")
	defer timer.Stop()

	state := &models.PipelineState{
		Question:  req.Question,
		RawSQL:    req.RawSQL,
		StartedAt: time.Now(),
	}

	p.runStage(state, "schema_context", func() { p.stageSchemaContext(ctx, req, state) })
	p.runStage(state, "sanitize", func() { p.stageSanitize(req, state) })
	p.runStage(state, "execute", func() { p.stageExecute(ctx, req, state) })
	p.runStage(state, "format", func() { p.stageFormat(state) })

	state.FinishedAt = time.Now()
	return state
}

// runStage isolates one stage: a panic inside it becomes an accumulated
// error and the sequence continues.
func (p *Pipeline) runStage(state *models.PipelineState, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Str("stage", name).Interface("panic", r).Msg("Pipeline stage panicked")
			p.metrics.IncrementCounter("pipeline_stage_panics_total", "stage", name)
			state.AddError(fmt.Sprintf("%s stage failed: %v", name, r))
		}
	}()
	fn()
}

func (p *Pipeline) stageSchemaContext(ctx context.Context, req models.PipelineRequest, state *models.PipelineState) {
	var (
		contextText string
		err         error
	)
	if req.RefreshSchema {
		contextText, err = p.schema.RefreshSchemaCache(ctx)
	} else {
		ttl := req.SchemaTTL
		if ttl == 0 {
			ttl = p.schemaTTL
		}
		contextText, err = p.schema.GetSchemaContext(ctx, ttl)
	}
	if err != nil {
		p.logger.Warn().Err(err).Msg("Schema context unavailable")
		p.metrics.IncrementCounter("pipeline_schema_errors_total")
		state.AddError(fmt.Sprintf("schema context unavailable: %v", err))
		return
	}
	state.SchemaContext = contextText
}

func (p *Pipeline) stageSanitize(req models.PipelineRequest, state *models.PipelineState) {
	// Renderer-origin statements are trusted by construction and skip
	// the denylist; only generator-origin text is gated.
	if req.Trusted != "" {
		state.SanitizedSQL = models.SanitizedSQL(req.Trusted)
		return
	}
	if req.RawSQL == "" {
		return
	}

	sanitized := p.sanitizer.Sanitize(req.RawSQL)
	if sanitized == "" {
		p.metrics.IncrementCounter("sanitizer_rejections_total")
		state.AddError("statement rejected: contains a denylisted keyword or no executable SQL")
		return
	}
	if HasWarning(sanitized) {
		p.metrics.IncrementCounter("sanitizer_warnings_total")
		state.AddError("unsupported pattern: nested aggregate over subquery")
	}
	state.SanitizedSQL = sanitized
}

func (p *Pipeline) stageExecute(ctx context.Context, req models.PipelineRequest, state *models.PipelineState) {
	if req.ExplainOnly {
		p.logger.Debug().Msg("Execution skipped: explain-only request")
		return
	}
	if state.SanitizedSQL == "" {
		return
	}

	timer := p.metrics.StartTimer("pipeline_execute_seconds")
	rows, err := p.executor.ExecuteSQLQuery(ctx, string(state.SanitizedSQL))
	timer.Stop()
	if err != nil {
		p.logger.Error().Err(err).Str("sql", string(state.SanitizedSQL)).Msg("Execution failed")
		p.metrics.IncrementCounter("pipeline_execution_errors_total")
		state.AddError(fmt.Sprintf("execution failed: %v", err))
		return
	}
	state.Rows = rows
	state.Executed = true
	p.metrics.IncrementCounter("pipeline_executions_total")
}

func (p *Pipeline) stageFormat(state *models.PipelineState) {
	state.Preview = FormatRowSet(state.Rows)
}
