// Package handlers translates classified requests into pipeline runs
// and assembles host-facing results.
package handlers

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	pkgerrors "github.com/tabletalk/tabletalk/pkg/errors"
	"github.com/tabletalk/tabletalk/pkg/infrastructure/metrics"
	"github.com/tabletalk/tabletalk/pkg/models"
	"github.com/tabletalk/tabletalk/pkg/services"
)

// HandleRequest is one question or raw statement submitted by the host,
// together with its gate decisions.
type HandleRequest struct {
	Question      string
	RawSQL        string
	SessionID     string
	Confirmed     bool
	ExplainOnly   bool
	RefreshSchema bool
}

// RequestHandler classifies a request, renders or dispatches it, applies
// the risk gate, and runs the pipeline. It owns no state beyond its
// collaborators; session history lives in the session store.
type RequestHandler struct {
	classifier *services.IntentClassifier
	renderer   *services.SQLRenderer
	reporter   services.Reporter
	pipeline   *services.Pipeline
	sessions   *services.SessionStore
	logger     zerolog.Logger
	metrics    metrics.Collector

	// confirmRisk is the lowest risk level that requires an explicit
	// confirmation before execution.
	confirmRisk models.RiskLevel
}

// NewRequestHandler creates a request handler.
func NewRequestHandler(
	classifier *services.IntentClassifier,
	renderer *services.SQLRenderer,
	reporter services.Reporter,
	pipeline *services.Pipeline,
	sessions *services.SessionStore,
	confirmRisk models.RiskLevel,
	logger zerolog.Logger,
	collector metrics.Collector,
) *RequestHandler {
	if collector == nil {
		collector = &metrics.NoOpCollector{}
	}
	return &RequestHandler{
		classifier:  classifier,
		renderer:    renderer,
		reporter:    reporter,
		pipeline:    pipeline,
		sessions:    sessions,
		logger:      logger,
		metrics:     collector,
		confirmRisk: confirmRisk,
	}
}

// Handle processes one request end to end. Raw statement text takes the
// sanitizer path; natural-language questions take the classifier path.
// The returned result always carries the accumulated error sequence; the
// error return is reserved for requests that are malformed at the edge.
func (h *RequestHandler) Handle(ctx context.Context, req HandleRequest) (*models.RequestResult, error) {
	if req.Question == "" && req.RawSQL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "request carries neither a question nor statement text")
	}

	h.metrics.IncrementCounter("requests_total")

	if req.RawSQL != "" {
		return h.handleRawSQL(ctx, req), nil
	}
	return h.handleQuestion(ctx, req), nil
}

// handleRawSQL feeds generator-origin text through the sanitizer gate
// and, if it survives, executes it.
func (h *RequestHandler) handleRawSQL(ctx context.Context, req HandleRequest) *models.RequestResult {
	h.logger.Debug().Str("session", req.SessionID).Msg("Handling raw statement")

	state := h.pipeline.Process(ctx, models.PipelineRequest{
		Question:      req.Question,
		RawSQL:        req.RawSQL,
		RefreshSchema: req.RefreshSchema,
		ExplainOnly:   req.ExplainOnly,
	})
	h.record(req.SessionID, state)

	return &models.RequestResult{
		Action:       models.Action{Kind: models.ActionConcrete, Raw: req.RawSQL, Note: "raw statement"},
		SQL:          req.RawSQL,
		SanitizedSQL: state.SanitizedSQL,
		Rows:         state.Rows,
		Preview:      state.Preview,
		Errors:       state.Errors,
	}
}

// handleQuestion classifies the question and dispatches on the action
// variant: diagnostics go to the reporter, everything else renders to a
// trusted statement and runs through the pipeline behind the risk gate.
func (h *RequestHandler) handleQuestion(ctx context.Context, req HandleRequest) *models.RequestResult {
	action := h.classifier.Classify(req.Question)
	intentLabel := action.Intent.String()
	if action.Kind != models.ActionConcrete {
		intentLabel = "none"
	}
	h.metrics.IncrementCounter("classifications_total", "intent", intentLabel)

	switch action.Kind {
	case models.ActionUnknown:
		h.logger.Debug().Str("question", req.Question).Msg("No rule matched")
		return &models.RequestResult{
			Action: action,
			Errors: []string{"request not recognized: no rule matched"},
		}
	case models.ActionClarification:
		return &models.RequestResult{Action: action}
	}

	if action.Intent.IsDiagnostic() {
		return h.handleDiagnostic(ctx, req, action)
	}

	sql, ok := h.renderer.Render(action)
	if !ok {
		return &models.RequestResult{
			Action: action,
			Errors: []string{fmt.Sprintf("no statement template for intent %q", action.Intent)},
		}
	}

	if action.Risk >= h.confirmRisk && !req.Confirmed {
		h.logger.Info().
			Str("intent", action.Intent.String()).
			Str("risk", action.Risk.String()).
			Msg("Confirmation required before execution")
		return &models.RequestResult{
			Action:       action,
			SQL:          string(sql),
			NeedsConfirm: true,
		}
	}

	state := h.pipeline.Process(ctx, models.PipelineRequest{
		Question:      req.Question,
		Trusted:       sql,
		RefreshSchema: req.RefreshSchema,
		ExplainOnly:   req.ExplainOnly,
	})
	h.record(req.SessionID, state)

	return &models.RequestResult{
		Action:       action,
		SQL:          string(sql),
		SanitizedSQL: state.SanitizedSQL,
		Rows:         state.Rows,
		Preview:      state.Preview,
		Errors:       state.Errors,
	}
}

func (h *RequestHandler) handleDiagnostic(ctx context.Context, req HandleRequest, action models.Action) *models.RequestResult {
	h.logger.Debug().Str("intent", action.Intent.String()).Msg("Running diagnostic report")
	timer := h.metrics.StartTimer("diagnostic_duration_seconds")
	defer timer.Stop()

	report, err := h.reporter.Report(ctx, action)
	result := &models.RequestResult{Action: action, Report: report}
	if err != nil {
		h.metrics.IncrementCounter("diagnostic_errors_total")
		result.Errors = append(result.Errors, fmt.Sprintf("diagnostic failed: %v", err))
	}

	if req.SessionID != "" {
		h.record(req.SessionID, &models.PipelineState{
			Question: req.Question,
			Preview:  report,
			Errors:   result.Errors,
		})
	}
	return result
}

// record appends the state to session history when a session is named.
func (h *RequestHandler) record(sessionID string, state *models.PipelineState) {
	if sessionID == "" || h.sessions == nil {
		return
	}
	h.sessions.Append(sessionID, state)
}
