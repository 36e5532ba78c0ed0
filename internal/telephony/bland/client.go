package bland

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/acme/call-dispatch/internal/config"
	"github.com/acme/call-dispatch/internal/domain"
	apperrors "github.com/acme/call-dispatch/pkg/errors"
	"github.com/acme/call-dispatch/pkg/logger"
)

const (
	callsPath   = "/v1/calls"
	analyzePath = "/v1/calls/{call_id}/analyze"

	statusSuccess = "success"
)

// Client talks to the Bland calling API over HTTPS.
type Client struct {
	http   *resty.Client
	logger *logger.Logger
	tracer trace.Tracer
}

// NewClient builds a client authenticated with the configured API key.
func NewClient(cfg config.BlandConfig, lg *logger.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if lg == nil {
		lg = logger.Nop()
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Authorization", cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		logger: lg,
		tracer: otel.Tracer("calldispatch.bland"),
	}
}

// PlaceCall validates the request and starts a call. Unset options are
// left out of the request body.
func (c *Client) PlaceCall(ctx context.Context, req domain.CallRequest) (map[string]any, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "bland.place_call", trace.WithAttributes(
		attribute.String("phone", req.PhoneNumber),
		attribute.Bool("pathway", req.PathwayID != ""),
	))
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		Post(callsPath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return nil, &apperrors.TransportError{Op: "post " + callsPath, Err: err}
	}

	payload, err := parseCallResponse(res.StatusCode(), res.Body())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "api")
		return nil, err
	}

	if id, ok := payload["call_id"].(string); ok {
		span.SetAttributes(attribute.String("call.id", id))
	}
	return payload, nil
}

func parseCallResponse(statusCode int, body []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return nil, &apperrors.APIError{StatusCode: statusCode, Message: "failed call", Body: string(body)}
	}

	status, ok := payload["status"]
	if !ok {
		return nil, &apperrors.APIError{StatusCode: statusCode, Message: "failed call", Body: string(body)}
	}
	if status != statusSuccess {
		return nil, &apperrors.APIError{StatusCode: statusCode, Body: string(body)}
	}
	return payload, nil
}

type analyzeRequest struct {
	Goal      string                    `json:"goal"`
	Questions []domain.AnalysisQuestion `json:"questions"`
}

type analyzeResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Answers map[string]any `json:"answers"`
}

// AnalyzeCall asks the API to answer questions about a finished call.
// ok is false when the API could not produce an analysis.
func (c *Client) AnalyzeCall(ctx context.Context, callID, goal string, questions []domain.AnalysisQuestion) (domain.CallSummary, bool) {
	ctx, span := c.tracer.Start(ctx, "bland.analyze_call", trace.WithAttributes(attribute.String("call.id", callID)))
	defer span.End()

	log := c.logger.With(zap.String("call_id", callID))

	res, err := c.http.R().
		SetContext(ctx).
		SetPathParam("call_id", callID).
		SetBody(analyzeRequest{Goal: goal, Questions: questions}).
		Post(analyzePath)
	if err != nil {
		span.RecordError(err)
		log.Warn("bland: analyze request failed", zap.Error(err))
		return domain.CallSummary{}, false
	}
	if res.StatusCode() != http.StatusOK {
		log.Warn("bland: analyze returned unexpected status", zap.Int("status_code", res.StatusCode()), zap.String("body", res.String()))
		return domain.CallSummary{}, false
	}

	var parsed analyzeResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		span.RecordError(err)
		log.Warn("bland: analyze response unreadable", zap.Error(err))
		return domain.CallSummary{}, false
	}
	if parsed.Status != statusSuccess {
		log.Warn("bland: analyze failed", zap.String("status", parsed.Status), zap.String("message", parsed.Message))
		return domain.CallSummary{}, false
	}

	return domain.SummaryFromAnswers(callID, parsed.Answers), true
}

type listCallsResponse struct {
	Calls []struct {
		CallID string `json:"call_id"`
	} `json:"calls"`
}

// ListCallsInRange returns call ids in ascending order for the date window.
// Any failure yields an empty slice.
func (c *Client) ListCallsInRange(ctx context.Context, startDate, endDate string) []string {
	ctx, span := c.tracer.Start(ctx, "bland.list_calls", trace.WithAttributes(
		attribute.String("start_date", startDate),
		attribute.String("end_date", endDate),
	))
	defer span.End()

	log := c.logger.With(zap.String("start_date", startDate), zap.String("end_date", endDate))

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ascending":  "true",
			"start_date": startDate,
			"end_date":   endDate,
		}).
		Get(callsPath)
	if err != nil {
		span.RecordError(err)
		log.Warn("bland: list calls failed", zap.Error(err))
		return []string{}
	}
	if res.StatusCode() != http.StatusOK {
		log.Warn("bland: list calls returned unexpected status", zap.Int("status_code", res.StatusCode()), zap.String("body", res.String()))
		return []string{}
	}

	var parsed listCallsResponse
	if err := json.Unmarshal(res.Body(), &parsed); err != nil {
		span.RecordError(err)
		log.Warn("bland: list calls response unreadable", zap.Error(err))
		return []string{}
	}

	ids := make([]string, 0, len(parsed.Calls))
	for _, call := range parsed.Calls {
		if call.CallID == "" {
			continue
		}
		ids = append(ids, call.CallID)
	}
	span.SetAttributes(attribute.Int("calls.count", len(ids)))
	return ids
}

