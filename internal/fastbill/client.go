package fastbill

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/fastbillsync/internal/fastbill/wire"
	obslogger "github.com/smallbiznis/fastbillsync/internal/observability/logger"
	"github.com/smallbiznis/fastbillsync/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/smallbiznis/fastbillsync/internal/fastbill"

// Caller issues one request and returns the RESPONSE payload on success.
// Failures are *TransportError, *ParseError or *APIError.
type Caller interface {
	Call(ctx context.Context, req *wire.Request) (*wire.Node, error)
}

type Client struct {
	transport Transport
	log       *zap.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func NewClient(transport Transport, log *zap.Logger, m *metrics.Metrics) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		transport: transport,
		log:       log.Named("fastbill.client"),
		metrics:   m,
		tracer:    otel.Tracer(tracerName),
	}
}

func (c *Client) Call(ctx context.Context, req *wire.Request) (*wire.Node, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	service := req.Service

	ctx, span := c.tracer.Start(ctx, "fastbill "+service,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("fastbill.service", service)),
	)
	defer span.End()

	start := time.Now()
	payload, outcome, err := c.call(ctx, req)
	c.metrics.RecordRemoteCall(ctx, service, outcome, time.Since(start))
	span.SetAttributes(attribute.String("fastbill.outcome", outcome))

	log := obslogger.WithContext(ctx, c.log).With(zap.String("service", service), zap.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		log.Warn("fastbill call failed", zap.Error(err))
		return nil, err
	}
	log.Debug("fastbill call succeeded", zap.Duration("elapsed", time.Since(start)))
	return payload, nil
}

func (c *Client) call(ctx context.Context, req *wire.Request) (*wire.Node, string, error) {
	service := req.Service

	raw, err := req.Encode()
	if err != nil {
		return nil, metrics.OutcomeFailed, fmt.Errorf("encode %s: %w", service, err)
	}

	body, err := c.transport.Send(ctx, raw)
	if err != nil {
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			if transportErr.Service == "" {
				transportErr.Service = service
			}
			return nil, metrics.OutcomeTransportError, transportErr
		}
		return nil, metrics.OutcomeTransportError, &TransportError{Service: service, Err: err}
	}

	result, err := wire.Parse(body)
	if err != nil {
		return nil, metrics.OutcomeParseError, &ParseError{Service: service, Err: err}
	}
	if result.Failed() {
		return nil, metrics.OutcomeAPIError, &APIError{Service: service, Messages: result.Errors}
	}
	return result.Payload, metrics.OutcomeSuccess, nil
}
