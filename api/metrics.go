package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	requestSpanName    = "cards.request"
	requestEventName   = "cards.request.metrics"
	requestEventDomain = "cardmass.api"
	observabilityEvent = "observability.event"
	tracerName         = "cardmass/api"
)

// requestMetrics times one API request and reports it as a span plus an
// observability.event log entry.
type requestMetrics struct {
	logger *log.Logger
	span   trace.Span
	route  string
	start  time.Time

	auth   time.Duration
	store  time.Duration
	encode time.Duration

	cardsReturned int
	hasCards      bool
	errorStage    string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, route string) (*requestMetrics, context.Context) {
	if logger == nil {
		logger = log.StandardLogger()
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("http.route", route)),
	)
	return &requestMetrics{logger: logger, span: span, route: route, start: time.Now()}, ctx
}

func (m *requestMetrics) ObserveAuth(d time.Duration)   { m.auth += d }
func (m *requestMetrics) ObserveStore(d time.Duration)  { m.store += d }
func (m *requestMetrics) ObserveEncode(d time.Duration) { m.encode += d }

func (m *requestMetrics) SetCardsReturned(n int) {
	m.cardsReturned = n
	m.hasCards = true
}

func (m *requestMetrics) SetErrorStage(stage string) { m.errorStage = stage }

func millis(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// Log ends the span and emits the request event.
func (m *requestMetrics) Log(status int, err error) {
	total := time.Since(m.start)
	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.Int("http.status_code", status),
		attribute.Float64("cardmass.request.total_ms", millis(total)),
		attribute.Float64("cardmass.request.auth_ms", millis(m.auth)),
		attribute.Float64("cardmass.request.store_ms", millis(m.store)),
		attribute.Float64("cardmass.request.encode_ms", millis(m.encode)),
	}
	if m.hasCards {
		attrs = append(attrs, attribute.Int("cardmass.request.cards_returned", m.cardsReturned))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("cardmass.request.error_stage", m.errorStage))
	}

	logged := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		logged[string(kv.Key)] = kv.Value.AsInterface()
	}

	eventAttrs := append([]attribute.KeyValue{
		attribute.String("event.name", requestEventName),
		attribute.String("event.domain", requestEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	}, attrs...)
	if err != nil {
		eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
	}

	m.span.SetAttributes(attrs...)
	m.span.AddEvent(observabilityEvent, trace.WithAttributes(eventAttrs...))
	switch {
	case err != nil:
		m.span.RecordError(err)
		m.span.SetStatus(codes.Error, err.Error())
	case status >= http.StatusInternalServerError:
		m.span.SetStatus(codes.Error, http.StatusText(status))
	default:
		m.span.SetStatus(codes.Ok, "")
	}

	sc := m.span.SpanContext()
	fields := log.Fields{
		"event.name":      requestEventName,
		"event.domain":    requestEventDomain,
		"attributes":      logged,
		"severity_text":   severityText,
		"severity_number": severityNumber,
	}
	if sc.IsValid() {
		fields["trace_id"] = sc.TraceID().String()
		fields["span_id"] = sc.SpanID().String()
	}
	entry := m.logger.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	switch severityText {
	case "ERROR":
		entry.Error(observabilityEvent)
	case "WARN":
		entry.Warn(observabilityEvent)
	default:
		entry.Info(observabilityEvent)
	}
	m.span.End()
}

// severityForStatus maps a response to OpenTelemetry log severity.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	}
	return "INFO", 9
}
