package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/zerr"
)

var _ sdktrace.SpanExporter = (*JSONExporter)(nil)

// SpanRecord is the line written for each exported span.
type SpanRecord struct {
	Name       string         `json:"name"`
	TraceID    string         `json:"trace_id"`
	SpanID     string         `json:"span_id"`
	ParentID   string         `json:"parent_id,omitempty"`
	Start      time.Time      `json:"start"`
	DurationMS float64        `json:"duration_ms"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Status     string         `json:"status"`
	Error      string         `json:"error,omitempty"`
}

// JSONExporter writes finished spans to a writer as JSON lines.
type JSONExporter struct {
	mu      sync.Mutex
	enc     *json.Encoder
	stopped bool
}

// NewJSONExporter creates an exporter writing to w.
func NewJSONExporter(w io.Writer) *JSONExporter {
	return &JSONExporter{enc: json.NewEncoder(w)}
}

// ExportSpans writes one line per span. Spans exported after Shutdown are dropped.
func (e *JSONExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return nil
	}

	for _, s := range spans {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.enc.Encode(newSpanRecord(s)); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to export span"), "span", s.Name())
		}
	}
	return nil
}

// Shutdown stops the exporter.
func (e *JSONExporter) Shutdown(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	return nil
}

func newSpanRecord(s sdktrace.ReadOnlySpan) SpanRecord {
	rec := SpanRecord{
		Name:       s.Name(),
		TraceID:    s.SpanContext().TraceID().String(),
		SpanID:     s.SpanContext().SpanID().String(),
		Start:      s.StartTime(),
		DurationMS: float64(s.EndTime().Sub(s.StartTime())) / float64(time.Millisecond),
		Status:     s.Status().Code.String(),
		Error:      s.Status().Description,
	}
	if parent := s.Parent(); parent.IsValid() {
		rec.ParentID = parent.SpanID().String()
	}
	if attrs := s.Attributes(); len(attrs) > 0 {
		rec.Attributes = make(map[string]any, len(attrs))
		for _, kv := range attrs {
			rec.Attributes[string(kv.Key)] = kv.Value.AsInterface()
		}
	}
	return rec
}
