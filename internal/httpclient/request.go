package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/stablearb/internal/ratelimit"
)

// Request is the interface for building and executing HTTP requests.
type Request interface {
	Get(ctx context.Context, url string) (*Response, error)
	Post(ctx context.Context, url string) (*Response, error)
	Delete(ctx context.Context, url string) (*Response, error)

	// SetBody sets the payload; strings and byte slices are sent verbatim, anything else as JSON.
	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	// SetRawQuery sends q verbatim after any encoded params. Signed
	// endpoints need the exact byte order they signed.
	SetRawQuery(q string) Request
	SetResult(result any) Request
}

// Response wraps http.Response with the buffered body.
type Response struct {
	*http.Response
	body []byte
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

// String returns the response body as string.
func (r *Response) String() string {
	return string(r.body)
}

// IsError returns true if the status code indicates an error (>= 400).
func (r *Response) IsError() bool {
	return r.StatusCode >= 400
}

// IsSuccess returns true if the status code indicates success (< 400).
func (r *Response) IsSuccess() bool {
	return r.StatusCode < 400
}

type requestBuilder struct {
	client          *http.Client
	requestCounter  metric.Int64Counter
	requestDuration metric.Float64Histogram
	providerName    string
	tracer          trace.Tracer
	limiter         *ratelimit.Limiter
	weight          int
	baseURL         string
	headers         map[string]string
	queryParams     url.Values
	rawQuery        string
	body            any
	result          any
	errorHandler    ResponseErrorHandler
	labels          []*Label
	logRequest      bool
	logResponse     bool
}

func (r *requestBuilder) Get(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, url)
}

func (r *requestBuilder) Post(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, url)
}

func (r *requestBuilder) Delete(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodDelete, url)
}

func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if r.queryParams == nil {
		r.queryParams = make(url.Values)
	}
	r.queryParams.Set(key, value)
	return r
}

func (r *requestBuilder) SetRawQuery(q string) Request {
	r.rawQuery = q
	return r
}

func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) buildURL(path string) string {
	fullURL := path
	if r.baseURL != "" && !strings.HasPrefix(path, "http") {
		fullURL = strings.TrimSuffix(r.baseURL, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	// Encoded params are sorted by key; the raw query goes last.
	query := r.queryParams.Encode()
	if r.rawQuery != "" {
		if query != "" {
			query += "&"
		}
		query += r.rawQuery
	}
	if query == "" {
		return fullURL
	}

	separator := "?"
	if strings.Contains(fullURL, "?") {
		separator = "&"
	}
	return fullURL + separator + query
}

func (r *requestBuilder) buildBody(span trace.Span) (io.Reader, error) {
	if r.body == nil {
		return nil, nil
	}

	var payload []byte
	switch b := r.body.(type) {
	case []byte:
		payload = b
	case string:
		payload = []byte(b)
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		payload = encoded
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
	}

	if r.logRequest {
		span.AddEvent("request.body", trace.WithAttributes(
			attribute.String("http.request_body", string(payload)),
		))
	}
	return bytes.NewReader(payload), nil
}

func (r *requestBuilder) execute(ctx context.Context, method, path string) (*Response, error) {
	ctx, span := r.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.path", path),
			attribute.String("provider", r.providerName),
		),
	)
	defer span.End()

	if r.limiter != nil {
		if err := r.limiter.WaitN(ctx, r.weight); err != nil {
			r.recordError(ctx, span, err, 0)
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
	}

	bodyReader, err := r.buildBody(span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to build body")
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, r.buildURL(path), bodyReader)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create request")
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.recordError(ctx, span, err, time.Since(start))
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	elapsed := time.Since(start)
	if err != nil {
		r.recordError(ctx, span, err, elapsed)
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if r.logResponse {
		span.AddEvent("response.body", trace.WithAttributes(
			attribute.String("http.response_body", string(body)),
		))
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	response := &Response{Response: resp, body: body}

	if r.errorHandler != nil {
		if handlerErr := r.errorHandler(resp.StatusCode, body); handlerErr != nil {
			r.recordMetrics(ctx, false, elapsed)
			span.SetStatus(codes.Error, handlerErr.Error())
			return response, handlerErr
		}
	}

	if r.result != nil && len(body) > 0 && response.IsSuccess() {
		if err := json.Unmarshal(body, r.result); err != nil {
			r.recordMetrics(ctx, false, elapsed)
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to decode body")
			return response, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	r.recordMetrics(ctx, response.IsSuccess(), elapsed)
	return response, nil
}

func (r *requestBuilder) recordError(ctx context.Context, span trace.Span, err error, elapsed time.Duration) {
	span.RecordError(err)

	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}

	span.SetStatus(codes.Error, err.Error())
	r.recordMetrics(ctx, false, elapsed)
}

func (r *requestBuilder) recordMetrics(ctx context.Context, success bool, elapsed time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("provider", r.providerName),
		attribute.Bool("success", success),
	}
	for _, label := range r.labels {
		attrs = append(attrs, attribute.String(label.Key, label.Value))
	}

	r.requestCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	r.requestDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
}
