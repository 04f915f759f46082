package metrics

import (
	"net/http"
	"strconv"
)

// statusCodeMetricBase prefixes the per-class status code histogram names.
const statusCodeMetricBase = "http-status-codes-"

// statusClasses is the number of buckets: index 0 holds invalid codes and
// 1..5 hold the 1xx..5xx classes.
const statusClasses = 6

// StatusCodes tracks HTTP response status codes grouped by class.
// Each class gets a histogram named http-status-codes-http-Nxx; anything
// outside 100..599 lands in http-status-codes-invalid.
type StatusCodes struct {
	byClass [statusClasses]*Histogram
}

// NewStatusCodes registers the status code histograms in r.
func NewStatusCodes(r *Registry) *StatusCodes {
	s := &StatusCodes{}
	for i := range s.byClass {
		s.byClass[i] = r.Histogram(StatusCodeMetricName(i))
	}
	return s
}

// Record files one response status code.
func (s *StatusCodes) Record(statusCode int) {
	s.byClass[classIndex(statusCode)].Update(float64(statusCode))
}

// StatusCodeMetricName names the histogram for a class index.
func StatusCodeMetricName(index int) string {
	if invalidClass(index) {
		return statusCodeMetricBase + "invalid"
	}
	return statusCodeMetricBase + "http-" + strconv.Itoa(index) + "xx"
}

// MetricNameFor names the histogram a status code is recorded in.
func MetricNameFor(statusCode int) string {
	return StatusCodeMetricName(classIndex(statusCode))
}

func classIndex(statusCode int) int {
	if statusCode < 0 {
		return 0
	}
	index := statusCode / 100
	if invalidClass(index) {
		return 0
	}
	return index
}

func invalidClass(index int) bool {
	return index < 1 || index >= statusClasses
}

// Middleware records the status code of every response served by next.
func (s *StatusCodes) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := NewStatusRecorder(w)
		next.ServeHTTP(rec, r)
		s.Record(rec.Status())
	})
}

// StatusRecorder wraps a ResponseWriter and remembers the status written.
type StatusRecorder struct {
	http.ResponseWriter
	status int
}

// NewStatusRecorder wraps w. The status defaults to 200 as net/http does.
func NewStatusRecorder(w http.ResponseWriter) *StatusRecorder {
	if rec, ok := w.(*StatusRecorder); ok {
		return rec
	}
	return &StatusRecorder{ResponseWriter: w, status: http.StatusOK}
}

// WriteHeader captures the status code.
func (r *StatusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Status returns the recorded status code.
func (r *StatusRecorder) Status() int {
	return r.status
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *StatusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
