package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"mastery/internal/adapters/metrics"
)

type requestEntry struct {
	method   string
	status   int
	duration time.Duration
}

// requestRecorder captures RecordRequest calls.
type requestRecorder struct {
	metrics.Nop
	mu      sync.Mutex
	entries []requestEntry
}

func (r *requestRecorder) RecordRequest(method string, status int, d time.Duration) {
	r.mu.Lock()
	r.entries = append(r.entries, requestEntry{method, status, d})
	r.mu.Unlock()
}

func (r *requestRecorder) all() []requestEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]requestEntry(nil), r.entries...)
}

// TestTimingMiddleware_EmitsEntry verifies that a request entry is recorded.
func TestTimingMiddleware_EmitsEntry(t *testing.T) {
	rec := &requestRecorder{}
	handler := Timing(rec, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/dashboard", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := len(rec.all()); got != 1 {
		t.Errorf("recorded = %d, want 1", got)
	}
}

// TestTimingMiddleware_SkipsStaticAndMetrics verifies excluded paths are not timed.
func TestTimingMiddleware_SkipsStaticAndMetrics(t *testing.T) {
	rec := &requestRecorder{}
	handler := Timing(rec, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/static/style.css", "/metrics"} {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest("GET", path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rr.Code)
		}
	}
	if got := len(rec.all()); got != 0 {
		t.Errorf("recorded = %d, want 0", got)
	}
}

// TestTimingMiddleware_EntryFields verifies method and status are captured.
func TestTimingMiddleware_EntryFields(t *testing.T) {
	rec := &requestRecorder{}
	handler := Timing(rec, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSeeOther)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("POST", "/enroll", nil))

	entries := rec.all()
	if len(entries) != 1 {
		t.Fatalf("recorded = %d, want 1", len(entries))
	}
	if entries[0].method != "POST" || entries[0].status != http.StatusSeeOther {
		t.Errorf("entry = %+v", entries[0])
	}
	if entries[0].duration < 0 {
		t.Errorf("duration = %v, want >= 0", entries[0].duration)
	}
}

// TestTimingMiddleware_NilRecorder verifies middleware works without a recorder.
func TestTimingMiddleware_NilRecorder(t *testing.T) {
	handler := Timing(nil, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
}

// captureLogs routes the default logger into a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

// TestTimingMiddleware_SlowThreshold verifies the configured threshold decides the warning.
func TestTimingMiddleware_SlowThreshold(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	tests := []struct {
		name string
		slow time.Duration
		want string
	}{
		{"below threshold", time.Hour, "msg=request "},
		{"at or above threshold", time.Nanosecond, "msg=slow_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLogs(t)
			Timing(nil, tt.slow)(ok).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/dashboard", nil))
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("log = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

// TestTimingMiddleware_HandlerPanic verifies that a panicking handler does not
// prevent the deferred timing logic from running.
func TestTimingMiddleware_HandlerPanic(t *testing.T) {
	rec := &requestRecorder{}
	handler := Timing(rec, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic to propagate, got nil")
		}
		if got := len(rec.all()); got != 1 {
			t.Errorf("recorded = %d, want 1 (defer must run even on panic)", got)
		}
	}()

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/panic", nil))
}

// TestTimingMiddleware_PoolNoStateLeak verifies that statusWriter pool reuse
// does not leak status codes between requests.
func TestTimingMiddleware_PoolNoStateLeak(t *testing.T) {
	rec := &requestRecorder{}

	handler500 := Timing(rec, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	handler500.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/fail", nil))

	// Implicit 200: if the pool leaked, the second entry would read 500.
	handler200 := Timing(rec, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	rr := httptest.NewRecorder()
	handler200.ServeHTTP(rr, httptest.NewRequest("GET", "/ok", nil))

	entries := rec.all()
	if len(entries) != 2 || entries[0].status != 500 || entries[1].status != 200 {
		t.Errorf("entries = %+v, want statuses 500 then 200", entries)
	}
	if rr.Code != 200 {
		t.Errorf("request 2 status = %d, want 200", rr.Code)
	}
}

// BenchmarkTimingMiddleware measures per-request overhead.
func BenchmarkTimingMiddleware(b *testing.B) {
	handler := Timing(metrics.Nop{}, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest("GET", "/bench", nil)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
	}
}

// BenchmarkTimingMiddleware_Parallel confirms no lock contention.
func BenchmarkTimingMiddleware_Parallel(b *testing.B) {
	handler := Timing(metrics.Nop{}, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			req := httptest.NewRequest("GET", "/bench", nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
		}
	})
}
