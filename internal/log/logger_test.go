package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Format: "json", Output: &buf, Component: ComponentApp})

	logger.Info("root")
	logger.WithComponent(ComponentLedger).Info("child")

	recs := decodeLines(t, &buf)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	if recs[0][FieldComponent] != ComponentApp {
		t.Errorf("root component = %v", recs[0][FieldComponent])
	}
	if recs[1][FieldComponent] != ComponentLedger {
		t.Errorf("child component = %v", recs[1][FieldComponent])
	}
}

func TestRequestLoggerLevelsAndContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf})

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Get("/ok", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Debug("inside handler")
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	for _, path := range []string{"/ok", "/missing"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	recs := decodeLines(t, &buf)
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3: %s", len(recs), buf.String())
	}
	if recs[0]["msg"] != "inside handler" || recs[0][FieldRequestID] == "" {
		t.Errorf("handler record = %v", recs[0])
	}
	if recs[1]["level"] != "INFO" || recs[1][FieldStatusCode] != float64(200) {
		t.Errorf("ok record = %v", recs[1])
	}
	if recs[2]["level"] != "WARN" || recs[2][FieldStatusCode] != float64(404) {
		t.Errorf("missing record = %v", recs[2])
	}
	if recs[2][FieldComponent] != ComponentHTTP {
		t.Errorf("component = %v", recs[2][FieldComponent])
	}
}

func TestFromContextDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if FromContext(req.Context()).Component() != "unknown" {
		t.Error("expected fallback logger")
	}
}
