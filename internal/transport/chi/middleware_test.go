package chi

import (
	"net/http"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/discovery/internal/domain"
	"github.com/kailas-cloud/discovery/internal/domain/search/result"
)

func TestWideEventMiddleware_CanonicalLine(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	s := &mockSearcher{page: result.Page{}}
	h := NewRouter(NewServer(s, healthy(), logger), nil, logger)

	do(t, h, SearchPath+"?latitude=1&longitude=2&radiusInKm=3")

	entries := logs.FilterMessage("http_request").All()
	if len(entries) != 1 {
		t.Fatalf("got %d canonical lines, want 1", len(entries))
	}
	e := entries[0]
	if e.Level != zapcore.InfoLevel {
		t.Errorf("level = %s, want info", e.Level)
	}
	fields := e.ContextMap()
	if fields["route"] != SearchPath || fields["status"] != int64(http.StatusOK) {
		t.Errorf("fields = %v", fields)
	}
	if fields["request_id"] == "" {
		t.Error("expected request_id on the canonical line")
	}
}

func TestWideEventMiddleware_Levels(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		level  zapcore.Level
	}{
		{"health", HealthPath, nil, zapcore.DebugLevel},
		{"client error", SearchPath + "?latitude=91&longitude=2&radiusInKm=3",
			domain.NewValidationError("latitude", "must be between -90 and 90"), zapcore.WarnLevel},
		{"server error", SearchPath + "?latitude=1&longitude=2&radiusInKm=3", domain.ErrIndexUnavailable, zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			logger := zap.New(core)
			h := NewRouter(NewServer(&mockSearcher{err: tt.err}, healthy(), logger), nil, logger)

			do(t, h, tt.target)

			entries := logs.FilterMessage("http_request").All()
			if len(entries) != 1 {
				t.Fatalf("got %d canonical lines, want 1", len(entries))
			}
			if entries[0].Level != tt.level {
				t.Errorf("level = %s, want %s", entries[0].Level, tt.level)
			}
		})
	}
}

func TestJSONRecoverer_ReraisesAbort(t *testing.T) {
	h := JSONRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rvr := recover(); rvr != http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
			t.Errorf("recovered %v, want http.ErrAbortHandler", rvr)
		}
	}()
	do(t, h, "/")
	t.Fatal("expected panic")
}
