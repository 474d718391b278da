package app

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDroneHandler_Handle(t *testing.T) {
	ts := time.Date(2024, 6, 15, 14, 30, 45, 0, time.UTC)

	tests := []struct {
		name    string
		runID   string
		level   slog.Level
		message string
		attrs   []slog.Attr
		want    string
	}{
		{
			name:    "basic info message",
			runID:   "20240615T143045Z",
			level:   slog.LevelInfo,
			message: "scan finished",
			want:    "2024-06-15T14:30:45Z\tINFO\t20240615T143045Z\tscan finished\n",
		},
		{
			name:    "debug level",
			runID:   "20240615T143045Z",
			level:   slog.LevelDebug,
			message: "fetching page",
			want:    "2024-06-15T14:30:45Z\tDEBUG\t20240615T143045Z\tfetching page\n",
		},
		{
			name:    "with record attrs",
			runID:   "20240615T143045Z",
			level:   slog.LevelInfo,
			message: "level created",
			attrs:   []slog.Attr{slog.String("workshop_id", "123"), slog.Int("files", 2)},
			want:    "2024-06-15T14:30:45Z\tINFO\t20240615T143045Z\tlevel created\tworkshop_id=123\tfiles=2\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := &droneHandler{w: &buf, runID: tt.runID}

			r := slog.NewRecord(ts, tt.level, tt.message, 0)
			for _, a := range tt.attrs {
				r.AddAttrs(a)
			}

			if err := h.Handle(context.Background(), r); err != nil {
				t.Fatalf("Handle() error = %v", err)
			}

			if got := buf.String(); got != tt.want {
				t.Errorf("Handle() output =\n%q\nwant:\n%q", got, tt.want)
			}
		})
	}
}

func TestDroneHandler_WithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &droneHandler{w: &buf, runID: "run-1"}

	// Add pre-set attrs
	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "scanner")}).(*droneHandler)

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := slog.NewRecord(ts, slog.LevelInfo, "page", 0)
	r.AddAttrs(slog.String("order", "created"))

	if err := h2.Handle(context.Background(), r); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	got := buf.String()
	if !strings.Contains(got, "component=scanner") {
		t.Errorf("expected pre-set attr component=scanner, got: %q", got)
	}
	if !strings.Contains(got, "order=created") {
		t.Errorf("expected record attr order=created, got: %q", got)
	}
}

func TestDroneHandler_WithAttrs_doesNotMutateOriginal(t *testing.T) {
	var buf bytes.Buffer
	h := &droneHandler{w: &buf, runID: "run-1", attrs: []slog.Attr{slog.String("a", "1")}}

	h2 := h.WithAttrs([]slog.Attr{slog.String("b", "2")}).(*droneHandler)

	if len(h.attrs) != 1 {
		t.Errorf("original handler attrs modified: got %d, want 1", len(h.attrs))
	}
	if len(h2.attrs) != 2 {
		t.Errorf("new handler attrs: got %d, want 2", len(h2.attrs))
	}
}

func TestDroneHandler_Enabled(t *testing.T) {
	h := &droneHandler{}
	// All levels should be enabled
	for _, level := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		if !h.Enabled(context.Background(), level) {
			t.Errorf("Enabled(%v) = false, want true", level)
		}
	}
}

func TestNewLogger(t *testing.T) {
	dir := t.TempDir()

	logger, f, err := newLogger(dir, "test-run")
	if err != nil {
		t.Fatalf("newLogger() error = %v", err)
	}
	defer f.Close()

	if logger == nil {
		t.Fatal("newLogger() returned nil logger")
	}
	if f == nil {
		t.Fatal("newLogger() returned nil file")
	}
}
