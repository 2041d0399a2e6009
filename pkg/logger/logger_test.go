package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"vidgrab/pkg/logger"
)

func TestNew(t *testing.T) {
	if _, err := logger.New(nil); err == nil {
		t.Fatal("New(nil) succeeded unexpectedly")
	}

	var buf bytes.Buffer

	log, err := logger.New(&logger.Options{Level: "debug", Format: logger.FormatJSON, Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	log.Debug("hello", slog.String("k", "v"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v: %s", err, buf.String())
	}

	if rec["msg"] != "hello" || rec["k"] != "v" {
		t.Errorf("unexpected record: %v", rec)
	}

	buf.Reset()

	log, err = logger.New(&logger.Options{Level: "bogus", Format: logger.FormatText, Writer: &buf})
	if err == nil {
		t.Error("New() with unknown level should report an error")
	}

	log.Debug("dropped")
	log.Info("kept")

	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "msg=kept") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", want: slog.LevelInfo, wantErr: true},
	}

	for _, tt := range tests {
		got, err := logger.ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}

		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
