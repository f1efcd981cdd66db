package util

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/leonunix/docsearch/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewTLSTransport(t *testing.T) {
	tr, err := NewTLSTransport(config.TLSConfig{})
	if err != nil || tr != nil {
		t.Fatalf("plain config: transport=%v err=%v, want nil/nil", tr, err)
	}

	tr, err = NewTLSTransport(config.TLSConfig{SkipVerify: true})
	if err != nil {
		t.Fatalf("skip verify: %v", err)
	}
	if tr == nil || !tr.TLSClientConfig.InsecureSkipVerify {
		t.Fatal("expected InsecureSkipVerify transport")
	}

	if _, err := NewTLSTransport(config.TLSConfig{CACert: filepath.Join(t.TempDir(), "missing.pem")}); err == nil {
		t.Fatal("expected error for missing CA file")
	}

	bad := filepath.Join(t.TempDir(), "bad.pem")
	if err := os.WriteFile(bad, []byte("not a certificate"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewTLSTransport(config.TLSConfig{CACert: bad}); err == nil {
		t.Fatal("expected error for unparsable CA file")
	}
}
