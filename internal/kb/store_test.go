package kb_test

import (
	"errors"
	"log/slog"
	"testing"

	"support-agent/internal/kb"
)

func TestNewStore_UnconfiguredAndInvalid(t *testing.T) {
	log := slog.New(slog.DiscardHandler)

	_, err := kb.NewStore("", "", "", nil, log)
	if !errors.Is(err, kb.ErrNotConnected) {
		t.Errorf("Expected ErrNotConnected for empty URL, got %v", err)
	}

	_, err = kb.NewStore("http://localhost:notaport", "", "", nil, log)
	if err == nil {
		t.Error("Expected error for invalid port")
	}
}
