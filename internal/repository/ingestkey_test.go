package repository

import "testing"

// TestHashIngestKey tests that hashing is deterministic and hex encoded
func TestHashIngestKey(t *testing.T) {
	first := HashIngestKey("orc_plain")
	second := HashIngestKey("orc_plain")

	if first != second {
		t.Errorf("Expected stable hash, got '%s' and '%s'", first, second)
	}
	if len(first) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(first))
	}
	if first == HashIngestKey("orc_other") {
		t.Error("Expected different keys to hash differently")
	}
}
