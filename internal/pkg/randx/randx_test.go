package randx

import (
	"testing"

	"github.com/google/uuid"
)

func TestConnectionIDIsUniqueUUID(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id := ConnectionID()
		if _, err := uuid.Parse(id); err != nil {
			t.Fatalf("expected uuid, got %q: %v", id, err)
		}
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate connection id %q", id)
		}
		seen[id] = struct{}{}
	}
}

func TestShort(t *testing.T) {
	if got := Short("3f2a9c10-aaaa-bbbb-cccc-dddddddddddd"); got != "3f2a9c10" {
		t.Fatalf("expected first uuid block, got %q", got)
	}
	if got := Short("plain"); got != "plain" {
		t.Fatalf("expected id without dashes unchanged, got %q", got)
	}
}
