package utils

import "testing"

func TestBuildEventsListCacheKey(t *testing.T) {
	mixed := "  Lagos "
	lower := "lagos"

	if BuildEventsListCacheKey(&mixed) != BuildEventsListCacheKey(&lower) {
		t.Fatalf("search keys should be case and space insensitive")
	}
	if BuildEventsListCacheKey(nil) == BuildEventsListCacheKey(&lower) {
		t.Fatalf("unfiltered and filtered lists must not share a key")
	}
}

func TestIsUUID(t *testing.T) {
	if !IsUUID("e42b6ed3-0af3-49f0-9dcd-37aa7ed8c980") {
		t.Fatalf("expected valid uuid")
	}
	if IsUUID("not-a-uuid") {
		t.Fatalf("expected invalid uuid")
	}
}
