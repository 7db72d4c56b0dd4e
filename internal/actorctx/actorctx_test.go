package actorctx

import (
	"context"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	if _, ok := UserIDFrom(context.Background()); ok {
		t.Fatalf("expected no user on a bare context")
	}

	ctx := WithUserID(context.Background(), "u-1")
	id, ok := UserIDFrom(ctx)
	if !ok || id != "u-1" {
		t.Fatalf("got (%q, %v), want (u-1, true)", id, ok)
	}

	if _, ok := UserIDFrom(WithUserID(context.Background(), "")); ok {
		t.Fatalf("empty user id should not count as present")
	}
}
