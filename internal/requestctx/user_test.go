package requestctx

import (
	"context"
	"testing"
)

func TestUserIDRoundTrip(t *testing.T) {
	ctx := WithUserID(context.Background(), "user-1")
	if got := UserIDFromContext(ctx); got != "user-1" {
		t.Fatalf("expected user-1, got %q", got)
	}
	if got := UserIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty user, got %q", got)
	}
}
