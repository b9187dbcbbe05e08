package identity

import (
	"context"
	"testing"
)

func TestIdentityContext(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("empty context should carry no identity")
	}
	ctx := WithIdentity(context.Background(), Identity{UserID: "u_1", IsAdmin: true})
	id, ok := FromContext(ctx)
	if !ok || id.UserID != "u_1" || !id.IsAdmin {
		t.Fatalf("unexpected identity %+v (ok=%v)", id, ok)
	}
	if _, ok := FromContext(WithIdentity(context.Background(), Identity{})); ok {
		t.Fatal("identity without user id should not count")
	}
}
