package models

import (
	"context"
	"errors"
	"testing"

	"github.com/seaharvest/lobsterstock_backend/utils"
)

// sessionContext builds a context exactly the way the session middleware
// does: token plus resolved username, nothing else.
func sessionContext(token string, username string) context.Context {
	ctx := utils.SetTokenInContext(context.Background(), token)
	return utils.SetUsernameInContext(ctx, username)
}

func TestChangePasswordRequiresSession(t *testing.T) {
	if _, err := ChangePassword(context.Background(), "old", "new"); err == nil {
		t.Fatal("expected an error without a session")
	}
}

func TestChangePasswordResolvesUserFromSessionUsername(t *testing.T) {
	// The identity gate must pass on a session-shaped context alone. With no
	// database connected the next failure is the unavailable procedure, never
	// a missing identity.
	ctx := sessionContext("abc123", "stockAdmin")
	_, err := ChangePassword(ctx, "old", "new")
	if !errors.Is(err, utils.ErrProcedureUnavailable) {
		t.Fatalf("err = %v, want %v", err, utils.ErrProcedureUnavailable)
	}
}
