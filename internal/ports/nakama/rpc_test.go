package nakama

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/heroiclabs/nakama-common/runtime"

	"fortnight/internal/app"
	"fortnight/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Debug(format string, v ...interface{}) {}
func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}
func (l nopLogger) WithField(key string, v interface{}) runtime.Logger { return l }
func (l nopLogger) WithFields(fields map[string]interface{}) runtime.Logger {
	return l
}
func (nopLogger) Fields() map[string]interface{} { return nil }

func TestToRuntimeErrorCodes(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrTurnViolation, codePermissionDenied},
		{domain.ErrSessionNotFound, codeNotFound},
		{domain.ErrPlayerNotFound, codeNotFound},
		{domain.ErrInteractionNotFound, codeNotFound},
		{domain.ErrUnknownAction, codeInvalidArgument},
		{domain.ErrNotAdjacent, codeFailedPrecondition},
		{domain.ErrImmediateRepeat, codeFailedPrecondition},
		{domain.ErrMoveRequired, codeFailedPrecondition},
		{domain.ErrAlreadyActed, codeFailedPrecondition},
		{domain.ErrWrongCell, codeFailedPrecondition},
		{domain.ErrSessionNotRunning, codeFailedPrecondition},
		{domain.ErrDeckExhausted, codeResourceExhausted},
		{domain.ErrNoResolveTokens, codeResourceExhausted},
		{domain.ErrInsufficientFunds, codeResourceExhausted},
		{domain.ErrStoreTimeout, codeUnavailable},
		{domain.ErrDuplicateTurn, codeInternal},
		{errors.New("something else"), codeInternal},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("context: %w", tc.err)
		err := toRuntimeError(nopLogger{}, "u1", wrapped)
		var rtErr *runtime.Error
		if !errors.As(err, &rtErr) {
			t.Fatalf("%v: not a runtime error: %T", tc.err, err)
		}
		if rtErr.Code != tc.code {
			t.Errorf("%v: code %d, want %d", tc.err, rtErr.Code, tc.code)
		}
	}
}

func TestCallerIDRequiresSession(t *testing.T) {
	if _, err := callerID(context.Background()); err == nil {
		t.Fatal("missing user session must fail")
	}
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, "u1")
	userID, err := callerID(ctx)
	if err != nil || userID != "u1" {
		t.Fatalf("callerID = %q, %v", userID, err)
	}
}

func TestToContentMergesPayload(t *testing.T) {
	content, err := toContent("s1", app.TurnStartedPayload{UserID: "u1", Day: 3})
	if err != nil {
		t.Fatalf("toContent: %v", err)
	}
	if content["session_id"] != "s1" {
		t.Errorf("session_id = %v", content["session_id"])
	}
	if content["user_id"] != "u1" {
		t.Errorf("user_id = %v", content["user_id"])
	}
	// JSON round-trip turns numbers into float64.
	if content["day"] != float64(3) {
		t.Errorf("day = %v", content["day"])
	}

	content, err = toContent("s1", nil)
	if err != nil || len(content) != 1 {
		t.Fatalf("nil payload content = %v, %v", content, err)
	}
}
