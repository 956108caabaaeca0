package types

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"timeout wrapped", fmt.Errorf("cycle: %w", ErrTimeout), "timed out"},
		{"access", ErrAccessDenied, "Access denied"},
		{"empty", ErrEmptyContent, "empty answer"},
		{"detect", fmt.Errorf("translate: %w", ErrUnableDetectLanguage), "detect the language"},
		{"mode", ErrUnidentifiedMode, "Unknown mode"},
		{"not found", &NotFoundHandlerError{State: "x"}, "configuration error"},
		{"api", fmt.Errorf("tts: %w", &APIError{Service: "speechkit", Status: 401, Message: "bad key"}), "HTTP 401: bad key"},
		{"other", errors.New("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if tt.want == "" {
				if got != "" {
					t.Errorf("UserMessage(nil) = %q, want empty", got)
				}
				return
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("UserMessage() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestNotFoundHandlerErrorAs(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", &NotFoundHandlerError{State: "voice_1"})
	var nf *NotFoundHandlerError
	if !errors.As(err, &nf) {
		t.Fatal("errors.As failed")
	}
	if nf.State != "voice_1" {
		t.Errorf("State = %q", nf.State)
	}
}
