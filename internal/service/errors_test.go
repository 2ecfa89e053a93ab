package service

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Field: "title", Message: "cannot be empty"}
	if got, want := err.Error(), "validation error on field title: cannot be empty"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	// Survives wrapping.
	var target *ValidationError
	if !errors.As(fmt.Errorf("upload: %w", err), &target) || target.Field != "title" {
		t.Error("errors.As should find a wrapped ValidationError")
	}
}

func TestWrapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		msg     string
		wantMsg string
	}{
		{name: "nil error", err: nil, msg: "context"},
		{name: "wrapped error", err: ErrNotFound, msg: "failed to get document", wantMsg: "failed to get document: not found"},
		{name: "empty message", err: errors.New("boom"), msg: "", wantMsg: ": boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapError(tt.err, tt.msg)
			if tt.err == nil {
				if got != nil {
					t.Errorf("WrapError() = %v, want nil", got)
				}
				return
			}
			if got == nil || got.Error() != tt.wantMsg {
				t.Fatalf("WrapError() = %v, want %q", got, tt.wantMsg)
			}
			if !errors.Is(got, tt.err) {
				t.Error("WrapError() should wrap original error")
			}
		})
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", []string{}},
		{"a,b", []string{"a", "b"}},
		{" a , ,b, ", []string{"a", "b"}},
	}
	for _, tt := range tests {
		got := parseTags(tt.raw)
		if len(got) != len(tt.want) {
			t.Errorf("parseTags(%q) = %v, want %v", tt.raw, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("parseTags(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		}
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("Grass is green.", "What color is grass?")
	for _, want := range []string{"Grass is green.", "What color is grass?", NotInDocument} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
