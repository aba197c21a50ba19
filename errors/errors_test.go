package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			result := test.class.String()
			if result != test.expected {
				t.Errorf("expected %s, got %s", test.expected, result)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"queue full", ErrQueueFull, true},
		{"connection lost", ErrConnectionLost, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"bad arity", ErrBadArity, false},
		{"timeout in message", fmt.Errorf("operation timeout occurred"), true},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsTransient(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsInvalid(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"bad arity", ErrBadArity, true},
		{"unknown command", ErrUnknownCommand, true},
		{"unknown report", ErrUnknownReport, true},
		{"unknown platform", ErrUnknownPlatform, true},
		{"case exists", ErrCaseExists, true},
		{"rat limit", ErrRatLimit, true},
		{"queue full", ErrQueueFull, false},
		{"classified invalid", &ClassifiedError{Class: ErrorInvalid, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsInvalid(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"no handler", ErrNoHandler, true},
		{"no case manager", ErrNoCaseManager, true},
		{"invalid config", ErrInvalidConfig, true},
		{"bad arity", ErrBadArity, false},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := IsFatal(test.err)
			if result != test.expected {
				t.Errorf("expected %v, got %v for error: %v", test.expected, result, test.err)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(base, "Parser", "parseAndHandle", "command parsing")

	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should unwrap to the base error")
	}
	expected := "Parser.parseAndHandle: command parsing failed: boom"
	if wrapped.Error() != expected {
		t.Errorf("expected %q, got %q", expected, wrapped.Error())
	}

	if Wrap(nil, "a", "b", "c") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestWrapPreservesClassification(t *testing.T) {
	wrapped := WrapInvalid(ErrBadArity, "Parser", "splitArguments", "arity check")

	if !IsInvalid(wrapped) {
		t.Error("WrapInvalid should produce an invalid-classified error")
	}
	if !errors.Is(wrapped, ErrBadArity) {
		t.Error("classification wrapping should preserve the error chain")
	}

	var ce *ClassifiedError
	if !errors.As(wrapped, &ce) {
		t.Fatal("expected a ClassifiedError in the chain")
	}
	if ce.Component != "Parser" {
		t.Errorf("expected component Parser, got %s", ce.Component)
	}
	if !strings.Contains(ce.Message, "arity check failed") {
		t.Errorf("unexpected message: %s", ce.Message)
	}
}

func TestClassify(t *testing.T) {
	if Classify(ErrNoCaseManager) != ErrorFatal {
		t.Error("expected fatal classification")
	}
	if Classify(ErrRatLimit) != ErrorInvalid {
		t.Error("expected invalid classification")
	}
	if Classify(errors.New("some random error")) != ErrorTransient {
		t.Error("unknown errors should default to transient")
	}
}
