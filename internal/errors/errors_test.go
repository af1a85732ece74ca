package errors

import (
	stderrors "errors"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name  string
		err   *LibrarianError
		wants []string
	}{
		{
			name:  "without cause",
			err:   New(FileNotFound, "src/missing.ts does not exist", nil),
			wants: []string{"FILE_NOT_FOUND", "src/missing.ts does not exist"},
		},
		{
			name:  "with cause",
			err:   New(ParseFailed, "cannot parse file", stderrors.New("unexpected token")),
			wants: []string{"PARSE_FAILED", "cannot parse file", "unexpected token"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, want := range tt.wants {
				if !strings.Contains(msg, want) {
					t.Errorf("Error() = %q, want to contain %q", msg, want)
				}
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("root cause")
	err := New(InternalError, "wrapper", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestSuggestedFixes(t *testing.T) {
	err := New(IndexUnavailable, "fts index missing", nil)
	if len(err.SuggestedFixes) == 0 {
		t.Fatal("expected suggested fixes for INDEX_UNAVAILABLE")
	}
	if err.SuggestedFixes[0].Type != RunCommand {
		t.Errorf("fix type = %s, want run-command", err.SuggestedFixes[0].Type)
	}

	if fixes := GetSuggestedFixes(Timeout); fixes != nil {
		t.Errorf("expected no fixes for TIMEOUT, got %v", fixes)
	}
}

func TestWithDetails(t *testing.T) {
	err := New(LineOutOfRange, "line 500 out of range", nil).
		WithDetails(map[string]int{"line": 500, "fileLines": 120})
	if err.Details == nil {
		t.Error("details not attached")
	}
}
