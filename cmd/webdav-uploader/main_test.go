package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulschiretz/webdav-uploader/pkg/plog"
)

func TestMain(m *testing.M) {
	plog.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestRun(t *testing.T) {
	origArgs := os.Args
	defer func() { os.Args = origArgs }()

	tests := []struct {
		name          string
		args          []string
		expectedError string
	}{
		{
			name:          "No Arguments",
			args:          []string{"webdav-uploader"},
			expectedError: "source path cannot be empty",
		},
		{
			name: "Version Flag",
			args: []string{"webdav-uploader", "--version"},
		},
		{
			name:          "Invalid Compare Mode",
			args:          []string{"webdav-uploader", "--compare", "bogus"},
			expectedError: "invalid compare mode",
		},
		{
			name: "Non-Existent Source With Dry Run",
			args: []string{"webdav-uploader", "--source", filepath.Join(os.TempDir(), "webdav_nonexistent_source_12345"), "--dry-run"},
			expectedError: "does not exist",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			os.Args = tc.args

			err := run(context.Background())

			if tc.expectedError != "" {
				if err == nil {
					t.Errorf("expected error containing %q, got nil", tc.expectedError)
				} else if !strings.Contains(err.Error(), tc.expectedError) {
					t.Errorf("expected error containing %q, got %v", tc.expectedError, err)
				}
			} else if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestStringListFlag(t *testing.T) {
	var l stringList
	if err := l.Set("*.bak"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Set("*.tmp"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := l.String(), "*.bak,*.tmp"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
