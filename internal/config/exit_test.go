package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/saltyorg/norm/database"
)

func TestExitCode(t *testing.T) {
	t.Setenv("NORM_DB_MAX", "lots")
	_, envErr := Load()
	if envErr == nil {
		t.Fatal("expected env parse error")
	}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: ExitOK},
		{name: "env parse", err: envErr, want: ExitMisconfig},
		{name: "invalid argument", err: fmt.Errorf("open: %w", database.ErrInvalidArgument), want: ExitMisconfig},
		{name: "connection", err: database.ErrConnection, want: ExitFailure},
		{name: "plain", err: errors.New("create failed for 1 of 3 tables"), want: ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Fatalf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestReport(t *testing.T) {
	var buf bytes.Buffer
	if code := report(&buf, "norm", nil); code != ExitOK || buf.Len() != 0 {
		t.Fatalf("nil error: code %d, output %q", code, buf.String())
	}
	if code := report(&buf, "norm", database.ErrConnection); code != ExitFailure {
		t.Fatalf("expected failure code, got %d", code)
	}
	if got := buf.String(); got != "norm: connection error\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

// Exit calls os.Exit, so it runs in a subprocess.
func TestExit(t *testing.T) {
	if os.Getenv("NORM_TEST_EXIT") == "1" {
		Exit("norm", fmt.Errorf("load config: %w", database.ErrInvalidArgument))
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=^TestExit$")
	cmd.Env = append(os.Environ(), "NORM_TEST_EXIT=1")

	out, err := cmd.CombinedOutput()

	exitErr, ok := err.(*exec.ExitError)
	if !ok {
		t.Fatalf("expected *exec.ExitError, got %T: %v", err, err)
	}
	if exitErr.ExitCode() != ExitMisconfig {
		t.Fatalf("expected exit code %d, got %d", ExitMisconfig, exitErr.ExitCode())
	}
	if !strings.Contains(string(out), "norm: load config: invalid argument") {
		t.Fatalf("expected stderr message, got %q", string(out))
	}
}
