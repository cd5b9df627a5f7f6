package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/saltyorg/norm/database"
)

// Exit statuses returned by ExitCode.
const (
	ExitOK        = 0
	ExitFailure   = 1
	ExitMisconfig = 2
)

// ExitCode maps err to a process status: ExitMisconfig for environment
// parse errors and invalid arguments, ExitFailure for anything else.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var envErr env.AggregateError
	if errors.As(err, &envErr) || errors.Is(err, database.ErrInvalidArgument) {
		return ExitMisconfig
	}
	return ExitFailure
}

// Exit reports err on stderr as "prog: err" and terminates with
// ExitCode(err). A nil err exits 0.
func Exit(prog string, err error) {
	os.Exit(report(os.Stderr, prog, err))
}

func report(w io.Writer, prog string, err error) int {
	if err != nil {
		fmt.Fprintf(w, "%s: %v\n", prog, err)
	}
	return ExitCode(err)
}
