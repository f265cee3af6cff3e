package main

import (
	"github.com/iota-uz/role-import/modules/access/services"
	"github.com/iota-uz/role-import/pkg/database"
	"github.com/iota-uz/role-import/pkg/excel"
	"github.com/iota-uz/role-import/pkg/spreadsheet"
)

type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string {
	return e.err.Error()
}

func (e *cliError) Unwrap() error {
	return e.err
}

const (
	exitOK         = 0
	exitValidation = 2
	exitUsage      = 3
	exitDB         = 4
	exitDBWrite    = 5
	exitSafetyNet  = 6
	exitFileWrite  = 7
)

func withCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &cliError{code: code, err: err}
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var ce *cliError
	if ok := as(err, &ce); ok {
		return ce.code
	}
	return classify(err, 1)
}

// classify maps the typed pipeline errors to exit codes. A lost connection
// wins over the insert that observed it.
func classify(err error, fallback int) int {
	var (
		connErr   *database.ConnectionError
		insertErr *services.InsertError
		writeErr  *excel.WriteError
		parseErr  *spreadsheet.ParseError
		detectErr *spreadsheet.DetectError
	)
	switch {
	case err == nil:
		return exitOK
	case as(err, &connErr):
		return exitDB
	case as(err, &insertErr):
		return exitDBWrite
	case as(err, &writeErr):
		return exitFileWrite
	case is(err, spreadsheet.ErrFileNotFound):
		return exitUsage
	case as(err, &parseErr), as(err, &detectErr):
		return exitValidation
	default:
		return fallback
	}
}

// classified attaches the exit code for err, using fallback for untyped errors.
func classified(fallback int, err error) error {
	if err == nil {
		return nil
	}
	return withCode(classify(err, fallback), err)
}
