package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound = errors.New("db: key not found")
	ErrTxAborted   = errors.New("db: transaction aborted")
)

// Op constants map to Valkey/Redis command names for error context.
const (
	OpDel       = "DEL"
	OpGet       = "GET"
	OpMGet      = "MGET"
	OpSet       = "SET"
	OpHGet      = "HGET"
	OpSCard     = "SCARD"
	OpGeoSearch = "GEOSEARCH"
	OpExec      = "EXEC"
	OpEval      = "EVALSHA"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
