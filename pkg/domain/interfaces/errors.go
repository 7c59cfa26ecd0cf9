package interfaces

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors every repository backend wraps, so callers can classify
// persistence failures without importing a concrete backend.
var (
	ErrNotFound     = goerr.New("not found")
	ErrDuplicateKey = goerr.New("duplicate key")
)
