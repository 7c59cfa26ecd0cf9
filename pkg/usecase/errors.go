package usecase

import "github.com/m-mizutani/goerr/v2"

var (
	ErrActionNotFound    = goerr.New("action not found")
	ErrRunNotFound       = goerr.New("run not found")
	ErrInvalidTransition = goerr.New("invalid status transition")
	ErrQueuesUnavailable = goerr.New("queue transport unavailable")
)
