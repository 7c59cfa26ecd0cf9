package model

import "github.com/m-mizutani/goerr/v2"

var (
	ErrInvalidActionType = goerr.New("invalid action type")
	ErrInvalidStatus     = goerr.New("invalid status")
)
