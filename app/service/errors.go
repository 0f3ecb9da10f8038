package service

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrGatewayInit    = errors.New("gateway init failed")
)
