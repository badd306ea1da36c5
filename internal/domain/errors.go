package domain

import "errors"

var (
	ErrBusy            = errors.New("request pending, retry after response or timeout")
	ErrMalformedRaw    = errors.New("raw request must be a single JSON object")
	ErrLinkBusy        = errors.New("cannot reconfigure link while a request is pending")
	ErrTimeoutTooSmall = errors.New("timeout must be >= 200 ms")
	ErrUnknownCommand  = errors.New("unknown command")
	ErrLineTooLong     = errors.New("line too long")
)
