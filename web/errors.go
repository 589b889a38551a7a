package web

import "errors"

var (
	ErrBadRequest         = errors.New("web: bad request")
	ErrHeaderTooLarge     = errors.New("web: header too large")
	ErrTimeout            = errors.New("web: timeout")
	ErrProtocolViolation  = errors.New("web: protocol violation")
	ErrIncompleteTransfer = errors.New("web: incomplete transfer")
	ErrAlreadyCommitted   = errors.New("web: response already committed")
	ErrBodyConsumed       = errors.New("web: request body already consumed")
	ErrFramingDecided     = errors.New("web: body framing already decided")
)
