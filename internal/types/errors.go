// internal/types/errors.go
package types

import "errors"

// Local validation failures are detected before any external call and are
// never retried. External failures halt the workflow at the current step.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidTolerance     = errors.New("invalid slippage tolerance")
	ErrInvalidPath          = errors.New("invalid trade path")
	ErrNoLiquidity          = errors.New("no liquidity")
	ErrPreconditionViolated = errors.New("precondition violated")
	ErrExternalCallFailed   = errors.New("external call failed")
)
