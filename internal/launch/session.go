// internal/launch/session.go
package launch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/launchpad/internal/pipeline"
)

type Status string

const (
	StatusRunning              Status = "running"
	StatusCompleted            Status = "completed"
	StatusFailedPartial        Status = "failed_partial"
	StatusFailedBeforeCreation Status = "failed_before_creation"
)

// Session is one launch attempt. It lives only as long as the caller keeps
// it; nothing is persisted.
type Session struct {
	ID      string
	Request Request

	mu          sync.Mutex
	status      Status
	token       common.Address
	metadataURI string
	price       decimal.Decimal
	priceKnown  bool
	warnings    []string
	failure     *Failure

	plan      plan
	prevCount int
	pipeline  *pipeline.Pipeline
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Token is the created token, zero until creation is confirmed and resolved.
func (s *Session) Token() common.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) MetadataURI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadataURI
}

// Price is the post-launch price of one token in wrapped native currency.
func (s *Session) Price() (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.price, s.priceKnown
}

func (s *Session) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.warnings...)
}

// Failure is the last failure, nil unless the session failed.
func (s *Session) Failure() *Failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure
}

// Steps snapshots the on-chain steps.
func (s *Session) Steps() []pipeline.StepRecord {
	return s.pipeline.Records()
}

func (s *Session) setToken(addr common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = addr
}

func (s *Session) warn(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = append(s.warnings, msg)
}

// Failure reports a failed launch. Token is set whenever the token was
// created, so the liquidity steps can be retried.
type Failure struct {
	Status Status
	Token  common.Address
	Err    error
}

func (f *Failure) Error() string {
	if f.Status == StatusFailedBeforeCreation {
		return fmt.Sprintf("launch failed before token creation: %v", f.Err)
	}
	if f.Token == (common.Address{}) {
		return fmt.Sprintf("token created but launch did not finish: %v", f.Err)
	}
	return fmt.Sprintf("token %s created but liquidity was not added: %v", f.Token.Hex(), f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// StepError returns the orchestrator failure, if that is what stopped the
// launch.
func (f *Failure) StepError() (*pipeline.StepError, bool) {
	var stepErr *pipeline.StepError
	if f == nil {
		return nil, false
	}
	ok := errors.As(f.Err, &stepErr)
	return stepErr, ok
}
