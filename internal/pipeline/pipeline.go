// internal/pipeline/pipeline.go

// Package pipeline runs dependent on-chain calls one at a time against a
// single signer and keeps track of what has committed.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/launchpad/internal/blockchain"
	"github.com/rovshanmuradov/launchpad/internal/events"
	logging "github.com/rovshanmuradov/launchpad/internal/utils/logger"
	"github.com/rovshanmuradov/launchpad/internal/utils/metrics"
)

type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusPending    Status = "pending"
	StatusSubmitted  Status = "submitted"
	StatusConfirmed  Status = "confirmed"
	StatusFailed     Status = "failed"
)

// Step is one atomic on-chain action. Build runs right before submission so
// it can use results of earlier steps and fresh deadlines.
type Step struct {
	Name        string
	Kind        string
	Build       func(ctx context.Context, s *State) (blockchain.Call, error)
	OnConfirmed func(ctx context.Context, s *State, r *blockchain.Receipt) error
}

// StepRecord is the observable progress of one step.
type StepRecord struct {
	Index       int
	Name        string
	Kind        string
	Method      string
	Status      Status
	TxHash      common.Hash
	Receipt     *blockchain.Receipt
	Err         error
	StartedAt   time.Time
	ConfirmedAt time.Time
}

type Option func(*Pipeline)

func WithSession(id string) Option { return func(p *Pipeline) { p.session = id } }

func WithPublisher(pub events.Publisher) Option { return func(p *Pipeline) { p.publisher = pub } }

func WithMetrics(c *metrics.Collector) Option { return func(p *Pipeline) { p.metrics = c } }

func WithLogger(l *zap.Logger) Option { return func(p *Pipeline) { p.logger = l } }

func WithState(s *State) Option { return func(p *Pipeline) { p.state = s } }

// Pipeline is a strictly sequential workflow. Step i+1 is never built
// before step i is confirmed.
type Pipeline struct {
	workflow string
	session  string
	signer   blockchain.Signer
	steps    []Step
	state    *State

	publisher events.Publisher
	metrics   *metrics.Collector
	logger    *zap.Logger

	mu      sync.Mutex
	records []StepRecord
	running atomic.Bool
}

func New(workflow string, signer blockchain.Signer, steps []Step, opts ...Option) *Pipeline {
	p := &Pipeline{
		workflow: workflow,
		signer:   signer,
		steps:    steps,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.session == "" {
		p.session = logging.NewSessionID()
	}
	if p.state == nil {
		p.state = NewState()
	}
	p.logger = logging.WithSession(p.logger.Named("pipeline"), p.session, workflow)

	p.records = make([]StepRecord, len(steps))
	for i, s := range steps {
		p.records[i] = StepRecord{Index: i, Name: s.Name, Kind: s.Kind, Status: StatusNotStarted}
	}
	return p
}

func (p *Pipeline) Workflow() string { return p.workflow }
func (p *Pipeline) Session() string  { return p.session }
func (p *Pipeline) State() *State    { return p.state }
func (p *Pipeline) Len() int         { return len(p.steps) }

// Records returns a snapshot of every step.
func (p *Pipeline) Records() []StepRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]StepRecord(nil), p.records...)
}

// Committed returns the confirmed steps in order.
func (p *Pipeline) Committed() []StepRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.committedLocked()
}

func (p *Pipeline) committedLocked() []StepRecord {
	var out []StepRecord
	for _, r := range p.records {
		if r.Status == StatusConfirmed {
			out = append(out, r)
		}
	}
	return out
}

// Completed reports whether every step is confirmed.
func (p *Pipeline) Completed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.records {
		if r.Status != StatusConfirmed {
			return false
		}
	}
	return true
}

// Run executes every step from the first one. It refuses a pipeline that has
// already been started; use ResumeFrom for that.
func (p *Pipeline) Run(ctx context.Context) error {
	p.mu.Lock()
	for _, r := range p.records {
		if r.Status != StatusNotStarted {
			p.mu.Unlock()
			return ErrAlreadyStarted
		}
	}
	p.mu.Unlock()
	return p.run(ctx, 0)
}

// ResumeFrom re-runs steps from index on. Every earlier step must be
// confirmed and step index itself must not be. A step left submitted is
// looked up by its transaction hash first and only rebuilt if it reverted.
func (p *Pipeline) ResumeFrom(ctx context.Context, index int) error {
	if index < 0 || index > len(p.steps) {
		return fmt.Errorf("%w: index %d out of range [0, %d]", ErrNotResumable, index, len(p.steps))
	}
	p.mu.Lock()
	for i := 0; i < index; i++ {
		if p.records[i].Status != StatusConfirmed {
			p.mu.Unlock()
			return fmt.Errorf("%w: step %d (%s) is %s", ErrNotResumable, i+1, p.records[i].Name, p.records[i].Status)
		}
	}
	if index < len(p.records) && p.records[index].Status == StatusConfirmed {
		p.mu.Unlock()
		return fmt.Errorf("%w: step %d (%s) is already confirmed", ErrNotResumable, index+1, p.records[index].Name)
	}
	p.mu.Unlock()
	return p.run(ctx, index)
}

func (p *Pipeline) run(ctx context.Context, from int) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer p.running.Store(false)

	total := len(p.steps)
	if from < total {
		next, err := p.reconcile(ctx, from)
		if err != nil {
			return err
		}
		from = next
	}
	p.logger.Info("Workflow started", zap.Int("from_step", from), zap.Int("steps", total))
	events.Emit(p.publisher, events.NewWorkflowEvent(events.WorkflowStarted, p.session, p.workflow, total, nil))

	for i := from; i < total; i++ {
		if err := p.runStep(ctx, i); err != nil {
			p.metrics.RecordWorkflow(p.workflow, "failed")
			events.Emit(p.publisher, events.NewWorkflowEvent(events.WorkflowFailed, p.session, p.workflow, total, err))
			return err
		}
	}

	p.metrics.RecordWorkflow(p.workflow, "completed")
	p.logger.Info("Workflow completed")
	events.Emit(p.publisher, events.NewWorkflowEvent(events.WorkflowCompleted, p.session, p.workflow, total, nil))
	return nil
}

func (p *Pipeline) runStep(ctx context.Context, i int) error {
	step := p.steps[i]
	log := logging.WithStep(p.logger, i, step.Name)
	start := time.Now()

	p.update(i, func(r *StepRecord) {
		*r = StepRecord{Index: i, Name: step.Name, Kind: step.Kind, Status: StatusPending, StartedAt: start}
	})

	// Cancelled before submission: the step is never issued.
	if err := ctx.Err(); err != nil {
		p.metrics.RecordStep(p.workflow, step.Kind, metrics.StepCancelled, time.Since(start))
		return p.fail(i, PhaseBuild, StatusFailed, err, log)
	}

	call, err := step.Build(ctx, p.state)
	if err != nil {
		p.metrics.RecordStep(p.workflow, step.Kind, metrics.StepFailed, time.Since(start))
		return p.fail(i, PhaseBuild, StatusFailed, err, log)
	}
	p.update(i, func(r *StepRecord) { r.Method = call.Method })
	p.emitStep(events.StepPending, i, nil)
	log.Debug("Submitting", zap.Stringer("call", call))

	hash, err := p.signer.Submit(ctx, call)
	if err != nil {
		p.metrics.RecordStep(p.workflow, step.Kind, metrics.StepFailed, time.Since(start))
		return p.fail(i, PhaseSubmit, StatusFailed, err, log)
	}
	p.update(i, func(r *StepRecord) {
		r.Status = StatusSubmitted
		r.TxHash = hash
	})
	p.emitStep(events.StepSubmitted, i, nil)
	log.Info("Transaction submitted", zap.String("tx_hash", hash.Hex()))

	receipt, err := p.signer.Wait(ctx, hash)
	if err != nil {
		// The transaction is out of our hands; its outcome is unknown.
		p.metrics.RecordStep(p.workflow, step.Kind, metrics.StepCancelled, time.Since(start))
		return p.fail(i, PhaseConfirm, StatusSubmitted, err, log)
	}
	if !receipt.Success {
		p.update(i, func(r *StepRecord) { r.Receipt = receipt })
		p.metrics.RecordStep(p.workflow, step.Kind, metrics.StepFailed, time.Since(start))
		return p.fail(i, PhaseConfirm, StatusFailed, &blockchain.RevertedError{Receipt: receipt}, log)
	}

	p.update(i, func(r *StepRecord) {
		r.Status = StatusConfirmed
		r.Receipt = receipt
		r.ConfirmedAt = time.Now()
	})
	p.metrics.RecordStep(p.workflow, step.Kind, metrics.StepConfirmed, time.Since(start))
	p.emitStep(events.StepConfirmed, i, nil)
	log.Info("Step confirmed",
		zap.String("tx_hash", hash.Hex()),
		zap.Uint64("block", receipt.BlockNumber),
		zap.Duration("took", time.Since(start)))

	if step.OnConfirmed != nil {
		if err := step.OnConfirmed(ctx, p.state, receipt); err != nil {
			return p.fail(i, PhaseFinalize, StatusConfirmed, err, log)
		}
	}
	return nil
}

// reconcile settles a step whose transaction was sent but never confirmed
// before anything is sent again. A mined transaction is adopted and the run
// continues after it; a reverted one is rebuilt. An outcome that is still
// unknown stops the resume.
func (p *Pipeline) reconcile(ctx context.Context, i int) (int, error) {
	p.mu.Lock()
	r := p.records[i]
	p.mu.Unlock()
	if r.Status != StatusSubmitted {
		return i, nil
	}

	step := p.steps[i]
	log := logging.WithStep(p.logger, i, step.Name)
	log.Info("Checking earlier transaction", zap.String("tx_hash", r.TxHash.Hex()))

	receipt, err := p.signer.Wait(ctx, r.TxHash)
	if err != nil {
		log.Warn("Earlier transaction still unconfirmed", zap.String("tx_hash", r.TxHash.Hex()), zap.Error(err))
		return i, fmt.Errorf("%w: step %d (%s) transaction %s outcome unknown: %v",
			ErrNotResumable, i+1, step.Name, r.TxHash.Hex(), err)
	}
	if !receipt.Success {
		log.Info("Earlier transaction reverted, rebuilding step",
			zap.String("tx_hash", r.TxHash.Hex()),
			zap.String("reason", receipt.RevertReason))
		p.update(i, func(r *StepRecord) {
			r.Status = StatusFailed
			r.Receipt = receipt
		})
		return i, nil
	}

	p.update(i, func(r *StepRecord) {
		r.Status = StatusConfirmed
		r.Receipt = receipt
		r.Err = nil
		r.ConfirmedAt = time.Now()
	})
	p.metrics.RecordStep(p.workflow, step.Kind, metrics.StepConfirmed, time.Since(r.StartedAt))
	p.emitStep(events.StepConfirmed, i, nil)
	log.Info("Earlier transaction confirmed",
		zap.String("tx_hash", r.TxHash.Hex()),
		zap.Uint64("block", receipt.BlockNumber))

	if step.OnConfirmed != nil {
		if err := step.OnConfirmed(ctx, p.state, receipt); err != nil {
			return i, p.fail(i, PhaseFinalize, StatusConfirmed, err, log)
		}
	}
	return i + 1, nil
}

func (p *Pipeline) fail(i int, phase Phase, status Status, err error, log *zap.Logger) error {
	p.mu.Lock()
	p.records[i].Status = status
	p.records[i].Err = err
	committed := p.committedLocked()
	p.mu.Unlock()

	stepErr := &StepError{
		Index:     i,
		Step:      p.steps[i].Name,
		Phase:     phase,
		Committed: committed,
		Err:       err,
	}

	fields := []zap.Field{zap.String("phase", string(phase)), zap.Int("committed", len(committed)), zap.Error(err)}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		log.Warn("Step interrupted", fields...)
	} else {
		log.Error("Step failed", fields...)
	}
	p.emitStep(events.StepFailed, i, stepErr.Err)
	return stepErr
}

func (p *Pipeline) update(i int, fn func(*StepRecord)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.records[i])
}

func (p *Pipeline) emitStep(t events.EventType, i int, err error) {
	if p.publisher == nil {
		return
	}
	p.mu.Lock()
	r := p.records[i]
	p.mu.Unlock()

	e := events.NewStepEvent(t, p.session, i, len(p.steps), r.Name, r.Method)
	e.TxHash = r.TxHash
	e.Err = err
	events.Emit(p.publisher, e)
}
