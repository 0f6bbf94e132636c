package core

import (
	"context"
	"sync"
	"time"

	"acm/internal/domain"

	log "github.com/sirupsen/logrus"
)

// WaitPolicy bounds how long to wait for the host to connect before
// selecting a model
type WaitPolicy struct {
	InitialDelay time.Duration
	Interval     time.Duration
	Attempts     int
}

// ModelWait is a running wait for the host's model list. It selects the
// model once the list is populated, or anyway when the attempts run out.
type ModelWait struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.Mutex
	err      error
	selected bool
}

// StartModelWait polls connector in the background until ready or out of
// attempts, then selects model. Cancelling ctx or calling Cancel stops it
// without selecting.
func StartModelWait(ctx context.Context, connector Connector, source domain.Source, model string, policy WaitPolicy) *ModelWait {
	ctx, cancel := context.WithCancel(ctx)
	w := &ModelWait{cancel: cancel, done: make(chan struct{})}
	go w.run(ctx, connector, source, model, policy)
	return w
}

func (w *ModelWait) run(ctx context.Context, connector Connector, source domain.Source, model string, policy WaitPolicy) {
	defer close(w.done)
	defer w.cancel()

	if !sleepCtx(ctx, policy.InitialDelay) {
		return
	}

	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		ready, err := connector.ModelsReady(ctx, source)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Debug("model list not readable yet")
		}
		if ready {
			break
		}
		if attempt == policy.Attempts {
			log.WithField("model", model).Debug("connection wait exhausted, selecting model anyway")
			break
		}
		if !sleepCtx(ctx, policy.Interval) {
			return
		}
	}

	err := connector.SelectModel(ctx, source, model)
	w.mu.Lock()
	w.err = err
	w.selected = err == nil
	w.mu.Unlock()
}

// Cancel stops the wait. It is safe to call more than once and after the
// wait finished.
func (w *ModelWait) Cancel() {
	w.cancel()
}

// Done is closed when the wait has finished or been cancelled
func (w *ModelWait) Done() <-chan struct{} {
	return w.done
}

// Err returns the model selection error, if any, once Done is closed
func (w *ModelWait) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Selected reports whether the model was selected
func (w *ModelWait) Selected() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.selected
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
