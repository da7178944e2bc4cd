package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zjrosen/polypad/internal/execution"
	"github.com/zjrosen/polypad/internal/log"
	"github.com/zjrosen/polypad/internal/pubsub"
)

// Outcome describes a finished run.
type Outcome struct {
	RunID    string
	Output   string
	Err      error
	Duration time.Duration
}

// Failed reports whether the run ended in a transport or service error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Run dispatches the script buffer and blocks until the executor answers.
// Only one run may be outstanding; a second call returns ErrRunInFlight
// without touching state. Execution failures are reported through
// Outcome.Err and shown in the output, never returned as the error.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	c.mu.Lock()
	if c.state.Executing {
		c.mu.Unlock()
		log.Debug(log.CatSession, "run ignored, already executing", "session", c.state.ID)
		return Outcome{}, ErrRunInFlight
	}
	c.state.Executing = true
	collapsed := c.state.PreviewExpanded
	c.state.PreviewExpanded = false
	c.dispatchedRev = c.scriptRev
	c.dispatched = true
	req := execution.Request{Code: c.state.Script, Language: string(c.state.Language)}
	started := c.snapshotLocked()
	c.mu.Unlock()

	if collapsed {
		c.relayout("run collapsed preview")
	}
	c.broker.Publish(pubsub.StartedEvent, Change{Kind: ChangeRun, State: started})

	runID := uuid.NewString()
	log.Info(log.CatSession, "run dispatched", "session", started.ID, "run", runID, "language", req.Language)

	start := time.Now()
	resp, err := c.execute(ctx, req)
	outcome := Outcome{RunID: runID, Err: err, Duration: time.Since(start)}

	c.mu.Lock()
	c.state.Executing = false
	c.state.PreviousOutput = c.state.Output
	c.state.Runs++
	if err != nil {
		c.state.Output = execution.FormatFailure(err)
	} else {
		c.state.Output = resp.Output
		c.state.ActiveTab = TabOutput
	}
	outcome.Output = c.state.Output
	finished := c.snapshotLocked()
	c.mu.Unlock()

	if err != nil {
		log.ErrorErr(log.CatSession, "run failed", err, "run", runID, "duration", outcome.Duration)
	} else {
		log.Info(log.CatSession, "run finished", "run", runID, "duration", outcome.Duration)
	}
	c.broker.Publish(pubsub.CompletedEvent, Change{Kind: ChangeRun, State: finished})
	return outcome, nil
}

// execute calls the executor, turning a panic into a failed run so the
// in-flight flag is always cleared.
func (c *Controller) execute(ctx context.Context, req execution.Request) (resp execution.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("executor panicked: %v", r)
		}
	}()
	return c.exec.Execute(ctx, req)
}
