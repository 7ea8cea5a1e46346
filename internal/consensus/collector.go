package consensus

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/moderntensor/mtnode/internal/synapse"
)

// Collect waits up to timeout for the batch's replies and produces the
// round's completed record. Every task ends up exactly once in Results or
// Errors; when the timeout fires or ctx is cancelled, all outstanding network
// operations are aborted and unanswered tasks are marked as timeouts.
func Collect(ctx context.Context, h *BatchHandle, round int, timeout time.Duration) RoundOutcome {
	outcome := RoundOutcome{
		Round:  round,
		Tasks:  h.Tasks(),
		Errors: append([]TaskError(nil), h.syncErrs...),
	}

	pending := make(map[string]Task, h.inflight)
	for _, t := range h.tasks {
		pending[t.ID] = t
	}
	for _, e := range h.syncErrs {
		delete(pending, e.TaskID)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	remaining := h.inflight
	timedOut := false

	for remaining > 0 && !timedOut {
		select {
		case r := <-h.replies:
			remaining--
			task := r.task
			delete(pending, task.ID)

			switch {
			case r.err == nil && r.resp.TaskID == task.ID:
				outcome.Results = append(outcome.Results, Result{
					TaskID:       task.ID,
					MinerUID:     task.MinerUID,
					ReceivedAt:   r.sentAt.Add(r.rtt),
					Latency:      r.rtt,
					ResultURL:    r.resp.ResultURL,
					ModelVersion: r.resp.ModelVersion,
					ReportedSecs: r.resp.LatencySecs,
				})
			case r.err == nil:
				// reply parsed but references the wrong task
				outcome.Errors = append(outcome.Errors, TaskError{TaskID: task.ID, MinerUID: task.MinerUID, Kind: ErrMalformed})
				log.Debug().Str("task_id", task.ID).Str("got", r.resp.TaskID).Msg("reply task id mismatch")
			case errors.Is(r.err, synapse.ErrMalformedReply):
				outcome.Errors = append(outcome.Errors, TaskError{TaskID: task.ID, MinerUID: task.MinerUID, Kind: ErrMalformed})
			case errors.Is(r.err, context.Canceled), errors.Is(r.err, context.DeadlineExceeded):
				outcome.Errors = append(outcome.Errors, TaskError{TaskID: task.ID, MinerUID: task.MinerUID, Kind: ErrTimeout})
			default:
				outcome.Errors = append(outcome.Errors, TaskError{TaskID: task.ID, MinerUID: task.MinerUID, Kind: ErrDispatch})
			}

		case <-timer.C:
			timedOut = true

		case <-ctx.Done():
			timedOut = true
		}
	}

	// Abort everything still in flight. Late replies drain into the buffered
	// channel and are dropped below with a diagnostic; they can never leak
	// into a later round.
	h.cancel()
	for _, t := range pending {
		outcome.Errors = append(outcome.Errors, TaskError{TaskID: t.ID, MinerUID: t.MinerUID, Kind: ErrTimeout})
	}
	if len(pending) > 0 {
		go drainLate(h, remaining)
	}

	log.Info().
		Int("round", round).
		Int("tasks", len(outcome.Tasks)).
		Int("results", len(outcome.Results)).
		Int("errors", len(outcome.Errors)).
		Msg("batch collected")
	return outcome
}

// drainLate consumes replies that arrive after the round closed so the send
// goroutines finish, logging each one.
func drainLate(h *BatchHandle, remaining int) {
	for i := 0; i < remaining; i++ {
		r := <-h.replies
		if r.err == nil {
			log.Debug().Str("task_id", r.task.ID).Msg("dropping late reply from closed round")
		}
	}
}
