package consensus

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/moderntensor/mtnode/internal/synapse"
)

// TaskSender is the wire-level send primitive. Satisfied by synapse.Client.
type TaskSender interface {
	SendTask(ctx context.Context, endpoint string, req synapse.TaskRequest) (synapse.TaskResponse, error)
}

// Dispatcher issues task requests to a batch of miners concurrently. It never
// waits for replies; collection happens through the returned BatchHandle.
type Dispatcher struct {
	sender    TaskSender
	gate      *semaphore.Weighted
	validator string
}

func NewDispatcher(sender TaskSender, maxConcurrent int, validator string) *Dispatcher {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Dispatcher{
		sender:    sender,
		gate:      semaphore.NewWeighted(int64(maxConcurrent)),
		validator: validator,
	}
}

// reply is one terminated in-flight request.
type reply struct {
	task   Task
	resp   synapse.TaskResponse
	err    error
	sentAt time.Time
	rtt    time.Duration
}

// BatchHandle tracks one dispatched batch until collection completes.
type BatchHandle struct {
	tasks     []Task
	syncErrs  []TaskError
	replies   chan reply
	inflight  int
	cancel    context.CancelFunc
	startedAt time.Time
}

// Tasks returns every task created for the batch, including ones that failed
// synchronously.
func (h *BatchHandle) Tasks() []Task {
	return h.tasks
}

// Dispatch creates one task per miner and starts sending them concurrently,
// bounded by the admission gate. Synchronous failures (bad endpoint, payload
// factory error) are recorded immediately as dispatch errors; nothing blocks
// another task's send.
func (d *Dispatcher) Dispatch(ctx context.Context, slot int64, round int, miners []*MinerRef, factory TaskFactory) *BatchHandle {
	sendCtx, cancel := context.WithCancel(ctx)
	h := &BatchHandle{
		replies:   make(chan reply, len(miners)),
		cancel:    cancel,
		startedAt: time.Now(),
	}

	for i, m := range miners {
		task := Task{
			ID:        fmt.Sprintf("slot_%d_round_%d_miner_%s_%d", slot, round, m.UID, i),
			MinerUID:  m.UID,
			Endpoint:  m.Endpoint,
			CreatedAt: time.Now(),
		}

		payload, err := factory(m.UID, round)
		if err != nil {
			h.tasks = append(h.tasks, task)
			h.syncErrs = append(h.syncErrs, TaskError{TaskID: task.ID, MinerUID: m.UID, Kind: ErrDispatch})
			log.Warn().Err(err).Str("miner", m.UID).Msg("task factory failed, recording dispatch error")
			continue
		}
		task.Payload = payload

		if _, err := url.ParseRequestURI(m.Endpoint); err != nil {
			h.tasks = append(h.tasks, task)
			h.syncErrs = append(h.syncErrs, TaskError{TaskID: task.ID, MinerUID: m.UID, Kind: ErrDispatch})
			log.Warn().Err(err).Str("miner", m.UID).Str("endpoint", m.Endpoint).Msg("malformed miner endpoint")
			continue
		}

		h.tasks = append(h.tasks, task)
		h.inflight++

		go func(task Task) {
			if err := d.gate.Acquire(sendCtx, 1); err != nil {
				h.replies <- reply{task: task, err: err, sentAt: time.Now()}
				return
			}
			defer d.gate.Release(1)

			req := synapse.TaskRequest{
				TaskID:    task.ID,
				Slot:      slot,
				Round:     round,
				Validator: d.validator,
				Payload:   task.Payload,
			}

			sentAt := time.Now()
			resp, err := d.sender.SendTask(sendCtx, task.Endpoint, req)
			h.replies <- reply{
				task:   task,
				resp:   resp,
				err:    err,
				sentAt: sentAt,
				rtt:    time.Since(sentAt),
			}
		}(task)
	}

	log.Debug().
		Int("round", round).
		Int("batch", len(h.tasks)).
		Int("inflight", h.inflight).
		Int("sync_errors", len(h.syncErrs)).
		Msg("batch dispatched")
	return h
}
