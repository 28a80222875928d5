package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"nearnio/internal/domain"
	"nearnio/internal/metrics"
	"nearnio/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	OperationSync   = "sync"
	OperationNotify = "notify"
	OperationRemind = "remind"
)

// Result is the outcome of one orchestrated run.
type Result struct {
	Operation string
	Count     int
	Err       error
}

// Orchestrator is the single entry point for the three externally triggered
// operations. Every run gets a request id, a deadline, and panic recovery,
// so a misbehaving run can neither wedge the trigger surface nor take the
// process down.
type Orchestrator struct {
	sync    domain.SyncRunner
	notify  domain.NotifyRunner
	remind  domain.RemindRunner
	timeout time.Duration
	logger  *zerolog.Logger
}

func NewOrchestrator(
	sync domain.SyncRunner,
	notify domain.NotifyRunner,
	remind domain.RemindRunner,
	timeout time.Duration,
	logger *zerolog.Logger,
) *Orchestrator {
	if timeout <= 0 {
		timeout = models.DefaultRunTimeout
	}
	return &Orchestrator{
		sync:    sync,
		notify:  notify,
		remind:  remind,
		timeout: timeout,
		logger:  logger,
	}
}

func (o *Orchestrator) RunSync(ctx context.Context) Result {
	return o.run(ctx, OperationSync, o.sync.Sync)
}

func (o *Orchestrator) RunNotify(ctx context.Context) Result {
	return o.run(ctx, OperationNotify, o.notify.Notify)
}

func (o *Orchestrator) RunRemind(ctx context.Context) Result {
	return o.run(ctx, OperationRemind, o.remind.Remind)
}

func (o *Orchestrator) run(ctx context.Context, operation string, fn func(context.Context) (int, error)) (res Result) {
	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	requestID := uuid.New().String()
	started := time.Now()
	res.Operation = operation

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("%s run panicked: %v", operation, r)
			o.logger.Error().
				Str("request_id", requestID).
				Str("operation", operation).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("recovered panic in run")
		}
		metrics.IncCronRun(operation, res.Err == nil)
		o.logger.Info().
			Str("request_id", requestID).
			Str("operation", operation).
			Int("count", res.Count).
			Dur("elapsed", time.Since(started)).
			Bool("success", res.Err == nil).
			Msg("run finished")
	}()

	o.logger.Info().
		Str("request_id", requestID).
		Str("operation", operation).
		Msg("run started")

	res.Count, res.Err = fn(runCtx)
	if res.Err == nil && operation == OperationSync {
		metrics.AddListingsSynced(res.Count)
	}
	return res
}
