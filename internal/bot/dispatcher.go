package bot

import (
	"context"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/iamwavecut/ngrelay/internal/errors"
	"github.com/iamwavecut/ngrelay/internal/infra"
)

type (
	Processor interface {
		Process(ctx context.Context, u *api.Update) error
	}

	// Dispatcher processes updates on a bounded number of goroutines. A failing, slow or
	// panicking update never stops the others.
	Dispatcher struct {
		processor Processor
		workers   int
		timeout   time.Duration
		log       *log.Entry
	}
)

func NewDispatcher(processor Processor, workers int, timeout time.Duration) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		processor: processor,
		workers:   workers,
		timeout:   timeout,
		log:       log.WithField("context", "dispatcher"),
	}
}

// Run consumes updates until the channel is closed or ctx is done, then waits for in-flight
// updates to finish.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan api.Update) error {
	var g errgroup.Group
	g.SetLimit(d.workers)

	defer func() {
		_ = g.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			g.Go(func() error {
				d.handle(ctx, &u)
				return nil
			})
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, u *api.Update) {
	defer infra.CatchPanic("update")

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	if err := d.processor.Process(ctx, u); err != nil {
		entry := d.log.WithError(err).WithField("update_id", u.UpdateID)
		if kind := apperrors.Kind(err); kind != nil {
			entry = entry.WithField("error_kind", kind.Error())
		}
		entry.Error("cant process update")
	}
}
