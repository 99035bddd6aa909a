package bot

import (
	"context"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/codeGROOVE-dev/retry"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const (
	UpdateTimeout = 5 * time.Minute

	updatesBuffer = 100
)

type (
	UpdateProcessor struct {
		updateHandlers []Handler
		now            func() time.Time
	}

	// UpdatesGetter is the long-polling part of *api.BotAPI.
	UpdatesGetter interface {
		GetUpdates(config api.UpdateConfig) ([]api.Update, error)
	}

	PollOptions struct {
		Attempts uint
		Delay    time.Duration
		MaxDelay time.Duration
	}
)

var DefaultPollOptions = PollOptions{
	Attempts: 10,
	Delay:    time.Second,
	MaxDelay: 2 * time.Minute,
}

// NewUpdateProcessor chains the available handlers named in enabled, in that order.
func NewUpdateProcessor(enabled []string, available map[string]Handler) *UpdateProcessor {
	enabledHandlers := make([]Handler, 0, len(enabled))
	for _, handlerName := range enabled {
		handlerName = strings.TrimSpace(handlerName)
		handler, ok := available[handlerName]
		if !ok || handler == nil {
			log.Warnf("no registered handler: %s", handlerName)
			continue
		}
		enabledHandlers = append(enabledHandlers, handler)
	}

	return &UpdateProcessor{
		updateHandlers: enabledHandlers,
		now:            time.Now,
	}
}

func (up *UpdateProcessor) Process(ctx context.Context, u *api.Update) error {
	if u == nil {
		return errors.New("update is nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var updateTime time.Time
	switch {
	case u.Message != nil:
		updateTime = time.Unix(int64(u.Message.Date), 0)
	case u.EditedMessage != nil:
		updateTime = time.Unix(int64(u.EditedMessage.Date), 0)
	default:
		updateTime = up.now()
	}

	if age := up.now().Sub(updateTime); age > UpdateTimeout {
		log.WithFields(log.Fields{
			"update_id":   u.UpdateID,
			"update_time": updateTime,
			"age":         age,
		}).Debug("Skipping outdated update")
		return nil
	}

	chat := u.FromChat()
	user := u.SentFrom()

	for _, handler := range up.updateHandlers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		proceed, err := handler.Handle(ctx, u, chat, user)
		if err != nil {
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			log.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

// GetUpdatesChans long-polls getter. Transient failures are retried with backoff; the error
// channel receives the final error once retries are exhausted or ctx is done.
func GetUpdatesChans(ctx context.Context, getter UpdatesGetter, config api.UpdateConfig, opts PollOptions) (api.UpdatesChannel, chan error) {
	ch := make(chan api.Update, updatesBuffer)
	chErr := make(chan error, 1)
	entry := log.WithField("context", "poller")

	go func() {
		defer close(ch)
		defer close(chErr)
		for {
			if err := ctx.Err(); err != nil {
				chErr <- err
				return
			}

			var updates []api.Update
			err := retry.Do(
				func() error {
					var err error
					updates, err = getter.GetUpdates(config)
					return err
				},
				retry.Attempts(opts.Attempts),
				retry.Delay(opts.Delay),
				retry.MaxDelay(opts.MaxDelay),
				retry.Context(ctx),
				retry.OnRetry(func(n uint, err error) {
					entry.WithError(err).WithField("attempt", n).Warn("get updates failed, retrying")
				}),
				retry.RetryIf(func(err error) bool {
					return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
				}),
			)
			if err != nil {
				chErr <- errors.WithMessage(err, "get updates")
				return
			}

			for _, update := range updates {
				if update.UpdateID < config.Offset {
					continue
				}
				config.Offset = update.UpdateID + 1
				select {
				case ch <- update:
				case <-ctx.Done():
					chErr <- ctx.Err()
					return
				}
			}
		}
	}()

	return ch, chErr
}

// GetFullName is the first and last name of user, falling back to the username.
func GetFullName(user *api.User) string {
	if user == nil {
		return ""
	}
	fullName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if len(fullName) == 0 {
		fullName = user.UserName
	}
	return fullName
}
