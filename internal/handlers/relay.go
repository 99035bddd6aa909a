package handlers

import (
	"context"
	"errors"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngrelay/internal/bot"
	apperrors "github.com/iamwavecut/ngrelay/internal/errors"
	"github.com/iamwavecut/ngrelay/internal/relay"
)

type Coordinator interface {
	HandleUserMessage(ctx context.Context, event relay.UserMessageEvent) (relay.Outcome, error)
	HandleOperatorReply(ctx context.Context, event relay.OperatorReplyEvent) (relay.ReplyOutcome, error)
}

// Relay turns private messages into coordinator events: the operator's messages are replies,
// everybody else's are relayed to the operator.
type Relay struct {
	s           bot.Service
	coordinator Coordinator
}

func NewRelay(s bot.Service, coordinator Coordinator) *Relay {
	return &Relay{
		s:           s,
		coordinator: coordinator,
	}
}

func (r *Relay) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if chat == nil || user == nil || u.Message == nil || !chat.IsPrivate() || user.IsBot {
		return true, nil
	}
	m := u.Message
	if m.IsCommand() {
		return true, nil
	}

	if user.ID == r.s.GetOperatorID() {
		return false, r.handleOperator(ctx, m, chat, user)
	}

	event := relay.UserMessageEvent{
		UserID:          user.ID,
		ChatID:          chat.ID,
		SourceMessageID: m.MessageID,
		DisplayName:     strings.TrimSpace(user.FirstName + " " + user.LastName),
		Username:        user.UserName,
	}
	if _, err := r.coordinator.HandleUserMessage(ctx, event); err != nil {
		return false, err
	}
	return false, nil
}

func (r *Relay) handleOperator(ctx context.Context, m *api.Message, chat *api.Chat, user *api.User) error {
	event := relay.OperatorReplyEvent{
		ReplySenderID: user.ID,
		ChatID:        chat.ID,
		NewMessageID:  m.MessageID,
	}
	if quoted := m.ReplyToMessage; quoted != nil {
		event.HasQuoted = true
		if r.isOwnNotification(quoted) {
			event.QuotedNotificationText = quoted.Text
		}
	}

	outcome, err := r.coordinator.HandleOperatorReply(ctx, event)
	if errors.Is(err, apperrors.ErrCorrelationNotFound) {
		r.getLogEntry().WithField("message_id", m.MessageID).Debug("operator replied to an unrelated message")
		return nil
	}
	if outcome == relay.ReplyIgnored {
		r.getLogEntry().WithField("message_id", m.MessageID).Trace("operator message is not a reply")
	}
	return err
}

// isOwnNotification holds for messages the bot wrote itself. Forwarded copies carry the
// user's text and are never decoded.
func (r *Relay) isOwnNotification(m *api.Message) bool {
	if m.ForwardOrigin != nil || m.From == nil {
		return false
	}
	botID := r.s.GetBotID()
	return botID != 0 && m.From.ID == botID
}

func (r *Relay) getLogEntry() *log.Entry {
	return log.WithField("context", "relay_handler")
}
