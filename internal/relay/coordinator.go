package relay

import (
	"context"
	"strings"

	"github.com/iamwavecut/tool"
	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apperrors "github.com/iamwavecut/ngrelay/internal/errors"
	"github.com/iamwavecut/ngrelay/internal/i18n"
	"github.com/iamwavecut/ngrelay/internal/observability"
)

const tracerName = "github.com/iamwavecut/ngrelay/internal/relay"

// Config is everything the coordinator needs to know about its deployment.
type Config struct {
	OperatorID int64
	Language   string
}

// Coordinator relays user messages to the operator and routes operator replies back.
// It keeps no per-event state: everything needed to answer a user travels inside the
// notification the operator replies to.
type Coordinator struct {
	transport Transport
	store     BlocklistStore
	config    Config
}

func NewCoordinator(transport Transport, store BlocklistStore, config Config) *Coordinator {
	return &Coordinator{
		transport: transport,
		store:     store,
		config:    config,
	}
}

// HandleUserMessage checks the blocklist, forwards the message to the operator, sends the
// operator a correlated notification and acknowledges receipt to the user.
// The returned error is of kind ErrStoreFailure or ErrTransportFailure.
func (c *Coordinator) HandleUserMessage(ctx context.Context, event UserMessageEvent) (outcome Outcome, err error) {
	done := observability.StartEvent("user_message")
	ctx, span := otel.Tracer(tracerName).Start(ctx, "relay.HandleUserMessage")
	entry := c.getLogEntry().WithFields(log.Fields{
		"method":     "HandleUserMessage",
		"event_id":   uuid.New(),
		"user_id":    event.UserID,
		"message_id": event.SourceMessageID,
	})
	span.SetAttributes(
		attribute.Int64("relay.user_id", event.UserID),
		attribute.Int("relay.message_id", event.SourceMessageID),
	)
	defer func() {
		observability.RecordUserMessage(string(outcome))
		span.SetAttributes(attribute.String("relay.outcome", string(outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		done()
	}()

	source := event.Source()

	blocked, err := c.store.IsBlocked(ctx, event.UserID)
	if err != nil {
		err = apperrors.Store(err, "check blocklist")
		entry.WithError(err).Error("blocklist unavailable, refusing delivery")
		c.sendBestEffort(ctx, entry, source.ChatID, i18n.Get("Your message could not be delivered right now. Please try again later.", c.config.Language), event.SourceMessageID)
		return OutcomeRejected, err
	}
	if blocked {
		entry.Debug("user is blocked, rejecting")
		text := i18n.Get("You behaved inappropriately and have been added to the blocklist. Think about your behavior: you are not allowed to message me.", c.config.Language)
		if _, err := c.transport.SendText(ctx, source.ChatID, text, event.SourceMessageID); err != nil {
			err = apperrors.Transport(err, "send rejection")
			entry.WithError(err).Warn("cant notify blocked user")
			return OutcomeRejected, err
		}
		return OutcomeRejected, nil
	}

	forwardedID, err := c.transport.Forward(ctx, source, c.config.OperatorID)
	if err != nil {
		err = apperrors.Transport(err, "forward to operator")
		entry.WithError(err).Error("cant forward user message, manual recovery needed")
		return OutcomeFailed, err
	}

	if _, err := c.transport.SendText(ctx, c.config.OperatorID, c.notificationText(event), forwardedID); err != nil {
		err = apperrors.Transport(err, "notify operator")
		entry.WithError(err).WithField("forwarded_id", forwardedID).Error("cant send correlation notice, manual recovery needed")
		return OutcomeFailed, err
	}

	c.sendBestEffort(ctx, entry, source.ChatID, i18n.Get("Your message has been heard. Please wait for a reply.", c.config.Language), event.SourceMessageID)
	entry.Debug("relayed")
	return OutcomeRelayed, nil
}

// HandleOperatorReply delivers an operator reply to the user the quoted notification was about.
// Replies that are not correlated with a notification get an explanatory notice; the returned
// error then wraps ErrCorrelationNotFound. A failed delivery is reported to the operator and
// returned as ErrTransportFailure.
func (c *Coordinator) HandleOperatorReply(ctx context.Context, event OperatorReplyEvent) (outcome ReplyOutcome, err error) {
	if event.ReplySenderID != c.config.OperatorID || !event.HasQuoted {
		return ReplyIgnored, nil
	}

	done := observability.StartEvent("operator_reply")
	ctx, span := otel.Tracer(tracerName).Start(ctx, "relay.HandleOperatorReply")
	entry := c.getLogEntry().WithFields(log.Fields{
		"method":     "HandleOperatorReply",
		"event_id":   uuid.New(),
		"message_id": event.NewMessageID,
	})
	defer func() {
		observability.RecordOperatorReply(string(outcome))
		span.SetAttributes(attribute.String("relay.outcome", string(outcome)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		done()
	}()

	operatorChat := event.ChatID
	if operatorChat == 0 {
		operatorChat = c.config.OperatorID
	}

	userID, sourceMessageID, err := Decode(event.QuotedNotificationText)
	if err != nil {
		entry.WithError(err).Debug("reply is not correlated")
		c.sendBestEffort(ctx, entry, operatorChat, i18n.Get("Could not find the sender data. Reply to the service message with the ID.", c.config.Language), event.NewMessageID)
		return ReplyUncorrelated, err
	}
	entry = entry.WithFields(log.Fields{"user_id": userID, "source_message_id": sourceMessageID})
	span.SetAttributes(
		attribute.Int64("relay.user_id", userID),
		attribute.Int("relay.message_id", sourceMessageID),
	)

	content := MessageRef{ChatID: operatorChat, MessageID: event.NewMessageID}
	if _, err := c.transport.CopyContent(ctx, content, userID, sourceMessageID); err != nil {
		err = apperrors.Transport(err, "deliver reply")
		entry.WithError(err).Error("cant deliver reply to user")
		c.sendBestEffort(ctx, entry, operatorChat, i18n.Get("An error occurred while sending the reply.", c.config.Language), event.NewMessageID)
		return ReplyFailed, err
	}

	c.sendBestEffort(ctx, entry, operatorChat, i18n.Get("Reply sent successfully.", c.config.Language), event.NewMessageID)
	entry.Debug("reply delivered")
	return ReplyDelivered, nil
}

func (c *Coordinator) notificationText(event UserMessageEvent) string {
	return strings.Join([]string{
		"👆 " + i18n.Get("Reply to THIS message.", c.config.Language),
		tool.ExecTemplate(i18n.Get("Message from: {{ .sender }}", c.config.Language), map[string]any{
			"sender": event.SenderLabel(),
		}),
		Encode(event.UserID, event.SourceMessageID),
	}, "\n")
}

func (c *Coordinator) sendBestEffort(ctx context.Context, entry *log.Entry, to int64, text string, replyTo int) {
	if _, err := c.transport.SendText(ctx, to, text, replyTo); err != nil {
		entry.WithError(err).WithField("to", to).Warn("best-effort message not delivered")
	}
}

func (c *Coordinator) getLogEntry() *log.Entry {
	return log.WithField("context", "relay")
}
