package relay

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/iamwavecut/ngrelay/internal/db"
)

type (
	// MessageRef addresses a message on the transport.
	MessageRef struct {
		ChatID    int64
		MessageID int
	}

	// Transport delivers messages. Every method returns the id of the delivered message;
	// replyTo == 0 means the message is not threaded.
	Transport interface {
		Forward(ctx context.Context, msg MessageRef, to int64) (int, error)
		SendText(ctx context.Context, to int64, text string, replyTo int) (int, error)
		CopyContent(ctx context.Context, content MessageRef, to int64, replyTo int) (int, error)
	}

	// BlocklistStore is the single source of truth for blocked users.
	BlocklistStore interface {
		IsBlocked(ctx context.Context, userID int64) (bool, error)
		Block(ctx context.Context, userID int64, blockedAt time.Time) error
		Unblock(ctx context.Context, userID int64) error
		ListBlocked(ctx context.Context) ([]*db.BlocklistEntry, error)
	}

	// UserMessageEvent is a message sent to the relay by anyone but the operator.
	UserMessageEvent struct {
		UserID          int64
		ChatID          int64
		SourceMessageID int
		DisplayName     string
		Username        string
	}

	// OperatorReplyEvent is a message the operator wrote in its own chat. Quoted carries the
	// text of the message it replies to, if any.
	OperatorReplyEvent struct {
		ReplySenderID          int64
		ChatID                 int64
		NewMessageID           int
		HasQuoted              bool
		QuotedNotificationText string
	}

	// Outcome is the terminal state of a user message.
	Outcome string

	// ReplyOutcome is the terminal state of an operator reply.
	ReplyOutcome string
)

const (
	OutcomeRelayed  Outcome = "relayed"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"

	ReplyIgnored      ReplyOutcome = "ignored"
	ReplyUncorrelated ReplyOutcome = "uncorrelated"
	ReplyDelivered    ReplyOutcome = "delivered"
	ReplyFailed       ReplyOutcome = "failed"
)

func (e UserMessageEvent) HasUsername() bool {
	return e.Username != ""
}

// Source is the message to forward. Private chats share their id with the user.
func (e UserMessageEvent) Source() MessageRef {
	chatID := e.ChatID
	if chatID == 0 {
		chatID = e.UserID
	}
	return MessageRef{ChatID: chatID, MessageID: e.SourceMessageID}
}

// SenderLabel is what the operator sees as the author. Anything shaped like a correlation token
// is cut out, repeatedly, since removing a nested token can join its neighbours into a new one.
func (e UserMessageEvent) SenderLabel() string {
	label := strings.TrimSpace(e.DisplayName)
	if e.HasUsername() {
		label = "@" + e.Username
	}
	for tokenPattern.MatchString(label) {
		label = tokenPattern.ReplaceAllString(label, "")
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = strconv.FormatInt(e.UserID, 10)
	}
	return label
}
