package telegram

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"

	"github.com/iamwavecut/ngrelay/internal/relay"
)

// Transport delivers relay traffic through the Bot API.
type Transport struct {
	bot *api.BotAPI
}

var _ relay.Transport = (*Transport)(nil)

func NewTransport(bot *api.BotAPI) *Transport {
	return &Transport{bot: bot}
}

// Forward forwards msg to the chat to, keeping the original author visible.
func (t *Transport) Forward(ctx context.Context, msg relay.MessageRef, to int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	sent, err := t.bot.Send(api.NewForward(to, msg.ChatID, msg.MessageID))
	if err != nil {
		return 0, errors.Wrap(err, "forward message")
	}
	return sent.MessageID, nil
}

// SendText sends plain text, threaded under replyTo when it is not zero.
func (t *Transport) SendText(ctx context.Context, to int64, text string, replyTo int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := api.NewMessage(to, text)
	if replyTo != 0 {
		msg.ReplyParameters.MessageID = replyTo
		msg.ReplyParameters.AllowSendingWithoutReply = true
	}
	sent, err := t.bot.Send(msg)
	if err != nil {
		return 0, errors.Wrap(err, "send message")
	}
	return sent.MessageID, nil
}

// CopyContent re-sends the content of a message without the "forwarded from" header.
func (t *Transport) CopyContent(ctx context.Context, content relay.MessageRef, to int64, replyTo int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	msg := api.NewCopyMessage(to, content.ChatID, content.MessageID)
	if replyTo != 0 {
		msg.ReplyParameters.MessageID = replyTo
		msg.ReplyParameters.AllowSendingWithoutReply = true
	}
	copied, err := t.bot.CopyMessage(msg)
	if err != nil {
		return 0, errors.Wrap(err, "copy message")
	}
	return copied.MessageID, nil
}
