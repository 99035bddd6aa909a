package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamwavecut/tool"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngrelay/internal/bot"
	apperrors "github.com/iamwavecut/ngrelay/internal/errors"
	"github.com/iamwavecut/ngrelay/internal/i18n"
	"github.com/iamwavecut/ngrelay/internal/observability"
)

const (
	commandStart     = "start"
	commandBlock     = "block"
	commandUnblock   = "unblock"
	commandBlocklist = "blocklist"

	blockedAtLayout = "2006-01-02 15:04"
	messageLimit    = 4000
)

// Admin serves the start command for everyone and the blocklist commands for the operator.
// Block dates are shown in the server's local time.
type Admin struct {
	s   bot.Service
	now func() time.Time
	loc *time.Location
}

func NewAdmin(s bot.Service) *Admin {
	return &Admin{
		s:   s,
		now: time.Now,
		loc: time.Local,
	}
}

func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
	if chat == nil || user == nil || u.Message == nil || !chat.IsPrivate() {
		return true, nil
	}
	m := u.Message
	if !m.IsCommand() {
		return true, nil
	}

	command := strings.ToLower(m.Command())
	entry := a.getLogEntry().WithFields(log.Fields{
		"method":  "Handle",
		"command": command,
		"user_id": user.ID,
	})

	switch command {
	case commandStart:
		observability.RecordAdminCommand(command)
		return false, a.welcome(ctx, entry, chat, m, user)
	case commandBlock, commandUnblock, commandBlocklist:
		if user.ID != a.s.GetOperatorID() {
			entry.Trace("not operator")
			return false, nil
		}
		observability.RecordAdminCommand(command)
	default:
		return true, nil
	}

	switch command {
	case commandBlock:
		return false, a.block(ctx, entry, chat, m)
	case commandUnblock:
		return false, a.unblock(ctx, entry, chat, m)
	default:
		return false, a.blocklist(ctx, entry, chat, m)
	}
}

func (a *Admin) welcome(ctx context.Context, entry *log.Entry, chat *api.Chat, m *api.Message, user *api.User) error {
	name := strings.TrimSpace(user.FirstName)
	if name == "" {
		name = bot.GetFullName(user)
	}
	if name == "" {
		name = strconv.FormatInt(user.ID, 10)
	}
	text := tool.ExecTemplate(i18n.Get("Hello, {{ .name }}! I will be glad to listen to you. You can come to me for advice, with a question or just for support. Let's respect each other. If your message stays unanswered for two days, please send it again. Have a nice day!", a.s.GetLanguage()), map[string]any{
		"name": name,
	})
	a.reply(ctx, entry, chat, m, text)
	return nil
}

func (a *Admin) block(ctx context.Context, entry *log.Entry, chat *api.Chat, m *api.Message) error {
	lang := a.s.GetLanguage()
	userID, err := parseUserIDArgument(m.CommandArguments())
	if err != nil {
		entry.WithError(err).Debug("bad block argument")
		a.reply(ctx, entry, chat, m, i18n.Get("Error! Use: /block <user_id>", lang))
		return nil
	}

	if err := a.s.GetDB().Block(ctx, userID, a.now()); err != nil {
		a.reply(ctx, entry, chat, m, i18n.Get("The blocklist is unavailable right now. Please try again later.", lang))
		return apperrors.Store(err, "block")
	}
	entry.WithField("blocked_id", userID).Info("user blocked")
	a.reply(ctx, entry, chat, m, tool.ExecTemplate(i18n.Get("User {{ .user_id }} has been blocked.", lang), map[string]any{
		"user_id": userID,
	}))
	return nil
}

func (a *Admin) unblock(ctx context.Context, entry *log.Entry, chat *api.Chat, m *api.Message) error {
	lang := a.s.GetLanguage()
	userID, err := parseUserIDArgument(m.CommandArguments())
	if err != nil {
		entry.WithError(err).Debug("bad unblock argument")
		a.reply(ctx, entry, chat, m, i18n.Get("Error! Use: /unblock <user_id>", lang))
		return nil
	}

	if err := a.s.GetDB().Unblock(ctx, userID); err != nil {
		a.reply(ctx, entry, chat, m, i18n.Get("The blocklist is unavailable right now. Please try again later.", lang))
		return apperrors.Store(err, "unblock")
	}
	entry.WithField("unblocked_id", userID).Info("user unblocked")
	a.reply(ctx, entry, chat, m, tool.ExecTemplate(i18n.Get("User {{ .user_id }} has been unblocked.", lang), map[string]any{
		"user_id": userID,
	}))
	return nil
}

func (a *Admin) blocklist(ctx context.Context, entry *log.Entry, chat *api.Chat, m *api.Message) error {
	lang := a.s.GetLanguage()
	entries, err := a.s.GetDB().ListBlocked(ctx)
	if err != nil {
		a.reply(ctx, entry, chat, m, i18n.Get("The blocklist is unavailable right now. Please try again later.", lang))
		return apperrors.Store(err, "list blocklist")
	}
	if len(entries) == 0 {
		a.reply(ctx, entry, chat, m, i18n.Get("The blocklist is empty!", lang))
		return nil
	}

	lines := make([]string, 0, len(entries)+1)
	lines = append(lines, i18n.Get("🔒 Blocklist:", lang)+"\n")
	for _, e := range entries {
		lines = append(lines, tool.ExecTemplate(i18n.Get("• ID: {{ .user_id }} (blocked: {{ .blocked_at }})", lang), map[string]any{
			"user_id":    e.UserID,
			"blocked_at": e.BlockedAt.In(a.loc).Format(blockedAtLayout),
		}))
	}
	for _, text := range chunkLines(lines, messageLimit) {
		a.reply(ctx, entry, chat, m, text)
	}
	return nil
}

func (a *Admin) reply(ctx context.Context, entry *log.Entry, chat *api.Chat, m *api.Message, text string) {
	if _, err := a.s.GetTransport().SendText(ctx, chat.ID, text, m.MessageID); err != nil {
		entry.WithError(err).Warn("cant send command reply")
	}
}

func (a *Admin) getLogEntry() *log.Entry {
	return log.WithField("context", "admin")
}

// parseUserIDArgument accepts exactly one integer argument.
func parseUserIDArgument(arguments string) (int64, error) {
	fields := strings.Fields(arguments)
	if len(fields) != 1 {
		return 0, apperrors.BadArgument("expected exactly one user id")
	}
	userID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return 0, apperrors.BadArgument("user id is not a number: " + fields[0])
	}
	if userID == 0 {
		return 0, apperrors.BadArgument("user id must not be zero")
	}
	return userID, nil
}

// chunkLines joins lines with newlines into messages no longer than limit bytes.
// A single line longer than limit is sent on its own.
func chunkLines(lines []string, limit int) []string {
	var (
		chunks  []string
		current strings.Builder
	)
	for _, line := range lines {
		if current.Len() > 0 && current.Len()+1+len(line) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
