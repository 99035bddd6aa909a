package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/ngrelay/internal/db"
	"github.com/iamwavecut/ngrelay/internal/relay"
)

type (
	ServiceBot interface {
		GetBot() *api.BotAPI
		GetBotID() int64
		GetTransport() relay.Transport
	}

	ServiceDB interface {
		GetDB() db.Client
	}

	// Service is what handlers get to talk to Telegram and the blocklist.
	Service interface {
		ServiceBot
		ServiceDB
		GetOperatorID() int64
		GetLanguage() string
	}

	// Handler gets every fresh update in registration order until one returns proceed == false.
	Handler interface {
		Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error)
	}

	ServiceConfig struct {
		OperatorID int64
		Language   string
	}
)

type service struct {
	bot       *api.BotAPI
	db        db.Client
	transport relay.Transport
	cfg       ServiceConfig
	log       *log.Entry
}

func NewService(bot *api.BotAPI, dbClient db.Client, transport relay.Transport, cfg ServiceConfig) *service {
	return &service{
		bot:       bot,
		db:        dbClient,
		transport: transport,
		cfg:       cfg,
		log:       log.WithField("context", "service"),
	}
}

func (s *service) GetBot() *api.BotAPI {
	return s.bot
}

// GetBotID is the id of the bot account itself, zero before the bot has identified.
func (s *service) GetBotID() int64 {
	if s.bot == nil {
		return 0
	}
	return s.bot.Self.ID
}

func (s *service) GetTransport() relay.Transport {
	return s.transport
}

func (s *service) GetDB() db.Client {
	return s.db
}

func (s *service) GetOperatorID() int64 {
	return s.cfg.OperatorID
}

func (s *service) GetLanguage() string {
	return s.cfg.Language
}

// Start verifies the store is reachable.
func (s *service) Start(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return err
	}
	s.log.WithField("operator_id", s.cfg.OperatorID).Info("service started")
	return nil
}

// Stop releases the store.
func (s *service) Stop(ctx context.Context) error {
	_ = ctx
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Warn("cant close db")
		return err
	}
	return nil
}
