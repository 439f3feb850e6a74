// Package bot runs the Telegram transport: long polling, command
// shortcuts for common questions and free-text question handling.
package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/vidpulse/video-analytics-bot/internal/config"
	"github.com/vidpulse/video-analytics-bot/internal/service"
	"github.com/vidpulse/video-analytics-bot/pkg/logger"
)

const startMessage = `Привет! Я бот аналитики видео.

Задайте вопрос о статистике видео обычным текстом, например:
"Сколько всего просмотров у всех видео?"
"На сколько выросли просмотры 28 ноября 2025?"

Команды:
/total_videos - сколько всего видео
/total_views - сколько всего просмотров
/total_likes - сколько всего лайков
/popular_videos - самые популярные видео`

// commandQuestions maps bot commands onto canned questions that run
// through the same pipeline as free text.
var commandQuestions = map[string]string{
	"total_videos":   "Сколько всего видео есть в системе?",
	"total_views":    "Сколько всего просмотров у всех видео?",
	"total_likes":    "Сколько всего лайков у всех видео?",
	"popular_videos": "Покажи 10 видео с наибольшим количеством просмотров, их id и количество просмотров",
}

// Bot answers analytics questions over Telegram.
type Bot struct {
	api       *tgbotapi.BotAPI
	analytics *service.AnalyticsService
	cfg       *config.Telegram
}

func New(cfg *config.Telegram, analytics *service.AnalyticsService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Telegram bot authorized", zap.String("username", api.Self.UserName))
	return &Bot{api: api, analytics: analytics, cfg: cfg}, nil
}

// Run polls for updates until the context is cancelled. Each update is
// handled in its own goroutine so one slow question does not stall the
// whole chat.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(b.cfg.PollTimeout.Seconds())

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	question := strings.TrimSpace(msg.Text)

	if msg.IsCommand() {
		switch cmd := msg.Command(); cmd {
		case "start", "help":
			b.reply(msg.Chat.ID, startMessage)
			return
		default:
			canned, ok := commandQuestions[cmd]
			if !ok {
				b.reply(msg.Chat.ID, "Неизвестная команда. Отправьте /help для списка команд.")
				return
			}
			question = canned
		}
	}

	logger.Log.Info("question received",
		zap.Int64("chatId", msg.Chat.ID),
		zap.String("question", question))

	answer, err := b.analytics.AnswerQuestion(ctx, question)
	if err != nil {
		logger.Log.Error("failed to answer question",
			zap.Int64("chatId", msg.Chat.ID),
			zap.Error(err))
		b.reply(msg.Chat.ID, "Произошла внутренняя ошибка. Попробуйте ещё раз позже.")
		return
	}

	b.reply(msg.Chat.ID, answer.Text)
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		logger.Log.Warn("failed to send message",
			zap.Int64("chatId", chatID),
			zap.Error(err))
	}
}
