package bot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	serrors "github.com/overklassniy/stankin-schedule/internal/errors"
	"github.com/overklassniy/stankin-schedule/plugin/timetable"
	"github.com/overklassniy/stankin-schedule/server/internal/observability"
	"github.com/overklassniy/stankin-schedule/server/service/announce"
	"github.com/overklassniy/stankin-schedule/server/timezone"
	"github.com/overklassniy/stankin-schedule/store"
)

// Command names.
const (
	CommandToday    = "today"
	CommandTomorrow = "tomorrow"
	CommandCode     = "code"
)

const (
	privateNoticeFormat = "Привет, это эксклюзивный бот для отправки расписания %s и пока у меня нет функционала в личных сообщениях. " +
		"Если Вы заинтересованы в настройке этого бота для получения своего расписания, то воспользуйтесь моим исходным кодом (/code)."
	codeFormat   = "Исходный код бота доступен на GitHub: %s"
	dayOffFormat = "%s (%s): выходной, занятий нет."
	failureText  = "Не удалось получить расписание, попробуйте позже."
	tooOftenText = "Слишком много запросов, попробуйте через несколько секунд."
)

// PrivateNotice returns the reply to any message in a private chat.
func (b *Bot) PrivateNotice() string {
	return fmt.Sprintf(privateNoticeFormat, b.config.GroupName)
}

// HandleUpdate answers one Telegram update. Only messages are handled.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return
	}

	chatID := msg.Chat.ID
	command := msg.Command()

	switch {
	case command == CommandCode:
		b.reply(ctx, chatID, fmt.Sprintf(codeFormat, b.config.RepoURL), "")
	case msg.Chat.IsPrivate():
		b.reply(ctx, chatID, b.PrivateNotice(), "")
	case command == CommandToday:
		b.replySchedule(ctx, chatID, 0)
	case command == CommandTomorrow:
		b.replySchedule(ctx, chatID, 1)
	}
}

func (b *Bot) reply(ctx context.Context, chatID int64, text, parseMode string) {
	if _, err := b.Send(ctx, chatID, text, parseMode); err != nil {
		b.logger.Error("failed to reply", "chat_id", chatID, "error", err)
		return
	}
	b.logger.Info("reply sent", "chat_id", chatID)
}

// replySchedule answers /today and /tomorrow with the Query form of the day.
func (b *Bot) replySchedule(ctx context.Context, chatID int64, offset int) {
	q := observability.NewQueryContext(b.logger, observability.SourceBot, chatID)
	ctx = observability.WithQueryContext(ctx, q)

	if !b.commands.AllowChat(chatID) {
		q.Warn("command rate limited")
		b.reply(ctx, chatID, tooOftenText, "")
		return
	}

	start := time.Now()
	msg, err := b.composer.Compose(ctx, b.now().In(b.config.Location), offset, announce.Query)
	b.metrics.RecordOp(observability.OpCommand, time.Since(start), err)
	if err != nil {
		q.Error("failed to compose schedule", err,
			slog.String(observability.LogFieldErrorCode, string(serrors.GetCodeFromError(err, serrors.ErrCodeExtractionFailed))),
		)
		b.reply(ctx, chatID, failureText, "")
		return
	}

	text, parseMode := msg.Text, msg.ParseMode
	if msg.DayOff {
		text, parseMode = dayOffNotice(msg.Date), ""
	}

	messageID, err := b.Send(ctx, chatID, text, parseMode)
	if err != nil {
		q.Error("failed to send schedule", err)
		return
	}
	q.Info("schedule sent",
		slog.String(observability.LogFieldTargetDate, timezone.FormatDate(msg.Date, msg.Date.Location())),
		slog.Int64(observability.LogFieldDuration, q.DurationMs()),
	)

	if b.store != nil {
		if _, err := b.store.CreateDelivery(ctx, &store.Delivery{
			ChatID:      chatID,
			Date:        msg.Date.Format(store.DeliveryDateLayout),
			Kind:        store.DeliveryKindQuery,
			ContentHash: msg.Hash(),
			MessageID:   messageID,
		}); err != nil {
			q.Warn("failed to record delivery", slog.String("error", err.Error()))
		}
	}
}

func dayOffNotice(date time.Time) string {
	return fmt.Sprintf(dayOffFormat, timetable.Sunday, timezone.FormatDate(date, date.Location()))
}
