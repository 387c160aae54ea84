package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskboard/internal/model"
	"taskboard/internal/repository"
	"taskboard/internal/service"
)

const helpText = "🗂 <b>Task board reminders</b>\n" +
	"• /link &lt;email&gt; &lt;password&gt; — connect this chat to your account\n" +
	"• /unlink — stop reminders in this chat\n" +
	"• /boards — your boards and their progress\n" +
	"• /overdue — tasks past their due date\n" +
	"• /help — this message"

// sender is the part of the Telegram API the bot talks to.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot links Telegram chats to board accounts and delivers overdue digests.
type Bot struct {
	api       sender
	poller    *tgbotapi.BotAPI
	users     *repository.UserRepository
	auth      *service.AuthService
	reminders *service.ReminderService
	now       func() time.Time
}

func New(token string, users *repository.UserRepository, auth *service.AuthService, reminders *service.ReminderService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	log.WithField("account", api.Self.UserName).Info("bot authorized")

	b := newBot(api, users, auth, reminders)
	b.poller = api
	return b, nil
}

func newBot(api sender, users *repository.UserRepository, auth *service.AuthService, reminders *service.ReminderService) *Bot {
	return &Bot{api: api, users: users, auth: auth, reminders: reminders, now: time.Now}
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	if b.poller == nil {
		return errors.New("bot has no polling connection")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.poller.GetUpdatesChan(updateConfig)

	log.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.poller.StopReceivingUpdates()
	}()

	for update := range updates {
		if update.Message == nil || update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
			continue
		}
		if err := b.handleMessage(ctx, update.Message); err != nil {
			log.WithError(err).WithField("chat_id", update.Message.Chat.ID).Warn("handle message")
		}
	}
	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if !msg.IsCommand() {
		return b.sendText(msg.Chat.ID, "I only understand commands. Try /help.")
	}

	log.WithFields(log.Fields{"chat_id": msg.Chat.ID, "command": msg.Command()}).Debug("command received")
	switch msg.Command() {
	case "start", "help":
		return b.sendText(msg.Chat.ID, helpText)
	case "link":
		return b.handleLink(ctx, msg)
	case "unlink":
		return b.handleUnlink(ctx, msg)
	case "boards":
		return b.handleBoards(ctx, msg)
	case "overdue":
		return b.handleOverdue(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) error {
	// The message carries a password; drop it from the chat history either way.
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(msg.Chat.ID, msg.MessageID)); err != nil {
		log.WithError(err).Debug("delete link message")
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /link &lt;email&gt; &lt;password&gt;")
	}
	user, err := b.auth.Authenticate(ctx, args[0], args[1])
	if err != nil {
		return b.sendText(msg.Chat.ID, "Those credentials did not match an account.")
	}
	chatID := msg.Chat.ID
	if err := b.users.SetTelegramChat(ctx, user.ID, &chatID); err != nil {
		return err
	}
	log.WithFields(log.Fields{"user_id": user.ID, "chat_id": chatID}).Info("chat linked")
	return b.sendText(chatID, fmt.Sprintf("✅ Linked to %s. You will get a digest when tasks become overdue.", html.EscapeString(user.Name)))
}

func (b *Bot) handleUnlink(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil || !ok {
		return err
	}
	if err := b.users.SetTelegramChat(ctx, user.ID, nil); err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, "Unlinked. No more reminders here.")
}

func (b *Bot) handleBoards(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil || !ok {
		return err
	}
	text, err := b.reminders.BoardsSummary(ctx, *user)
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleOverdue(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.linkedUser(ctx, msg.Chat.ID)
	if err != nil || !ok {
		return err
	}
	text, due, err := b.reminders.OverdueDigest(ctx, *user, b.now())
	if err != nil {
		return err
	}
	if !due {
		text = "🎉 Nothing overdue."
	}
	return b.sendText(msg.Chat.ID, text)
}

// linkedUser finds the account behind chatID. When there is none it tells the
// chat how to link and reports ok=false.
func (b *Bot) linkedUser(ctx context.Context, chatID int64) (*model.User, bool, error) {
	user, err := b.users.FindByTelegramChat(ctx, chatID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, b.sendText(chatID, "This chat is not linked yet. Use /link &lt;email&gt; &lt;password&gt;.")
	}
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// SendOverdueDigests sends every linked user their overdue tasks. Users with
// nothing overdue get no message.
func (b *Bot) SendOverdueDigests(ctx context.Context) error {
	users, err := b.users.ListWithTelegram(ctx)
	if err != nil {
		return err
	}
	now := b.now()
	sent := 0
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if user.TelegramChatID == nil {
			continue
		}
		entry := log.WithField("user_id", user.ID)
		text, due, err := b.reminders.OverdueDigest(ctx, user, now)
		if err != nil {
			entry.WithError(err).Warn("build overdue digest")
			continue
		}
		if !due {
			continue
		}
		if err := b.sendText(*user.TelegramChatID, text); err != nil {
			entry.WithError(err).Warn("send overdue digest")
			continue
		}
		sent++
	}
	log.WithFields(log.Fields{"users": len(users), "sent": sent}).Info("overdue digests delivered")
	return nil
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

