package bot

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"taprealm/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// AdminBot handles operator commands via Telegram
type AdminBot struct {
	bot      *tgbotapi.BotAPI
	commands *Commands
	adminIDs []int64 // Telegram user IDs who can use admin commands
	stopCh   chan struct{}
	wg       sync.WaitGroup
	log      *slog.Logger
}

// NewAdminBot creates a new admin bot
func NewAdminBot(token string, commands *Commands, adminIDs []int64) (*AdminBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "admin_bot")
	log.Info("admin bot authorized", "username", bot.Self.UserName)

	return &AdminBot{
		bot:      bot,
		commands: commands,
		adminIDs: adminIDs,
		stopCh:   make(chan struct{}),
		log:      log,
	}, nil
}

// Start listens for commands until Stop is called
func (b *AdminBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || msg.From == nil || !msg.IsCommand() {
				continue
			}
			if !b.isAdmin(msg.From.ID) {
				b.log.Warn("command from non-admin", "tg_id", msg.From.ID, "command", msg.Command())
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(msg)
		}
	}
}

// Stop gracefully stops the bot
func (b *AdminBot) Stop() {
	b.log.Info("stopping admin bot...")
	close(b.stopCh)
	b.bot.StopReceivingUpdates()

	// Wait for pending handlers with timeout
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *AdminBot) isAdmin(tgID int64) bool {
	return slices.Contains(b.adminIDs, tgID)
}

func (b *AdminBot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	b.log.Info("admin command", "tg_id", msg.From.ID, "command", msg.Command())
	response := b.commands.Run(ctx, msg.Command(), msg.CommandArguments())

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.bot.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}
