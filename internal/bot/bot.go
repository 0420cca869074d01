package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Bot получает обновления длинным опросом и раздаёт их диалогу
// и трекеру членства.
type Bot struct {
	log     *slog.Logger
	api     *tgbotapi.BotAPI
	conv    *Conversation
	tracker *MembershipTracker
}

// New создает диспетчер обновлений.
func New(log *slog.Logger, api *tgbotapi.BotAPI, conv *Conversation, tracker *MembershipTracker) *Bot {
	return &Bot{
		log:     log,
		api:     api,
		conv:    conv,
		tracker: tracker,
	}
}

// Run запускает цикл получения обновлений и блокируется до отмены ctx.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	// Константы для chat_join_request в библиотеке нет, хотя само
	// поле Update.ChatJoinRequest она разбирает.
	u.AllowedUpdates = []string{
		tgbotapi.UpdateTypeMessage,
		tgbotapi.UpdateTypeCallbackQuery,
		tgbotapi.UpdateTypeChatMember,
		"chat_join_request",
	}

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("bot update loop started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot update loop stopped")
			return
		case upd, ok := <-updates:
			if !ok {
				return
			}
			b.handle(ctx, upd)
		}
	}
}

func (b *Bot) handle(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		b.conv.HandleCallback(ctx, upd.CallbackQuery)

	case upd.ChatMember != nil:
		b.tracker.HandleChatMember(ctx, upd.ChatMember)

	case upd.ChatJoinRequest != nil:
		b.tracker.HandleJoinRequest(ctx, upd.ChatJoinRequest)

	case upd.Message != nil:
		msg := upd.Message
		switch {
		case len(msg.NewChatMembers) > 0:
			b.tracker.HandleNewChatMembers(ctx, msg)
		case msg.LeftChatMember != nil:
			b.tracker.HandleLeftChatMember(ctx, msg)
		case msg.Chat.IsPrivate():
			b.conv.HandleMessage(ctx, msg)
		}
	}
}
