// Package telegram оборачивает Bot API в узкий клиент с операциями,
// нужными сервисам: сообщения, ссылки-приглашения, исключение из канала
// и счётчики участников.
package telegram

import (
	"encoding/json"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Client узкий клиент Telegram Bot API поверх tgbotapi.
type Client struct {
	api *tgbotapi.BotAPI
}

// New создает клиент и проверяет токен запросом getMe.
func New(token string) (*Client, error) {
	const op = "telegram.New"

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &Client{api: api}, nil
}

// API возвращает нижележащий клиент для цикла получения обновлений.
func (c *Client) API() *tgbotapi.BotAPI {
	return c.api
}

// SendMessage отправляет текстовое сообщение. Разметка не используется:
// в тексты попадают пользовательские данные, символы разметки в которых
// ломали бы отправку.
func (c *Client) SendMessage(chatID int64, text string) error {
	const op = "telegram.SendMessage"

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SendWithMarkup отправляет сообщение с inline-клавиатурой.
func (c *Client) SendWithMarkup(chatID int64, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	const op = "telegram.SendWithMarkup"

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = markup
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// EditMessage заменяет текст и клавиатуру ранее отправленного сообщения.
func (c *Client) EditMessage(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	const op = "telegram.EditMessage"

	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	if _, err := c.api.Send(edit); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// AnswerCallback подтверждает получение callback query, убирая «часики»
// на кнопке у пользователя.
func (c *Client) AnswerCallback(callbackID string) error {
	const op = "telegram.AnswerCallback"

	if _, err := c.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// CreateInviteLink создает одноразовую ссылку-приглашение в канал,
// действующую до expireAt.
func (c *Client) CreateInviteLink(chatID int64, expireAt time.Time) (string, error) {
	const op = "telegram.CreateInviteLink"

	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: chatID},
		ExpireDate:  int(expireAt.Unix()),
		MemberLimit: 1,
	}
	resp, err := c.api.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return link.InviteLink, nil
}

// BanMember исключает пользователя из канала. Сообщения не удаляются.
func (c *Client) BanMember(chatID, userID int64) error {
	const op = "telegram.BanMember"

	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{
			ChatID: chatID,
			UserID: userID,
		},
	}
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetMemberCount возвращает число участников канала.
func (c *Client) GetMemberCount(chatID int64) (int, error) {
	const op = "telegram.GetMemberCount"

	count, err := c.api.GetChatMembersCount(tgbotapi.ChatMemberCountConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// ApproveJoinRequest одобряет заявку пользователя на вступление в канал.
func (c *Client) ApproveJoinRequest(chatID, userID int64) error {
	const op = "telegram.ApproveJoinRequest"

	cfg := tgbotapi.ApproveChatJoinRequestConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
		UserID:     userID,
	}
	if _, err := c.api.Request(cfg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
