package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/clubpass/club-access-bot/internal/lib/sl"
	"github.com/clubpass/club-access-bot/internal/models"
)

// MembershipStorage определяет методы хранилища для истории членства.
type MembershipStorage interface {
	UpsertMembership(ctx context.Context, ev models.MembershipEvent) error
}

// JoinApprover одобряет заявки на вступление в канал.
type JoinApprover interface {
	ApproveJoinRequest(chatID, userID int64) error
}

// MembershipTracker ведёт историю членства в бесплатном канале.
// События других чатов игнорируются. Записи используются только
// для отчётности и не влияют на выдачу доступа.
type MembershipTracker struct {
	log           *slog.Logger
	db            MembershipStorage
	approver      JoinApprover
	freeChannelID int64
}

// NewMembershipTracker создает трекер членства бесплатного канала.
func NewMembershipTracker(log *slog.Logger, db MembershipStorage, approver JoinApprover, freeChannelID int64) *MembershipTracker {
	return &MembershipTracker{
		log:           log,
		db:            db,
		approver:      approver,
		freeChannelID: freeChannelID,
	}
}

// memberStatuses — статусы, считающиеся нахождением в канале.
var memberStatuses = map[string]bool{
	"member":        true,
	"administrator": true,
	"creator":       true,
}

// HandleChatMember обрабатывает изменение статуса участника канала.
func (t *MembershipTracker) HandleChatMember(ctx context.Context, upd *tgbotapi.ChatMemberUpdated) {
	if upd.Chat.ID != t.freeChannelID {
		return
	}

	oldMember := memberStatuses[upd.OldChatMember.Status]
	newMember := memberStatuses[upd.NewChatMember.Status]
	if oldMember == newMember {
		return
	}

	user := upd.NewChatMember.User
	t.record(ctx, &upd.Chat, user, upd.NewChatMember.Status, newMember)
}

// HandleNewChatMembers обрабатывает служебное сообщение о вступлении.
func (t *MembershipTracker) HandleNewChatMembers(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.ID != t.freeChannelID {
		return
	}
	for i := range msg.NewChatMembers {
		member := &msg.NewChatMembers[i]
		if member.IsBot {
			continue
		}
		t.record(ctx, msg.Chat, member, "member", true)
	}
}

// HandleLeftChatMember обрабатывает служебное сообщение о выходе.
func (t *MembershipTracker) HandleLeftChatMember(ctx context.Context, msg *tgbotapi.Message) {
	if msg.Chat.ID != t.freeChannelID || msg.LeftChatMember == nil || msg.LeftChatMember.IsBot {
		return
	}
	t.record(ctx, msg.Chat, msg.LeftChatMember, "left", false)
}

// HandleJoinRequest одобряет заявку на вступление в бесплатный канал
// и фиксирует членство. Ошибка одобрения не мешает записи: заявка
// могла быть одобрена админом вручную.
func (t *MembershipTracker) HandleJoinRequest(ctx context.Context, req *tgbotapi.ChatJoinRequest) {
	if req.Chat.ID != t.freeChannelID {
		return
	}

	if err := t.approver.ApproveJoinRequest(req.Chat.ID, req.From.ID); err != nil {
		t.log.Warn("approve join request failed", sl.Err(err), sl.User(req.From.ID))
	}
	t.record(ctx, &req.Chat, &req.From, "member", true)
}

func (t *MembershipTracker) record(ctx context.Context, chat *tgbotapi.Chat, user *tgbotapi.User, status string, joined bool) {
	fullName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	ev := models.MembershipEvent{
		UserID:       user.ID,
		Username:     user.UserName,
		FullName:     fullName,
		ChannelType:  models.ChannelFree,
		ChannelID:    strconv.FormatInt(chat.ID, 10),
		ChannelTitle: chat.Title,
		Status:       status,
		Joined:       joined,
		OccurredAt:   time.Now().UTC(),
	}
	if err := t.db.UpsertMembership(ctx, ev); err != nil {
		t.log.Error("failed to record membership", sl.Err(err), sl.User(user.ID))
		return
	}
	t.log.Info("membership recorded",
		sl.User(user.ID),
		slog.String("status", status),
		slog.Bool("joined", joined))
}
