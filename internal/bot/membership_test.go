package bot

import (
	"context"
	"errors"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/mock"

	"github.com/clubpass/club-access-bot/internal/models"
)

type MembershipStorageMock struct {
	mock.Mock
}

func (m *MembershipStorageMock) UpsertMembership(ctx context.Context, ev models.MembershipEvent) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}

type ApproverMock struct {
	mock.Mock
}

func (m *ApproverMock) ApproveJoinRequest(chatID, userID int64) error {
	args := m.Called(chatID, userID)
	return args.Error(0)
}

const testFreeChannel = int64(-1002000000001)

func newTracker(db *MembershipStorageMock, approver *ApproverMock) *MembershipTracker {
	return NewMembershipTracker(newNoopLogger(), db, approver, testFreeChannel)
}

func freeChannelChat() tgbotapi.Chat {
	return tgbotapi.Chat{ID: testFreeChannel, Title: "Клуб"}
}

func matchMembership(userID int64, status string, joined bool) any {
	return mock.MatchedBy(func(ev models.MembershipEvent) bool {
		return ev.UserID == userID &&
			ev.Status == status &&
			ev.Joined == joined &&
			ev.ChannelType == models.ChannelFree
	})
}

func TestTracker_ChatMemberJoin(t *testing.T) {
	db := new(MembershipStorageMock)
	tracker := newTracker(db, new(ApproverMock))

	db.On("UpsertMembership", mock.Anything, matchMembership(100, "member", true)).Return(nil)

	tracker.HandleChatMember(context.Background(), &tgbotapi.ChatMemberUpdated{
		Chat:          freeChannelChat(),
		OldChatMember: tgbotapi.ChatMember{Status: "left"},
		NewChatMember: tgbotapi.ChatMember{
			Status: "member",
			User:   &tgbotapi.User{ID: 100, UserName: "ivan", FirstName: "Иван", LastName: "Иванов"},
		},
	})

	db.AssertExpectations(t)
}

func TestTracker_ChatMemberLeave(t *testing.T) {
	db := new(MembershipStorageMock)
	tracker := newTracker(db, new(ApproverMock))

	db.On("UpsertMembership", mock.Anything, matchMembership(100, "kicked", false)).Return(nil)

	tracker.HandleChatMember(context.Background(), &tgbotapi.ChatMemberUpdated{
		Chat:          freeChannelChat(),
		OldChatMember: tgbotapi.ChatMember{Status: "member"},
		NewChatMember: tgbotapi.ChatMember{
			Status: "kicked",
			User:   &tgbotapi.User{ID: 100, UserName: "ivan"},
		},
	})

	db.AssertExpectations(t)
}

func TestTracker_IgnoresOtherChannels(t *testing.T) {
	db := new(MembershipStorageMock)
	approver := new(ApproverMock)
	tracker := newTracker(db, approver)
	ctx := context.Background()

	tracker.HandleChatMember(ctx, &tgbotapi.ChatMemberUpdated{
		Chat:          tgbotapi.Chat{ID: -1009999},
		OldChatMember: tgbotapi.ChatMember{Status: "left"},
		NewChatMember: tgbotapi.ChatMember{
			Status: "member",
			User:   &tgbotapi.User{ID: 100},
		},
	})
	tracker.HandleJoinRequest(ctx, &tgbotapi.ChatJoinRequest{
		Chat: tgbotapi.Chat{ID: -1009999},
		From: tgbotapi.User{ID: 100},
	})

	db.AssertNotCalled(t, "UpsertMembership", mock.Anything, mock.Anything)
	approver.AssertNotCalled(t, "ApproveJoinRequest", mock.Anything, mock.Anything)
}

func TestTracker_IgnoresStatusChangeWithinChannel(t *testing.T) {
	db := new(MembershipStorageMock)
	tracker := newTracker(db, new(ApproverMock))

	// member -> administrator: пользователь как был в канале, так и остался
	tracker.HandleChatMember(context.Background(), &tgbotapi.ChatMemberUpdated{
		Chat:          freeChannelChat(),
		OldChatMember: tgbotapi.ChatMember{Status: "member"},
		NewChatMember: tgbotapi.ChatMember{
			Status: "administrator",
			User:   &tgbotapi.User{ID: 100},
		},
	})

	db.AssertNotCalled(t, "UpsertMembership", mock.Anything, mock.Anything)
}

func TestTracker_JoinRequestApprovedAndRecorded(t *testing.T) {
	db := new(MembershipStorageMock)
	approver := new(ApproverMock)
	tracker := newTracker(db, approver)

	approver.On("ApproveJoinRequest", testFreeChannel, int64(100)).Return(nil)
	db.On("UpsertMembership", mock.Anything, matchMembership(100, "member", true)).Return(nil)

	tracker.HandleJoinRequest(context.Background(), &tgbotapi.ChatJoinRequest{
		Chat: freeChannelChat(),
		From: tgbotapi.User{ID: 100, UserName: "ivan"},
	})

	approver.AssertExpectations(t)
	db.AssertExpectations(t)
}

func TestTracker_JoinRequestRecordedDespiteApproveFailure(t *testing.T) {
	db := new(MembershipStorageMock)
	approver := new(ApproverMock)
	tracker := newTracker(db, approver)

	approver.On("ApproveJoinRequest", testFreeChannel, int64(100)).Return(errors.New("CHAT_ADMIN_REQUIRED"))
	db.On("UpsertMembership", mock.Anything, matchMembership(100, "member", true)).Return(nil)

	tracker.HandleJoinRequest(context.Background(), &tgbotapi.ChatJoinRequest{
		Chat: freeChannelChat(),
		From: tgbotapi.User{ID: 100},
	})

	db.AssertExpectations(t)
}

func TestTracker_ServiceMessagesSkipBots(t *testing.T) {
	db := new(MembershipStorageMock)
	tracker := newTracker(db, new(ApproverMock))
	ctx := context.Background()

	db.On("UpsertMembership", mock.Anything, matchMembership(100, "member", true)).Return(nil)
	db.On("UpsertMembership", mock.Anything, matchMembership(200, "left", false)).Return(nil)

	chat := freeChannelChat()
	tracker.HandleNewChatMembers(ctx, &tgbotapi.Message{
		Chat: &chat,
		NewChatMembers: []tgbotapi.User{
			{ID: 100, UserName: "ivan"},
			{ID: 5, UserName: "helper_bot", IsBot: true},
		},
	})
	tracker.HandleLeftChatMember(ctx, &tgbotapi.Message{
		Chat:           &chat,
		LeftChatMember: &tgbotapi.User{ID: 200, UserName: "petr"},
	})

	db.AssertExpectations(t)
	db.AssertNumberOfCalls(t, "UpsertMembership", 2)
}
