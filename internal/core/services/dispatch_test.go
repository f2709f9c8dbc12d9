package services

import (
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"opsdeck/internal/core/domain"
)

type fakeConvRepo struct {
	domain.ConversationRepository
	conversations map[int64]*domain.Conversation
	claimErr      error
	resetCalls    int
}

func (f *fakeConvRepo) GetConversationByID(_ context.Context, id int64) (*domain.Conversation, error) {
	c, ok := f.conversations[id]
	if !ok {
		return nil, domain.ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeConvRepo) Claim(_ context.Context, convID, userID int64) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	c := f.conversations[convID]
	c.AssignmentStatus = domain.AssignmentClaimed
	c.AssignedUserID = userID
	return nil
}

func (f *fakeConvRepo) Release(_ context.Context, convID, userID int64) error {
	c := f.conversations[convID]
	if c.AssignedUserID != userID {
		return domain.ErrNotClaimedByUser
	}
	c.AssignmentStatus = domain.AssignmentOpen
	c.AssignedUserID = 0
	return nil
}

func (f *fakeConvRepo) ResetUnread(_ context.Context, convID int64) error {
	f.resetCalls++
	f.conversations[convID].UnreadCount = 0
	return nil
}

type fakeMsgRepo struct {
	domain.MessageRepository
	byExternalID map[string]*domain.Message
	messages     []domain.Message
}

func (f *fakeMsgRepo) FindByExternalID(_ context.Context, externalID string) (*domain.Message, error) {
	if m, ok := f.byExternalID[externalID]; ok {
		return m, nil
	}
	return nil, domain.ErrDuplicateMessage
}

func (f *fakeMsgRepo) ListMessages(_ context.Context, convID int64) ([]domain.Message, error) {
	var out []domain.Message
	for _, m := range f.messages {
		if m.ConversationID == convID {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeNotifier struct {
	mu           sync.Mutex
	userPushes   []domain.DispatchNotification
	groupPushes  []domain.DispatchNotification
	unreadCounts []int
}

func (f *fakeNotifier) PushToUser(_ int64, n domain.DispatchNotification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userPushes = append(f.userPushes, n)
}

func (f *fakeNotifier) PushToVenture(_ int64, n domain.DispatchNotification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.groupPushes = append(f.groupPushes, n)
}

func (f *fakeNotifier) PushUnreadCount(_ int64, count int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unreadCounts = append(f.unreadCounts, count)
}

type fakeQueue struct {
	mu        sync.Mutex
	published [][]byte
}

func (f *fakeQueue) PublishToStream(_ context.Context, _ string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, payload)
	return nil
}

func (f *fakeQueue) SubscribeToStream(ctx context.Context, _, _ string, _ func(context.Context, string, []byte) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeQueue) AcknowledgeMessage(context.Context, string, string, string) error { return nil }
func (f *fakeQueue) DeleteMessage(context.Context, string, string) error              { return nil }

func newDispatchFixture(convs ...*domain.Conversation) (*DispatchService, *fakeConvRepo, *fakeMsgRepo, *fakeNotifier) {
	log := slog.New(slog.DiscardHandler)
	convRepo := &fakeConvRepo{conversations: make(map[int64]*domain.Conversation)}
	for _, c := range convs {
		convRepo.conversations[c.ID] = c
	}
	msgRepo := &fakeMsgRepo{byExternalID: make(map[string]*domain.Message)}
	notifier := &fakeNotifier{}
	audit := NewAuditService(log, &fakeQueue{}, "audit:events")
	svc := NewDispatchService(log, convRepo, msgRepo, notifier, audit, nil)
	return svc, convRepo, msgRepo, notifier
}

func dispatcherIn(venture int64) domain.SessionUser {
	return domain.SessionUser{ID: 9, FullName: "Dana Ops", Role: domain.RoleDispatcher, VentureIDs: []int64{venture}}
}

func TestClaimPushesToVentureGroup(t *testing.T) {
	t.Parallel()
	svc, repo, _, notifier := newDispatchFixture(&domain.Conversation{
		ID: 5, VentureID: 1, AssignmentStatus: domain.AssignmentOpen,
	})

	err := svc.Claim(context.Background(), dispatcherIn(1), 5)
	require.NoError(t, err)

	assert.Equal(t, int64(9), repo.conversations[5].AssignedUserID)
	require.Len(t, notifier.groupPushes, 1)
	push := notifier.groupPushes[0]
	assert.Equal(t, domain.EventConversationClaimed, push.Type)
	assert.Equal(t, int64(5), push.ConversationID)
	assert.Equal(t, int64(9), push.DispatcherID)
	assert.Equal(t, "Dana Ops", push.DispatcherName)
}

func TestClaimLostRaceNoPush(t *testing.T) {
	t.Parallel()
	svc, repo, _, notifier := newDispatchFixture(&domain.Conversation{
		ID: 5, VentureID: 1, AssignmentStatus: domain.AssignmentOpen,
	})
	repo.claimErr = domain.ErrAlreadyClaimed

	err := svc.Claim(context.Background(), dispatcherIn(1), 5)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)
	assert.Empty(t, notifier.groupPushes)
}

func TestClaimOutsideScopeForbidden(t *testing.T) {
	t.Parallel()
	svc, _, _, notifier := newDispatchFixture(&domain.Conversation{
		ID: 5, VentureID: 2, AssignmentStatus: domain.AssignmentOpen,
	})

	err := svc.Claim(context.Background(), dispatcherIn(1), 5)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, notifier.groupPushes)
}

func TestClaimUnknownConversation(t *testing.T) {
	t.Parallel()
	svc, _, _, _ := newDispatchFixture()
	err := svc.Claim(context.Background(), dispatcherIn(1), 404)
	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestReleaseByNonHolderRejected(t *testing.T) {
	t.Parallel()
	svc, _, _, notifier := newDispatchFixture(&domain.Conversation{
		ID: 5, VentureID: 1, AssignmentStatus: domain.AssignmentClaimed, AssignedUserID: 77,
	})

	err := svc.Release(context.Background(), dispatcherIn(1), 5)
	assert.ErrorIs(t, err, domain.ErrNotClaimedByUser)
	assert.Empty(t, notifier.groupPushes)
}

func TestReleasePushesToVentureGroup(t *testing.T) {
	t.Parallel()
	svc, repo, _, notifier := newDispatchFixture(&domain.Conversation{
		ID: 5, VentureID: 1, AssignmentStatus: domain.AssignmentClaimed, AssignedUserID: 9,
	})

	err := svc.Release(context.Background(), dispatcherIn(1), 5)
	require.NoError(t, err)
	assert.Equal(t, domain.AssignmentOpen, repo.conversations[5].AssignmentStatus)
	require.Len(t, notifier.groupPushes, 1)
	assert.Equal(t, domain.EventConversationReleased, notifier.groupPushes[0].Type)
}

func TestGetConversationResetsUnreadForAssignee(t *testing.T) {
	t.Parallel()
	svc, repo, _, _ := newDispatchFixture(&domain.Conversation{
		ID: 5, VentureID: 1, AssignedUserID: 9, UnreadCount: 4,
	})

	conv, _, err := svc.GetConversation(context.Background(), dispatcherIn(1), 5)
	require.NoError(t, err)
	assert.Equal(t, 0, conv.UnreadCount)
	assert.Equal(t, 1, repo.resetCalls)
}

func TestGetConversationLeavesUnreadForOthers(t *testing.T) {
	t.Parallel()
	svc, repo, _, _ := newDispatchFixture(&domain.Conversation{
		ID: 5, VentureID: 1, AssignedUserID: 77, UnreadCount: 4,
	})

	conv, _, err := svc.GetConversation(context.Background(), dispatcherIn(1), 5)
	require.NoError(t, err)
	assert.Equal(t, 4, conv.UnreadCount)
	assert.Zero(t, repo.resetCalls)
}

func TestSendMessageRequiresClaim(t *testing.T) {
	t.Parallel()
	svc, _, _, notifier := newDispatchFixture(&domain.Conversation{
		ID: 5, VentureID: 1, AssignmentStatus: domain.AssignmentClaimed, AssignedUserID: 77,
	})

	_, err := svc.SendMessage(context.Background(), dispatcherIn(1), 5, "hello")
	assert.ErrorIs(t, err, domain.ErrNotClaimedByUser)
	assert.Empty(t, notifier.groupPushes)
}

func TestHandleInboundDuplicateDeliveryIsSilentSuccess(t *testing.T) {
	t.Parallel()
	svc, _, msgRepo, notifier := newDispatchFixture()
	msgRepo.byExternalID["ext-1"] = &domain.Message{ID: 3, ConversationID: 5, ExternalID: "ext-1"}

	err := svc.HandleInbound(context.Background(), InboundMessage{
		VentureID:   1,
		Channel:     domain.ChannelSMS,
		FromAddress: "+15550001111",
		Body:        "same message again",
		ExternalID:  "ext-1",
	})
	require.NoError(t, err)
	assert.Empty(t, notifier.groupPushes)
	assert.Empty(t, notifier.unreadCounts)
}
