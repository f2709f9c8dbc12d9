package services

import (
	"context"
	"log/slog"
	"time"

	"opsdeck/internal/core/contracts"
	"opsdeck/internal/core/domain"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("dispatch-service")

// InboundMessage is a provider webhook payload normalized by the handler.
type InboundMessage struct {
	VentureID   int64
	Channel     domain.Channel
	FromAddress string
	ToAddress   string
	Body        string
	ExternalID  string
}

// DispatchService owns the dispatch inbox: conversations, their claim
// lifecycle, and the message flow in both directions. Every state change
// persists first, then fires a best-effort live push and an audit entry.
type DispatchService struct {
	log       *slog.Logger
	convRepo  domain.ConversationRepository
	msgRepo   domain.MessageRepository
	notifier  contracts.Notifier
	audit     *AuditService
	txManager *TxManager
}

func NewDispatchService(
	log *slog.Logger,
	convRepo domain.ConversationRepository,
	msgRepo domain.MessageRepository,
	notifier contracts.Notifier,
	audit *AuditService,
	txManager *TxManager,
) *DispatchService {
	return &DispatchService{
		log:       log,
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		notifier:  notifier,
		audit:     audit,
		txManager: txManager,
	}
}

func (s *DispatchService) ListInbox(
	ctx context.Context,
	user domain.SessionUser,
	f domain.ConversationFilter,
) ([]domain.Conversation, int, error) {
	return s.convRepo.ListConversations(ctx, domain.ScopeFor(user), f)
}

// GetConversation returns a thread with its messages. When the assigned
// dispatcher opens it, unread resets.
func (s *DispatchService) GetConversation(
	ctx context.Context,
	user domain.SessionUser,
	convID int64,
) (*domain.Conversation, []domain.Message, error) {
	conv, err := s.convRepo.GetConversationByID(ctx, convID)
	if err != nil {
		return nil, nil, err
	}
	if !domain.ScopeFor(user).CanAccessVenture(conv.VentureID) {
		return nil, nil, domain.ErrForbidden
	}
	msgs, err := s.msgRepo.ListMessages(ctx, convID)
	if err != nil {
		return nil, nil, err
	}
	if conv.AssignedUserID == user.ID && conv.UnreadCount > 0 {
		if err := s.convRepo.ResetUnread(ctx, convID); err != nil {
			s.log.WarnContext(ctx, "dispatch - get conversation - reset unread failed", "conv_id", convID, "err", err)
		} else {
			conv.UnreadCount = 0
		}
	}
	return conv, msgs, nil
}

// Claim assigns an open conversation to the caller. The persist is the source
// of truth; losing the race yields ErrAlreadyClaimed and no push.
func (s *DispatchService) Claim(ctx context.Context, user domain.SessionUser, convID int64) error {
	ctx, span := tracer.Start(ctx, "DispatchService.Claim", trace.WithAttributes(
		attribute.Int64("user_id", user.ID),
		attribute.Int64("conv_id", convID),
	))
	defer span.End()
	conv, err := s.convRepo.GetConversationByID(ctx, convID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if !domain.ScopeFor(user).CanAccessVenture(conv.VentureID) {
		return domain.ErrForbidden
	}
	if err := s.convRepo.Claim(ctx, convID, user.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "claim failed")
		s.log.WarnContext(ctx, "dispatch - claim - rejected", "conv_id", convID, "user_id", user.ID, "err", err)
		return err
	}
	s.log.InfoContext(ctx, "dispatch - claim - success", "conv_id", convID, "user_id", user.ID)
	s.notifier.PushToVenture(conv.VentureID, domain.DispatchNotification{
		Type:           domain.EventConversationClaimed,
		ConversationID: convID,
		DispatcherID:   user.ID,
		DispatcherName: user.FullName,
	})
	s.audit.Record(ctx, AuditEntry{
		ActorID:   user.ID,
		Action:    "conversation.claim",
		Entity:    "conversation",
		EntityID:  convID,
		VentureID: conv.VentureID,
	})
	return nil
}

// Release returns a claimed conversation to the open pool. Only the holder
// may release; the repo enforces that atomically.
func (s *DispatchService) Release(ctx context.Context, user domain.SessionUser, convID int64) error {
	ctx, span := tracer.Start(ctx, "DispatchService.Release", trace.WithAttributes(
		attribute.Int64("user_id", user.ID),
		attribute.Int64("conv_id", convID),
	))
	defer span.End()
	conv, err := s.convRepo.GetConversationByID(ctx, convID)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if err := s.convRepo.Release(ctx, convID, user.ID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "release failed")
		s.log.WarnContext(ctx, "dispatch - release - rejected", "conv_id", convID, "user_id", user.ID, "err", err)
		return err
	}
	s.log.InfoContext(ctx, "dispatch - release - success", "conv_id", convID, "user_id", user.ID)
	s.notifier.PushToVenture(conv.VentureID, domain.DispatchNotification{
		Type:           domain.EventConversationReleased,
		ConversationID: convID,
		DispatcherID:   user.ID,
		DispatcherName: user.FullName,
	})
	s.audit.Record(ctx, AuditEntry{
		ActorID:   user.ID,
		Action:    "conversation.release",
		Entity:    "conversation",
		EntityID:  convID,
		VentureID: conv.VentureID,
	})
	return nil
}

// SendMessage records an outbound reply on a conversation the caller holds.
func (s *DispatchService) SendMessage(
	ctx context.Context,
	user domain.SessionUser,
	convID int64,
	body string,
) (*domain.Message, error) {
	ctx, span := tracer.Start(ctx, "DispatchService.SendMessage", trace.WithAttributes(
		attribute.Int64("user_id", user.ID),
		attribute.Int64("conv_id", convID),
	))
	defer span.End()
	conv, err := s.convRepo.GetConversationByID(ctx, convID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if conv.AssignedUserID != user.ID {
		return nil, domain.ErrNotClaimedByUser
	}
	msg := &domain.Message{
		ConversationID: convID,
		Direction:      domain.DirectionOutbound,
		Channel:        conv.Channel,
		ToAddress:      conv.ExternalAddress,
		Body:           body,
		ExternalID:     uuid.NewString(),
		SentAt:         time.Now(),
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		id, err := s.msgRepo.CreateMessage(txCtx, msg)
		if err != nil {
			return err
		}
		msg.ID = id
		if err := s.convRepo.TouchLastMessage(txCtx, convID, false); err != nil {
			return err
		}
		return s.convRepo.ResetUnread(txCtx, convID)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.log.ErrorContext(ctx, "dispatch - send message - persist failed", "conv_id", convID, "user_id", user.ID, "err", err)
		return nil, err
	}
	s.notifier.PushToVenture(conv.VentureID, domain.DispatchNotification{
		Type:           domain.EventNewMessage,
		ConversationID: convID,
		Message:        body,
		Channel:        conv.Channel,
		DispatcherID:   user.ID,
		DispatcherName: user.FullName,
	})
	s.audit.Record(ctx, AuditEntry{
		ActorID:   user.ID,
		Action:    "message.send",
		Entity:    "conversation",
		EntityID:  convID,
		VentureID: conv.VentureID,
	})
	return msg, nil
}

// HandleInbound ingests one provider webhook delivery. Redeliveries dedupe
// on the external id and succeed silently. Push failures never surface to the
// provider: the message is durable and the inbox will show it on next fetch.
func (s *DispatchService) HandleInbound(ctx context.Context, in InboundMessage) error {
	ctx, span := tracer.Start(ctx, "DispatchService.HandleInbound", trace.WithAttributes(
		attribute.Int64("venture_id", in.VentureID),
		attribute.String("channel", string(in.Channel)),
		attribute.String("external_id", in.ExternalID),
	))
	defer span.End()
	if in.ExternalID != "" {
		if existing, err := s.msgRepo.FindByExternalID(ctx, in.ExternalID); err == nil && existing != nil {
			s.log.InfoContext(ctx, "dispatch - handle inbound - duplicate delivery", "external_id", in.ExternalID, "message_id", existing.ID)
			return nil
		}
	}
	conv, err := s.convRepo.FindOpenByAddress(ctx, in.Channel, in.FromAddress)
	created := false
	if err != nil || conv == nil {
		conv = &domain.Conversation{
			VentureID:        in.VentureID,
			Channel:          in.Channel,
			ExternalAddress:  in.FromAddress,
			Status:           "OPEN",
			AssignmentStatus: domain.AssignmentOpen,
		}
		id, err := s.convRepo.CreateConversation(ctx, conv)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "create conversation failed")
			s.log.ErrorContext(ctx, "dispatch - handle inbound - create conversation failed", "from", in.FromAddress, "err", err)
			return err
		}
		conv.ID = id
		created = true
	}
	msg := &domain.Message{
		ConversationID: conv.ID,
		Direction:      domain.DirectionInbound,
		Channel:        in.Channel,
		FromAddress:    in.FromAddress,
		ToAddress:      in.ToAddress,
		Body:           in.Body,
		ExternalID:     in.ExternalID,
		SentAt:         time.Now(),
	}
	if err := s.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.msgRepo.CreateMessage(txCtx, msg); err != nil {
			return err
		}
		return s.convRepo.TouchLastMessage(txCtx, conv.ID, true)
	}); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		s.log.ErrorContext(ctx, "dispatch - handle inbound - persist failed", "conv_id", conv.ID, "err", err)
		return err
	}
	s.log.InfoContext(ctx, "dispatch - handle inbound - success", "conv_id", conv.ID, "created", created)
	if created {
		s.notifier.PushToVenture(conv.VentureID, domain.DispatchNotification{
			Type:           domain.EventNewConversation,
			ConversationID: conv.ID,
			FromAddress:    in.FromAddress,
			Channel:        in.Channel,
		})
	}
	s.notifier.PushToVenture(conv.VentureID, domain.DispatchNotification{
		Type:           domain.EventNewMessage,
		ConversationID: conv.ID,
		Message:        in.Body,
		FromAddress:    in.FromAddress,
		Channel:        in.Channel,
	})
	if conv.AssignedUserID != 0 {
		s.notifier.PushUnreadCount(conv.AssignedUserID, conv.UnreadCount+1)
	}
	s.audit.Record(ctx, AuditEntry{
		Action:    "message.inbound",
		Entity:    "conversation",
		EntityID:  conv.ID,
		VentureID: conv.VentureID,
	})
	return nil
}
