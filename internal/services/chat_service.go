package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"backoffice-chat/internal/domain/actor"
	"backoffice-chat/internal/domain/chat"
	"backoffice-chat/internal/events"
	"backoffice-chat/internal/mention"
	"backoffice-chat/internal/ratelimit"
	"backoffice-chat/internal/repository"
	chaterrors "backoffice-chat/pkg/errors"
	"backoffice-chat/pkg/logger"
)

// Broadcaster republishes committed state changes to live connections.
// Implementations must never fail the caller; the hub satisfies this.
type Broadcaster interface {
	BroadcastToConversation(conversationID uuid.UUID, env events.Envelope)
	// EvictFromRoom detaches an actor's live connections from a
	// conversation room after their membership ends.
	EvictFromRoom(conversationID uuid.UUID, a actor.Actor)
}

// MentionRoster supplies the candidate snapshot for the scanner.
type MentionRoster interface {
	Candidates() []mention.Candidate
}

const (
	defaultPageLimit = 50
	maxPageLimit     = 100
)

type ChatService struct {
	store        repository.Store
	limiter      ratelimit.Limiter
	roster       MentionRoster
	broadcaster  Broadcaster
	audit        AuditSink
	log          *logger.Logger
	storeTimeout time.Duration
}

func NewChatService(
	store repository.Store,
	limiter ratelimit.Limiter,
	roster MentionRoster,
	broadcaster Broadcaster,
	audit AuditSink,
	log *logger.Logger,
	storeTimeout time.Duration,
) *ChatService {
	return &ChatService{
		store:        store,
		limiter:      limiter,
		roster:       roster,
		broadcaster:  broadcaster,
		audit:        audit,
		log:          log,
		storeTimeout: storeTimeout,
	}
}

// boundCtx caps every store interaction so a stuck database surfaces as
// a transient error instead of a hung request.
func (s *ChatService) boundCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// runHooks executes post-commit side effects with per-hook isolation.
// A panicking or failing hook never affects the committed state or the
// other hooks.
func (s *ChatService) runHooks(hooks []func()) {
	for _, hook := range hooks {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Errorf("post-commit hook panicked: %v", r)
				}
			}()
			hook()
		}()
	}
}

type CreateConversationInput struct {
	Type               string
	CustomerID         uuid.UUID
	Title              string
	AdditionalStaffIDs []uuid.UUID
}

// CreateConversation creates a conversation and seeds its participants
// in one transaction. For CUSTOMER_DM it is idempotent per customer:
// concurrent calls converge on a single conversation.
func (s *ChatService) CreateConversation(ctx context.Context, a actor.Actor, in CreateConversationInput) (chat.Conversation, error) {
	if !a.IsStaff() {
		return chat.Conversation{}, chaterrors.ErrForbidden
	}
	switch in.Type {
	case chat.TypeCustomerDM:
		if in.CustomerID == uuid.Nil {
			return chat.Conversation{}, fmt.Errorf("%w: CUSTOMER_DM requires a customer", chaterrors.ErrValidation)
		}
	case chat.TypeStaffGroup, chat.TypeStaffDM:
		if in.CustomerID != uuid.Nil {
			return chat.Conversation{}, fmt.Errorf("%w: staff conversation cannot carry a customer", chaterrors.ErrValidation)
		}
	default:
		return chat.Conversation{}, fmt.Errorf("%w: unknown conversation type %q", chaterrors.ErrValidation, in.Type)
	}

	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	var conv chat.Conversation
	created := false
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		if in.Type == chat.TypeCustomerDM {
			existing, err := tx.Conversations().FindCustomerDM(ctx, in.CustomerID)
			if err == nil {
				conv = existing
				return nil
			}
			if !errors.Is(err, chaterrors.ErrNotFound) {
				return err
			}
		}

		now := time.Now()
		conv = chat.Conversation{
			ID:               uuid.New(),
			Type:             in.Type,
			Title:            nullString(in.Title),
			CreatedByStaffID: uuid.NullUUID{UUID: a.StaffID, Valid: true},
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if in.Type == chat.TypeCustomerDM {
			conv.CustomerID = uuid.NullUUID{UUID: in.CustomerID, Valid: true}
		}
		if err := conv.Validate(); err != nil {
			return fmt.Errorf("%w: %v", chaterrors.ErrValidation, err)
		}
		if err := tx.Conversations().Create(ctx, &conv); err != nil {
			return err
		}

		for _, p := range seedParticipants(conv, a, in) {
			p := p
			if err := tx.Conversations().AddParticipant(ctx, &p); err != nil {
				return err
			}
		}
		created = true
		return nil
	})
	if errors.Is(err, chaterrors.ErrConflict) && in.Type == chat.TypeCustomerDM {
		// Lost the creation race; the winner's conversation is the result.
		return s.store.Conversations().FindCustomerDM(ctx, in.CustomerID)
	}
	if err != nil {
		return chat.Conversation{}, err
	}

	if created {
		s.runHooks([]func(){
			func() {
				s.broadcaster.BroadcastToConversation(conv.ID,
					events.New(events.EventConversationCreated, conv.ID, conv))
			},
			func() {
				s.audit.Append(events.AuditConversationCreated, a, "conversation", conv.ID, in.Type)
			},
		})
	}
	return conv, nil
}

func seedParticipants(conv chat.Conversation, a actor.Actor, in CreateConversationInput) []chat.Participant {
	now := time.Now()
	seen := map[uuid.UUID]bool{a.StaffID: true}
	participants := []chat.Participant{{
		ID:             uuid.New(),
		ConversationID: conv.ID,
		StaffID:        uuid.NullUUID{UUID: a.StaffID, Valid: true},
		JoinedAt:       now,
	}}
	if conv.Type == chat.TypeCustomerDM {
		participants = append(participants, chat.Participant{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			CustomerID:     uuid.NullUUID{UUID: in.CustomerID, Valid: true},
			JoinedAt:       now,
		})
		return participants
	}
	for _, staffID := range in.AdditionalStaffIDs {
		if staffID == uuid.Nil || seen[staffID] {
			continue
		}
		seen[staffID] = true
		participants = append(participants, chat.Participant{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			StaffID:        uuid.NullUUID{UUID: staffID, Valid: true},
			JoinedAt:       now,
		})
	}
	return participants
}

// requireAccess loads the conversation and the caller's active
// participant row, enforcing the conversation-type access rule.
func requireAccess(ctx context.Context, tx repository.Store, conversationID uuid.UUID, a actor.Actor) (chat.Conversation, chat.Participant, error) {
	conv, err := tx.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return chat.Conversation{}, chat.Participant{}, err
	}
	if a.IsCustomer() && conv.Type != chat.TypeCustomerDM {
		return chat.Conversation{}, chat.Participant{}, chaterrors.ErrForbidden
	}
	p, err := tx.Conversations().FindActiveParticipant(ctx, conversationID, a)
	if err != nil {
		if errors.Is(err, chaterrors.ErrNotFound) {
			return chat.Conversation{}, chat.Participant{}, chaterrors.ErrNotAParticipant
		}
		return chat.Conversation{}, chat.Participant{}, err
	}
	return conv, p, nil
}

// CanAccessConversation is the gateway's room-join check: active
// membership plus the conversation-type rule, verified against the
// store on every join.
func (s *ChatService) CanAccessConversation(ctx context.Context, conversationID uuid.UUID, a actor.Actor) error {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()
	_, _, err := requireAccess(ctx, s.store, conversationID, a)
	return err
}

// AddParticipant adds a staff member to a staff conversation. Adding to
// a CUSTOMER_DM is structurally disallowed. Idempotent: an existing
// active row is returned unchanged.
func (s *ChatService) AddParticipant(ctx context.Context, a actor.Actor, conversationID, staffID uuid.UUID) (chat.Participant, error) {
	if !a.IsStaff() {
		return chat.Participant{}, chaterrors.ErrForbidden
	}
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	var (
		p       chat.Participant
		addedID uuid.UUID
		name    string
	)
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		conv, _, err := requireAccess(ctx, tx, conversationID, a)
		if err != nil {
			return err
		}
		if conv.Type == chat.TypeCustomerDM {
			return chaterrors.ErrInvalidOperation
		}

		target := actor.Staff(staffID, "")
		existing, err := tx.Conversations().FindActiveParticipant(ctx, conversationID, target)
		if err == nil {
			p = existing
			return nil
		}
		if !errors.Is(err, chaterrors.ErrNotFound) {
			return err
		}

		staff, err := tx.Directory().GetStaff(ctx, staffID)
		if err != nil {
			return err
		}
		name = staff.FullName

		p = chat.Participant{
			ID:             uuid.New(),
			ConversationID: conversationID,
			StaffID:        uuid.NullUUID{UUID: staffID, Valid: true},
			JoinedAt:       time.Now(),
		}
		if err := tx.Conversations().AddParticipant(ctx, &p); err != nil {
			return err
		}
		if err := writeSystemMessage(ctx, tx, conversationID, fmt.Sprintf("%s joined the conversation", name)); err != nil {
			return err
		}
		addedID = staffID
		return nil
	})
	if err != nil {
		return chat.Participant{}, err
	}

	if addedID != uuid.Nil {
		s.runHooks([]func(){
			func() {
				s.broadcaster.BroadcastToConversation(conversationID,
					events.New(events.EventUserJoined, conversationID, p))
			},
			func() {
				s.audit.Append(events.AuditParticipantAdded, a, "participant", p.ID, name)
			},
		})
	}
	return p, nil
}

// RemoveParticipant marks a staff member as having left. Removing from
// a CUSTOMER_DM is disallowed; removing someone who already left is an
// error.
func (s *ChatService) RemoveParticipant(ctx context.Context, a actor.Actor, conversationID, staffID uuid.UUID) error {
	if !a.IsStaff() {
		return chaterrors.ErrForbidden
	}
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	var name string
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		conv, _, err := requireAccess(ctx, tx, conversationID, a)
		if err != nil {
			return err
		}
		if conv.Type == chat.TypeCustomerDM {
			return chaterrors.ErrInvalidOperation
		}

		target := actor.Staff(staffID, "")
		p, err := tx.Conversations().FindActiveParticipant(ctx, conversationID, target)
		if err != nil {
			if errors.Is(err, chaterrors.ErrNotFound) {
				return chaterrors.ErrNotAParticipant
			}
			return err
		}
		if err := tx.Conversations().MarkLeft(ctx, p.ID, time.Now()); err != nil {
			return err
		}

		name = staffID.String()
		if staff, err := tx.Directory().GetStaff(ctx, staffID); err == nil {
			name = staff.FullName
		}
		return writeSystemMessage(ctx, tx, conversationID, fmt.Sprintf("%s left the conversation", name))
	})
	if err != nil {
		return err
	}

	s.runHooks([]func(){
		func() {
			s.broadcaster.BroadcastToConversation(conversationID,
				events.New(events.EventUserLeft, conversationID, map[string]string{"staff_id": staffID.String()}))
		},
		func() {
			s.broadcaster.EvictFromRoom(conversationID, actor.Staff(staffID, ""))
		},
		func() {
			s.audit.Append(events.AuditParticipantRemoved, a, "participant", staffID, name)
		},
	})
	return nil
}

func writeSystemMessage(ctx context.Context, tx repository.Store, conversationID uuid.UUID, body string) error {
	msg := chat.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		Type:           chat.MessageSystem,
		Body:           nullString(body),
		CreatedAt:      time.Now(),
	}
	if err := tx.Messages().Create(ctx, &msg); err != nil {
		return err
	}
	return tx.Conversations().TouchLastMessage(ctx, conversationID, msg.CreatedAt)
}

type SendMessageInput struct {
	Type     string
	Body     string
	Metadata string
}

// EnrichedMessage carries the committed message plus display info
// joined outside the transaction.
type EnrichedMessage struct {
	chat.Message
	SenderName string `json:"sender_name,omitempty"`
}

// SendMessage persists a message, bumps conversation activity and runs
// the mention scan, all inside one transaction; rejection by the rate
// governor happens before any side effect.
func (s *ChatService) SendMessage(ctx context.Context, a actor.Actor, conversationID uuid.UUID, in SendMessageInput) (EnrichedMessage, error) {
	decision, err := s.limiter.AllowSend(ctx, actorKey(a), actorKey(a)+":"+conversationID.String())
	if err != nil {
		return EnrichedMessage{}, err
	}
	if !decision.Allowed {
		return EnrichedMessage{}, chaterrors.RateLimited(decision.RetryAfter)
	}

	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	var (
		msg  chat.Message
		pins []chat.ReviewPin
	)
	err = s.store.WithTransaction(ctx, func(tx repository.Store) error {
		conv, _, err := requireAccess(ctx, tx, conversationID, a)
		if err != nil {
			return err
		}

		msg = chat.Message{
			ID:             uuid.New(),
			ConversationID: conversationID,
			Type:           in.Type,
			Body:           nullString(in.Body),
			Metadata:       nullString(in.Metadata),
			CreatedAt:      time.Now(),
		}
		if a.IsCustomer() {
			msg.SenderCustomerID = uuid.NullUUID{UUID: a.CustomerID, Valid: true}
		} else {
			msg.SenderStaffID = uuid.NullUUID{UUID: a.StaffID, Valid: true}
		}
		if err := msg.Validate(); err != nil {
			return fmt.Errorf("%w: %v", chaterrors.ErrValidation, err)
		}
		if err := tx.Messages().Create(ctx, &msg); err != nil {
			return err
		}
		if err := tx.Conversations().TouchLastMessage(ctx, conversationID, msg.CreatedAt); err != nil {
			return err
		}

		// Mentions are scanned only for staff text in staff groups:
		// customer DMs and staff DMs must not surface unrelated names.
		if msg.Type == chat.MessageText && a.IsStaff() && conv.Type == chat.TypeStaffGroup {
			pins, err = s.scanMentions(ctx, tx, msg, a)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return EnrichedMessage{}, err
	}

	enriched := EnrichedMessage{Message: msg, SenderName: s.senderName(ctx, a)}

	s.runHooks([]func(){
		func() {
			s.broadcaster.BroadcastToConversation(conversationID,
				events.New(events.EventNewMessage, conversationID, enriched))
		},
		func() {
			for _, pin := range pins {
				s.broadcaster.BroadcastToConversation(conversationID,
					events.New(events.EventPinCreated, conversationID, pin))
			}
		},
		func() {
			s.audit.Append(events.AuditMessageSent, a, "message", msg.ID, msg.Type)
		},
	})
	return enriched, nil
}

func (s *ChatService) scanMentions(ctx context.Context, tx repository.Store, msg chat.Message, a actor.Actor) ([]chat.ReviewPin, error) {
	matches := mention.Scan(msg.Body.String, s.roster.Candidates())
	if len(matches) == 0 {
		return nil, nil
	}

	var pins []chat.ReviewPin
	for _, m := range matches {
		_, err := tx.Pins().FindPin(ctx, msg.ID, m.EntityType, m.EntityID)
		if err == nil {
			continue
		}
		if !errors.Is(err, chaterrors.ErrNotFound) {
			return nil, err
		}
		pin := chat.ReviewPin{
			ID:                uuid.New(),
			ConversationID:    msg.ConversationID,
			SourceMessageID:   msg.ID,
			MatchedEntityType: m.EntityType,
			MatchedEntityID:   m.EntityID,
			Status:            chat.PinOpen,
			CreatedBy:         a.StaffID,
			CreatedAt:         time.Now(),
		}
		if err := tx.Pins().CreatePin(ctx, &pin); err != nil {
			return nil, err
		}
		pins = append(pins, pin)
	}
	return pins, nil
}

// senderName is a read-only display join; failures degrade to an empty
// name rather than failing the committed send.
func (s *ChatService) senderName(ctx context.Context, a actor.Actor) string {
	if a.IsCustomer() {
		if c, err := s.store.Directory().GetCustomer(ctx, a.CustomerID); err == nil {
			return c.Name
		}
		return ""
	}
	if st, err := s.store.Directory().GetStaff(ctx, a.StaffID); err == nil {
		return st.FullName
	}
	return ""
}

// EditMessage updates the body of the caller's own TEXT message.
func (s *ChatService) EditMessage(ctx context.Context, a actor.Actor, messageID uuid.UUID, body string) (chat.Message, error) {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	var msg chat.Message
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		var err error
		msg, err = tx.Messages().GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if !sentBy(msg, a) {
			return chaterrors.ErrForbidden
		}
		if msg.Type != chat.MessageText || msg.Deleted() {
			return chaterrors.ErrInvalidOperation
		}

		now := time.Now()
		candidate := msg
		candidate.Body = nullString(body)
		candidate.EditedAt = sql.NullTime{Time: now, Valid: true}
		if err := candidate.Validate(); err != nil {
			return fmt.Errorf("%w: %v", chaterrors.ErrValidation, err)
		}
		if err := tx.Messages().UpdateBody(ctx, messageID, body, now); err != nil {
			return err
		}
		msg = candidate
		return nil
	})
	if err != nil {
		return chat.Message{}, err
	}

	s.runHooks([]func(){
		func() {
			s.audit.Append(events.AuditMessageEdited, a, "message", messageID, "")
		},
	})
	return msg, nil
}

// DeleteMessage soft-deletes the caller's own message; staff admins may
// delete any message.
func (s *ChatService) DeleteMessage(ctx context.Context, a actor.Actor, messageID uuid.UUID) error {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	var conversationID uuid.UUID
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		msg, err := tx.Messages().GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if !sentBy(msg, a) && !(a.IsStaff() && a.Role == actor.RoleAdmin) {
			return chaterrors.ErrForbidden
		}
		if msg.Deleted() {
			return chaterrors.ErrNotFound
		}
		conversationID = msg.ConversationID
		return tx.Messages().SoftDelete(ctx, messageID)
	})
	if err != nil {
		return err
	}

	s.runHooks([]func(){
		func() {
			s.broadcaster.BroadcastToConversation(conversationID,
				events.New(events.EventMessageDeleted, conversationID, map[string]string{"message_id": messageID.String()}))
		},
		func() {
			s.audit.Append(events.AuditMessageDeleted, a, "message", messageID, "")
		},
	})
	return nil
}

// MarkRead advances the caller's own read marker.
func (s *ChatService) MarkRead(ctx context.Context, a actor.Actor, conversationID, messageID uuid.UUID) error {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		_, p, err := requireAccess(ctx, tx, conversationID, a)
		if err != nil {
			return err
		}
		msg, err := tx.Messages().GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if msg.ConversationID != conversationID {
			return fmt.Errorf("%w: message belongs to another conversation", chaterrors.ErrValidation)
		}
		return tx.Conversations().UpdateLastRead(ctx, p.ID, messageID)
	})
	if err != nil {
		return err
	}

	s.runHooks([]func(){
		func() {
			s.broadcaster.BroadcastToConversation(conversationID,
				events.New(events.EventMessageRead, conversationID, map[string]string{
					"message_id": messageID.String(),
					"actor_kind": string(a.Kind),
					"actor_id":   a.ID().String(),
				}))
		},
	})
	return nil
}

// DeleteConversation soft-deletes a conversation. Admin only; history
// is preserved.
func (s *ChatService) DeleteConversation(ctx context.Context, a actor.Actor, conversationID uuid.UUID) error {
	if !a.IsStaff() || a.Role != actor.RoleAdmin {
		return chaterrors.ErrForbidden
	}
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	if err := s.store.Conversations().SoftDelete(ctx, conversationID); err != nil {
		return err
	}

	s.runHooks([]func(){
		func() {
			s.broadcaster.BroadcastToConversation(conversationID,
				events.New(events.EventConversationDeleted, conversationID, nil))
		},
	})
	return nil
}

// ListConversations returns the caller's active conversations, newest
// activity first.
func (s *ChatService) ListConversations(ctx context.Context, a actor.Actor, page, limit int) ([]chat.Conversation, int64, error) {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return s.store.Conversations().ListForActor(ctx, a, page, limit)
}

// ListMessages pages a conversation the caller belongs to, newest
// first, cursor-paginated by message id.
func (s *ChatService) ListMessages(ctx context.Context, a actor.Actor, conversationID uuid.UUID, before, after uuid.UUID, limit int) ([]chat.Message, error) {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	if _, _, err := requireAccess(ctx, s.store, conversationID, a); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return s.store.Messages().FindByConversationOrdered(ctx, conversationID, before, after, limit)
}

// GetConversation returns a conversation the caller belongs to.
func (s *ChatService) GetConversation(ctx context.Context, a actor.Actor, conversationID uuid.UUID) (chat.Conversation, error) {
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()
	conv, _, err := requireAccess(ctx, s.store, conversationID, a)
	return conv, err
}

func sentBy(m chat.Message, a actor.Actor) bool {
	if a.IsCustomer() {
		return m.SenderCustomerID.Valid && m.SenderCustomerID.UUID == a.CustomerID
	}
	return m.SenderStaffID.Valid && m.SenderStaffID.UUID == a.StaffID
}

func actorKey(a actor.Actor) string {
	return fmt.Sprintf("%s:%s", a.Kind, a.ID())
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
