package services

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"backoffice-chat/internal/domain/actor"
	"backoffice-chat/internal/domain/chat"
	"backoffice-chat/internal/domain/directory"
	"backoffice-chat/internal/events"
	"backoffice-chat/internal/mention"
	"backoffice-chat/internal/ratelimit"
	"backoffice-chat/internal/repository"
	chaterrors "backoffice-chat/pkg/errors"
)

// memStore is an in-memory repository.Store. A single mutex guards all
// tables; WithTransaction runs the callback under that mutex, which
// serializes "transactions" the way the database would for these tests.
type memStore struct {
	mu sync.Mutex

	conversations map[uuid.UUID]*chat.Conversation
	participants  map[uuid.UUID]*chat.Participant
	messages      map[uuid.UUID]*chat.Message
	pins          map[uuid.UUID]*chat.ReviewPin
	links         map[uuid.UUID]*chat.ReviewPinLink
	customers     map[uuid.UUID]directory.Customer
	staff         map[uuid.UUID]directory.StaffUser
	documents     map[uuid.UUID]directory.BillingDocument
}

func newMemStore() *memStore {
	return &memStore{
		conversations: make(map[uuid.UUID]*chat.Conversation),
		participants:  make(map[uuid.UUID]*chat.Participant),
		messages:      make(map[uuid.UUID]*chat.Message),
		pins:          make(map[uuid.UUID]*chat.ReviewPin),
		links:         make(map[uuid.UUID]*chat.ReviewPinLink),
		customers:     make(map[uuid.UUID]directory.Customer),
		staff:         make(map[uuid.UUID]directory.StaffUser),
		documents:     make(map[uuid.UUID]directory.BillingDocument),
	}
}

func (s *memStore) Conversations() repository.ConversationRepository { return (*memConvRepo)(s) }
func (s *memStore) Messages() repository.MessageRepository           { return (*memMsgRepo)(s) }
func (s *memStore) Pins() repository.PinRepository                   { return (*memPinRepo)(s) }
func (s *memStore) Directory() repository.DirectoryRepository        { return (*memDirRepo)(s) }
func (s *memStore) Billing() repository.BillingRepository            { return (*memBillingRepo)(s) }

func (s *memStore) WithTransaction(ctx context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Shadow copies let a failed callback roll back.
	backup := s.snapshot()
	if err := fn(noLockStore{s}); err != nil {
		s.restore(backup)
		return err
	}
	return nil
}

// noLockStore hands the transaction callback repositories that skip the
// mutex the transaction already holds.
type noLockStore struct{ s *memStore }

func (n noLockStore) Conversations() repository.ConversationRepository {
	return (*memConvRepoLocked)(n.s)
}
func (n noLockStore) Messages() repository.MessageRepository    { return (*memMsgRepoLocked)(n.s) }
func (n noLockStore) Pins() repository.PinRepository            { return (*memPinRepoLocked)(n.s) }
func (n noLockStore) Directory() repository.DirectoryRepository { return (*memDirRepoLocked)(n.s) }
func (n noLockStore) Billing() repository.BillingRepository     { return (*memBillingRepoLocked)(n.s) }
func (n noLockStore) WithTransaction(ctx context.Context, fn func(repository.Store) error) error {
	return fn(n)
}

type tables struct {
	conversations map[uuid.UUID]*chat.Conversation
	participants  map[uuid.UUID]*chat.Participant
	messages      map[uuid.UUID]*chat.Message
	pins          map[uuid.UUID]*chat.ReviewPin
	links         map[uuid.UUID]*chat.ReviewPinLink
}

func (s *memStore) snapshot() tables {
	t := tables{
		conversations: make(map[uuid.UUID]*chat.Conversation, len(s.conversations)),
		participants:  make(map[uuid.UUID]*chat.Participant, len(s.participants)),
		messages:      make(map[uuid.UUID]*chat.Message, len(s.messages)),
		pins:          make(map[uuid.UUID]*chat.ReviewPin, len(s.pins)),
		links:         make(map[uuid.UUID]*chat.ReviewPinLink, len(s.links)),
	}
	for k, v := range s.conversations {
		c := *v
		t.conversations[k] = &c
	}
	for k, v := range s.participants {
		p := *v
		t.participants[k] = &p
	}
	for k, v := range s.messages {
		m := *v
		t.messages[k] = &m
	}
	for k, v := range s.pins {
		p := *v
		t.pins[k] = &p
	}
	for k, v := range s.links {
		l := *v
		t.links[k] = &l
	}
	return t
}

func (s *memStore) restore(t tables) {
	s.conversations = t.conversations
	s.participants = t.participants
	s.messages = t.messages
	s.pins = t.pins
	s.links = t.links
}

// Locked variants assume the caller holds s.mu (inside WithTransaction);
// unlocked variants take it themselves for direct store reads.

type memConvRepo memStore
type memConvRepoLocked memStore

func (r *memConvRepo) withLock(fn func(*memConvRepoLocked) error) error {
	(*memStore)(r).mu.Lock()
	defer (*memStore)(r).mu.Unlock()
	return fn((*memConvRepoLocked)(r))
}

func (r *memConvRepo) Create(ctx context.Context, c *chat.Conversation) error {
	return r.withLock(func(l *memConvRepoLocked) error { return l.Create(ctx, c) })
}

func (r *memConvRepo) GetByID(ctx context.Context, id uuid.UUID) (out chat.Conversation, err error) {
	_ = r.withLock(func(l *memConvRepoLocked) error {
		out, err = l.GetByID(ctx, id)
		return nil
	})
	return out, err
}

func (r *memConvRepo) FindCustomerDM(ctx context.Context, customerID uuid.UUID) (out chat.Conversation, err error) {
	_ = r.withLock(func(l *memConvRepoLocked) error {
		out, err = l.FindCustomerDM(ctx, customerID)
		return nil
	})
	return out, err
}

func (r *memConvRepo) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.withLock(func(l *memConvRepoLocked) error { return l.TouchLastMessage(ctx, id, at) })
}

func (r *memConvRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.withLock(func(l *memConvRepoLocked) error { return l.SoftDelete(ctx, id) })
}

func (r *memConvRepo) ListForActor(ctx context.Context, a actor.Actor, page, limit int) (out []chat.Conversation, total int64, err error) {
	_ = r.withLock(func(l *memConvRepoLocked) error {
		out, total, err = l.ListForActor(ctx, a, page, limit)
		return nil
	})
	return out, total, err
}

func (r *memConvRepo) AddParticipant(ctx context.Context, p *chat.Participant) error {
	return r.withLock(func(l *memConvRepoLocked) error { return l.AddParticipant(ctx, p) })
}

func (r *memConvRepo) FindActiveParticipant(ctx context.Context, conversationID uuid.UUID, a actor.Actor) (out chat.Participant, err error) {
	_ = r.withLock(func(l *memConvRepoLocked) error {
		out, err = l.FindActiveParticipant(ctx, conversationID, a)
		return nil
	})
	return out, err
}

func (r *memConvRepo) MarkLeft(ctx context.Context, participantID uuid.UUID, at time.Time) error {
	return r.withLock(func(l *memConvRepoLocked) error { return l.MarkLeft(ctx, participantID, at) })
}

func (r *memConvRepo) UpdateLastRead(ctx context.Context, participantID, messageID uuid.UUID) error {
	return r.withLock(func(l *memConvRepoLocked) error { return l.UpdateLastRead(ctx, participantID, messageID) })
}

func (r *memConvRepo) GetActiveParticipants(ctx context.Context, conversationID uuid.UUID) (out []chat.Participant, err error) {
	_ = r.withLock(func(l *memConvRepoLocked) error {
		out, err = l.GetActiveParticipants(ctx, conversationID)
		return nil
	})
	return out, err
}

func (r *memConvRepoLocked) Create(ctx context.Context, c *chat.Conversation) error {
	s := (*memStore)(r)
	if c.Type == chat.TypeCustomerDM {
		for _, existing := range s.conversations {
			if existing.Type == chat.TypeCustomerDM &&
				existing.CustomerID.Valid && c.CustomerID.Valid &&
				existing.CustomerID.UUID == c.CustomerID.UUID &&
				!existing.DeletedAt.Valid {
				return chaterrors.ErrConflict
			}
		}
	}
	cc := *c
	s.conversations[c.ID] = &cc
	return nil
}

func (r *memConvRepoLocked) GetByID(ctx context.Context, id uuid.UUID) (chat.Conversation, error) {
	s := (*memStore)(r)
	c, ok := s.conversations[id]
	if !ok || c.DeletedAt.Valid {
		return chat.Conversation{}, chaterrors.ErrNotFound
	}
	return *c, nil
}

func (r *memConvRepoLocked) FindCustomerDM(ctx context.Context, customerID uuid.UUID) (chat.Conversation, error) {
	s := (*memStore)(r)
	for _, c := range s.conversations {
		if c.Type == chat.TypeCustomerDM && c.CustomerID.Valid &&
			c.CustomerID.UUID == customerID && !c.DeletedAt.Valid {
			return *c, nil
		}
	}
	return chat.Conversation{}, chaterrors.ErrNotFound
}

func (r *memConvRepoLocked) TouchLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	s := (*memStore)(r)
	c, ok := s.conversations[id]
	if !ok {
		return chaterrors.ErrNotFound
	}
	c.LastMessageAt = nullTime(at)
	c.UpdatedAt = at
	return nil
}

func (r *memConvRepoLocked) SoftDelete(ctx context.Context, id uuid.UUID) error {
	s := (*memStore)(r)
	c, ok := s.conversations[id]
	if !ok || c.DeletedAt.Valid {
		return chaterrors.ErrNotFound
	}
	c.DeletedAt = nullTime(time.Now())
	return nil
}

func (r *memConvRepoLocked) ListForActor(ctx context.Context, a actor.Actor, page, limit int) ([]chat.Conversation, int64, error) {
	s := (*memStore)(r)
	var out []chat.Conversation
	for _, c := range s.conversations {
		if c.DeletedAt.Valid {
			continue
		}
		for _, p := range s.participants {
			if p.ConversationID == c.ID && p.Active() && participantMatches(*p, a) {
				out = append(out, *c)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return activityTime(out[i]).After(activityTime(out[j]))
	})
	return out, int64(len(out)), nil
}

func activityTime(c chat.Conversation) time.Time {
	if c.LastMessageAt.Valid {
		return c.LastMessageAt.Time
	}
	return c.CreatedAt
}

func participantMatches(p chat.Participant, a actor.Actor) bool {
	if a.IsCustomer() {
		return p.CustomerID.Valid && p.CustomerID.UUID == a.CustomerID
	}
	return p.StaffID.Valid && p.StaffID.UUID == a.StaffID
}

func (r *memConvRepoLocked) AddParticipant(ctx context.Context, p *chat.Participant) error {
	s := (*memStore)(r)
	for _, existing := range s.participants {
		if existing.ConversationID == p.ConversationID && existing.Active() &&
			existing.StaffID == p.StaffID && existing.CustomerID == p.CustomerID {
			return chaterrors.ErrConflict
		}
	}
	pp := *p
	s.participants[p.ID] = &pp
	return nil
}

func (r *memConvRepoLocked) FindActiveParticipant(ctx context.Context, conversationID uuid.UUID, a actor.Actor) (chat.Participant, error) {
	s := (*memStore)(r)
	for _, p := range s.participants {
		if p.ConversationID == conversationID && p.Active() && participantMatches(*p, a) {
			return *p, nil
		}
	}
	return chat.Participant{}, chaterrors.ErrNotFound
}

func (r *memConvRepoLocked) MarkLeft(ctx context.Context, participantID uuid.UUID, at time.Time) error {
	s := (*memStore)(r)
	p, ok := s.participants[participantID]
	if !ok || !p.Active() {
		return chaterrors.ErrNotFound
	}
	p.LeftAt = nullTime(at)
	return nil
}

func (r *memConvRepoLocked) UpdateLastRead(ctx context.Context, participantID, messageID uuid.UUID) error {
	s := (*memStore)(r)
	p, ok := s.participants[participantID]
	if !ok {
		return chaterrors.ErrNotFound
	}
	p.LastReadMessageID = uuid.NullUUID{UUID: messageID, Valid: true}
	return nil
}

func (r *memConvRepoLocked) GetActiveParticipants(ctx context.Context, conversationID uuid.UUID) ([]chat.Participant, error) {
	s := (*memStore)(r)
	var out []chat.Participant
	for _, p := range s.participants {
		if p.ConversationID == conversationID && p.Active() {
			out = append(out, *p)
		}
	}
	return out, nil
}

type memMsgRepo memStore
type memMsgRepoLocked memStore

func (r *memMsgRepo) withLock(fn func(*memMsgRepoLocked) error) error {
	(*memStore)(r).mu.Lock()
	defer (*memStore)(r).mu.Unlock()
	return fn((*memMsgRepoLocked)(r))
}

func (r *memMsgRepo) Create(ctx context.Context, m *chat.Message) error {
	return r.withLock(func(l *memMsgRepoLocked) error { return l.Create(ctx, m) })
}

func (r *memMsgRepo) GetByID(ctx context.Context, id uuid.UUID) (out chat.Message, err error) {
	_ = r.withLock(func(l *memMsgRepoLocked) error {
		out, err = l.GetByID(ctx, id)
		return nil
	})
	return out, err
}

func (r *memMsgRepo) UpdateBody(ctx context.Context, id uuid.UUID, body string, editedAt time.Time) error {
	return r.withLock(func(l *memMsgRepoLocked) error { return l.UpdateBody(ctx, id, body, editedAt) })
}

func (r *memMsgRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.withLock(func(l *memMsgRepoLocked) error { return l.SoftDelete(ctx, id) })
}

func (r *memMsgRepo) FindByConversationOrdered(ctx context.Context, conversationID uuid.UUID, before, after uuid.UUID, limit int) (out []chat.Message, err error) {
	_ = r.withLock(func(l *memMsgRepoLocked) error {
		out, err = l.FindByConversationOrdered(ctx, conversationID, before, after, limit)
		return nil
	})
	return out, err
}

func (r *memMsgRepoLocked) Create(ctx context.Context, m *chat.Message) error {
	s := (*memStore)(r)
	mm := *m
	s.messages[m.ID] = &mm
	return nil
}

func (r *memMsgRepoLocked) GetByID(ctx context.Context, id uuid.UUID) (chat.Message, error) {
	s := (*memStore)(r)
	m, ok := s.messages[id]
	if !ok {
		return chat.Message{}, chaterrors.ErrNotFound
	}
	return *m, nil
}

func (r *memMsgRepoLocked) UpdateBody(ctx context.Context, id uuid.UUID, body string, editedAt time.Time) error {
	s := (*memStore)(r)
	m, ok := s.messages[id]
	if !ok {
		return chaterrors.ErrNotFound
	}
	m.Body = nullStr(body)
	m.EditedAt = nullTime(editedAt)
	return nil
}

func (r *memMsgRepoLocked) SoftDelete(ctx context.Context, id uuid.UUID) error {
	s := (*memStore)(r)
	m, ok := s.messages[id]
	if !ok || m.DeletedAt.Valid {
		return chaterrors.ErrNotFound
	}
	m.DeletedAt = nullTime(time.Now())
	return nil
}

func (r *memMsgRepoLocked) FindByConversationOrdered(ctx context.Context, conversationID uuid.UUID, before, after uuid.UUID, limit int) ([]chat.Message, error) {
	s := (*memStore)(r)
	var out []chat.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memPinRepo memStore
type memPinRepoLocked memStore

func (r *memPinRepo) withLock(fn func(*memPinRepoLocked) error) error {
	(*memStore)(r).mu.Lock()
	defer (*memStore)(r).mu.Unlock()
	return fn((*memPinRepoLocked)(r))
}

func (r *memPinRepo) CreatePin(ctx context.Context, p *chat.ReviewPin) error {
	return r.withLock(func(l *memPinRepoLocked) error { return l.CreatePin(ctx, p) })
}

func (r *memPinRepo) GetPin(ctx context.Context, id uuid.UUID) (out chat.ReviewPin, err error) {
	_ = r.withLock(func(l *memPinRepoLocked) error {
		out, err = l.GetPin(ctx, id)
		return nil
	})
	return out, err
}

func (r *memPinRepo) FindPin(ctx context.Context, messageID uuid.UUID, entityType string, entityID uuid.UUID) (out chat.ReviewPin, err error) {
	_ = r.withLock(func(l *memPinRepoLocked) error {
		out, err = l.FindPin(ctx, messageID, entityType, entityID)
		return nil
	})
	return out, err
}

func (r *memPinRepo) UpdatePinStatus(ctx context.Context, p chat.ReviewPin) error {
	return r.withLock(func(l *memPinRepoLocked) error { return l.UpdatePinStatus(ctx, p) })
}

func (r *memPinRepo) ListPins(ctx context.Context, conversationID uuid.UUID, status string, page, limit int) (out []chat.ReviewPin, total int64, err error) {
	_ = r.withLock(func(l *memPinRepoLocked) error {
		out, total, err = l.ListPins(ctx, conversationID, status, page, limit)
		return nil
	})
	return out, total, err
}

func (r *memPinRepo) CreateLink(ctx context.Context, link *chat.ReviewPinLink) error {
	return r.withLock(func(l *memPinRepoLocked) error { return l.CreateLink(ctx, link) })
}

func (r *memPinRepo) GetLink(ctx context.Context, id uuid.UUID) (out chat.ReviewPinLink, err error) {
	_ = r.withLock(func(l *memPinRepoLocked) error {
		out, err = l.GetLink(ctx, id)
		return nil
	})
	return out, err
}

func (r *memPinRepo) FindLink(ctx context.Context, pinID uuid.UUID, linkType string, documentID uuid.UUID) (out chat.ReviewPinLink, err error) {
	_ = r.withLock(func(l *memPinRepoLocked) error {
		out, err = l.FindLink(ctx, pinID, linkType, documentID)
		return nil
	})
	return out, err
}

func (r *memPinRepo) DeleteLink(ctx context.Context, id uuid.UUID) error {
	return r.withLock(func(l *memPinRepoLocked) error { return l.DeleteLink(ctx, id) })
}

func (r *memPinRepo) ListLinks(ctx context.Context, pinID uuid.UUID) (out []chat.ReviewPinLink, err error) {
	_ = r.withLock(func(l *memPinRepoLocked) error {
		out, err = l.ListLinks(ctx, pinID)
		return nil
	})
	return out, err
}

func (r *memPinRepoLocked) CreatePin(ctx context.Context, p *chat.ReviewPin) error {
	s := (*memStore)(r)
	for _, existing := range s.pins {
		if existing.SourceMessageID == p.SourceMessageID &&
			existing.MatchedEntityType == p.MatchedEntityType &&
			existing.MatchedEntityID == p.MatchedEntityID {
			return chaterrors.ErrConflict
		}
	}
	pp := *p
	s.pins[p.ID] = &pp
	return nil
}

func (r *memPinRepoLocked) GetPin(ctx context.Context, id uuid.UUID) (chat.ReviewPin, error) {
	s := (*memStore)(r)
	p, ok := s.pins[id]
	if !ok {
		return chat.ReviewPin{}, chaterrors.ErrNotFound
	}
	return *p, nil
}

func (r *memPinRepoLocked) FindPin(ctx context.Context, messageID uuid.UUID, entityType string, entityID uuid.UUID) (chat.ReviewPin, error) {
	s := (*memStore)(r)
	for _, p := range s.pins {
		if p.SourceMessageID == messageID && p.MatchedEntityType == entityType && p.MatchedEntityID == entityID {
			return *p, nil
		}
	}
	return chat.ReviewPin{}, chaterrors.ErrNotFound
}

func (r *memPinRepoLocked) UpdatePinStatus(ctx context.Context, p chat.ReviewPin) error {
	s := (*memStore)(r)
	existing, ok := s.pins[p.ID]
	if !ok {
		return chaterrors.ErrNotFound
	}
	*existing = p
	return nil
}

func (r *memPinRepoLocked) ListPins(ctx context.Context, conversationID uuid.UUID, status string, page, limit int) ([]chat.ReviewPin, int64, error) {
	s := (*memStore)(r)
	var out []chat.ReviewPin
	for _, p := range s.pins {
		if conversationID != uuid.Nil && p.ConversationID != conversationID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, int64(len(out)), nil
}

func (r *memPinRepoLocked) CreateLink(ctx context.Context, link *chat.ReviewPinLink) error {
	s := (*memStore)(r)
	for _, existing := range s.links {
		if existing.PinID == link.PinID && existing.LinkType == link.LinkType && existing.DocumentID == link.DocumentID {
			return chaterrors.ErrConflict
		}
	}
	ll := *link
	s.links[link.ID] = &ll
	return nil
}

func (r *memPinRepoLocked) GetLink(ctx context.Context, id uuid.UUID) (chat.ReviewPinLink, error) {
	s := (*memStore)(r)
	l, ok := s.links[id]
	if !ok {
		return chat.ReviewPinLink{}, chaterrors.ErrNotFound
	}
	return *l, nil
}

func (r *memPinRepoLocked) FindLink(ctx context.Context, pinID uuid.UUID, linkType string, documentID uuid.UUID) (chat.ReviewPinLink, error) {
	s := (*memStore)(r)
	for _, l := range s.links {
		if l.PinID == pinID && l.LinkType == linkType && l.DocumentID == documentID {
			return *l, nil
		}
	}
	return chat.ReviewPinLink{}, chaterrors.ErrNotFound
}

func (r *memPinRepoLocked) DeleteLink(ctx context.Context, id uuid.UUID) error {
	s := (*memStore)(r)
	if _, ok := s.links[id]; !ok {
		return chaterrors.ErrNotFound
	}
	delete(s.links, id)
	return nil
}

func (r *memPinRepoLocked) ListLinks(ctx context.Context, pinID uuid.UUID) ([]chat.ReviewPinLink, error) {
	s := (*memStore)(r)
	var out []chat.ReviewPinLink
	for _, l := range s.links {
		if l.PinID == pinID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memDirRepo memStore
type memDirRepoLocked memStore

func (r *memDirRepo) ActiveCustomers(ctx context.Context) ([]directory.Customer, error) {
	(*memStore)(r).mu.Lock()
	defer (*memStore)(r).mu.Unlock()
	return (*memDirRepoLocked)(r).ActiveCustomers(ctx)
}

func (r *memDirRepo) ActiveStaff(ctx context.Context) ([]directory.StaffUser, error) {
	(*memStore)(r).mu.Lock()
	defer (*memStore)(r).mu.Unlock()
	return (*memDirRepoLocked)(r).ActiveStaff(ctx)
}

func (r *memDirRepo) GetCustomer(ctx context.Context, id uuid.UUID) (directory.Customer, error) {
	(*memStore)(r).mu.Lock()
	defer (*memStore)(r).mu.Unlock()
	return (*memDirRepoLocked)(r).GetCustomer(ctx, id)
}

func (r *memDirRepo) GetStaff(ctx context.Context, id uuid.UUID) (directory.StaffUser, error) {
	(*memStore)(r).mu.Lock()
	defer (*memStore)(r).mu.Unlock()
	return (*memDirRepoLocked)(r).GetStaff(ctx, id)
}

func (r *memDirRepoLocked) ActiveCustomers(ctx context.Context) ([]directory.Customer, error) {
	s := (*memStore)(r)
	var out []directory.Customer
	for _, c := range s.customers {
		if c.IsActive && !c.DeletedAt.Valid {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memDirRepoLocked) ActiveStaff(ctx context.Context) ([]directory.StaffUser, error) {
	s := (*memStore)(r)
	var out []directory.StaffUser
	for _, st := range s.staff {
		if st.IsActive && !st.DeletedAt.Valid {
			out = append(out, st)
		}
	}
	return out, nil
}

func (r *memDirRepoLocked) GetCustomer(ctx context.Context, id uuid.UUID) (directory.Customer, error) {
	s := (*memStore)(r)
	c, ok := s.customers[id]
	if !ok {
		return directory.Customer{}, chaterrors.ErrNotFound
	}
	return c, nil
}

func (r *memDirRepoLocked) GetStaff(ctx context.Context, id uuid.UUID) (directory.StaffUser, error) {
	s := (*memStore)(r)
	st, ok := s.staff[id]
	if !ok {
		return directory.StaffUser{}, chaterrors.ErrNotFound
	}
	return st, nil
}

type memBillingRepo memStore
type memBillingRepoLocked memStore

func (r *memBillingRepo) GetDocument(ctx context.Context, linkType string, id uuid.UUID) (directory.BillingDocument, error) {
	(*memStore)(r).mu.Lock()
	defer (*memStore)(r).mu.Unlock()
	return (*memBillingRepoLocked)(r).GetDocument(ctx, linkType, id)
}

func (r *memBillingRepoLocked) GetDocument(ctx context.Context, linkType string, id uuid.UUID) (directory.BillingDocument, error) {
	s := (*memStore)(r)
	doc, ok := s.documents[id]
	if !ok {
		return directory.BillingDocument{}, chaterrors.ErrNotFound
	}
	return doc, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: true}
}

func nullStr(s string) sql.NullString {
	return nullString(s)
}

// recordingBroadcaster captures broadcast envelopes and room evictions
// for assertions.
type recordingBroadcaster struct {
	mu        sync.Mutex
	events    []events.Envelope
	evictions []eviction
}

type eviction struct {
	conversationID uuid.UUID
	actor          actor.Actor
}

func (b *recordingBroadcaster) BroadcastToConversation(conversationID uuid.UUID, env events.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, env)
}

func (b *recordingBroadcaster) EvictFromRoom(conversationID uuid.UUID, a actor.Actor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictions = append(b.evictions, eviction{conversationID: conversationID, actor: a})
}

func (b *recordingBroadcaster) byEvent(name string) []events.Envelope {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Envelope
	for _, e := range b.events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

// nopAudit discards audit events.
type nopAudit struct{}

func (nopAudit) Append(event string, a actor.Actor, entityType string, entityID uuid.UUID, detail string) {
}

// staticRoster serves a fixed candidate set.
type staticRoster struct{ candidates []mention.Candidate }

func (r staticRoster) Candidates() []mention.Candidate { return r.candidates }

// allowAllLimiter admits every send.
type allowAllLimiter struct{}

func (allowAllLimiter) AllowSend(ctx context.Context, actorKey, conversationKey string) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: true, Remaining: 1}, nil
}

// denyAllLimiter rejects every send.
type denyAllLimiter struct{ retryAfter time.Duration }

func (l denyAllLimiter) AllowSend(ctx context.Context, actorKey, conversationKey string) (ratelimit.Decision, error) {
	return ratelimit.Decision{Allowed: false, RetryAfter: l.retryAfter, Limit: 1}, nil
}
