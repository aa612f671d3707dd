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
	"backoffice-chat/internal/repository"
	chaterrors "backoffice-chat/pkg/errors"
	"backoffice-chat/pkg/logger"
)

// PinService records review-pin state transitions and links pins to
// billing documents. Role policy is decided outside; the service only
// checks the role it was handed and records who acted.
type PinService struct {
	store        repository.Store
	audit        AuditSink
	log          *logger.Logger
	storeTimeout time.Duration
}

func NewPinService(store repository.Store, audit AuditSink, log *logger.Logger, storeTimeout time.Duration) *PinService {
	return &PinService{store: store, audit: audit, log: log, storeTimeout: storeTimeout}
}

func (s *PinService) boundCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.storeTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.storeTimeout)
}

// ResolvePin moves an OPEN pin to RESOLVED. Resolving an already
// resolved pin returns it unchanged.
func (s *PinService) ResolvePin(ctx context.Context, a actor.Actor, pinID uuid.UUID) (chat.ReviewPin, error) {
	if !a.CanManagePins() {
		return chat.ReviewPin{}, chaterrors.ErrForbidden
	}
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	var pin chat.ReviewPin
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		var err error
		pin, err = tx.Pins().GetPin(ctx, pinID)
		if err != nil {
			return err
		}
		if pin.Status == chat.PinResolved {
			return nil
		}
		pin.Status = chat.PinResolved
		pin.ResolvedAt = sql.NullTime{Time: time.Now(), Valid: true}
		pin.ResolvedBy = uuid.NullUUID{UUID: a.StaffID, Valid: true}
		return tx.Pins().UpdatePinStatus(ctx, pin)
	})
	if err != nil {
		return chat.ReviewPin{}, err
	}

	s.audit.Append(events.AuditPinResolved, a, "review_pin", pinID, "")
	return pin, nil
}

// ReopenPin moves a RESOLVED pin back to OPEN.
func (s *PinService) ReopenPin(ctx context.Context, a actor.Actor, pinID uuid.UUID) (chat.ReviewPin, error) {
	if !a.CanManagePins() {
		return chat.ReviewPin{}, chaterrors.ErrForbidden
	}
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	var pin chat.ReviewPin
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		var err error
		pin, err = tx.Pins().GetPin(ctx, pinID)
		if err != nil {
			return err
		}
		if pin.Status == chat.PinOpen {
			return nil
		}
		pin.Status = chat.PinOpen
		pin.ResolvedAt = sql.NullTime{}
		pin.ResolvedBy = uuid.NullUUID{}
		return tx.Pins().UpdatePinStatus(ctx, pin)
	})
	if err != nil {
		return chat.ReviewPin{}, err
	}

	s.audit.Append(events.AuditPinReopened, a, "review_pin", pinID, "")
	return pin, nil
}

// ListPins is the staff review queue, optionally filtered by
// conversation and status.
func (s *PinService) ListPins(ctx context.Context, a actor.Actor, conversationID uuid.UUID, status string, page, limit int) ([]chat.ReviewPin, int64, error) {
	if !a.IsStaff() {
		return nil, 0, chaterrors.ErrForbidden
	}
	if status != "" && status != chat.PinOpen && status != chat.PinResolved {
		return nil, 0, fmt.Errorf("%w: unknown pin status %q", chaterrors.ErrValidation, status)
	}
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return s.store.Pins().ListPins(ctx, conversationID, status, page, limit)
}

// AddPinLink attaches a billing document to a pin after verifying the
// document exists and, for customer pins, belongs to the pinned
// customer. Re-adding an existing link returns it unchanged.
func (s *PinService) AddPinLink(ctx context.Context, a actor.Actor, pinID uuid.UUID, linkType string, documentID uuid.UUID) (chat.ReviewPinLink, error) {
	if !a.IsStaff() {
		return chat.ReviewPinLink{}, chaterrors.ErrForbidden
	}
	if !chat.ValidLinkType(linkType) {
		return chat.ReviewPinLink{}, fmt.Errorf("%w: unknown link type %q", chaterrors.ErrValidation, linkType)
	}
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	var link chat.ReviewPinLink
	err := s.store.WithTransaction(ctx, func(tx repository.Store) error {
		pin, err := tx.Pins().GetPin(ctx, pinID)
		if err != nil {
			return err
		}
		doc, err := tx.Billing().GetDocument(ctx, linkType, documentID)
		if err != nil {
			return err
		}
		if pin.MatchedEntityType == chat.EntityCustomer && doc.CustomerID != pin.MatchedEntityID {
			return chaterrors.ErrOwnershipMismatch
		}

		existing, err := tx.Pins().FindLink(ctx, pinID, linkType, documentID)
		if err == nil {
			link = existing
			return nil
		}
		if !errors.Is(err, chaterrors.ErrNotFound) {
			return err
		}

		link = chat.ReviewPinLink{
			ID:         uuid.New(),
			PinID:      pinID,
			LinkType:   linkType,
			DocumentID: documentID,
			AddedBy:    a.StaffID,
			CreatedAt:  time.Now(),
		}
		return tx.Pins().CreateLink(ctx, &link)
	})
	if errors.Is(err, chaterrors.ErrConflict) {
		// Lost a concurrent add of the same link; return the winner.
		return s.store.Pins().FindLink(ctx, pinID, linkType, documentID)
	}
	if err != nil {
		return chat.ReviewPinLink{}, err
	}

	s.audit.Append(events.AuditPinLinkAdded, a, "review_pin_link", link.ID, linkType)
	return link, nil
}

// RemovePinLink detaches a billing document from a pin.
func (s *PinService) RemovePinLink(ctx context.Context, a actor.Actor, linkID uuid.UUID) error {
	if !a.IsStaff() {
		return chaterrors.ErrForbidden
	}
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()

	if err := s.store.Pins().DeleteLink(ctx, linkID); err != nil {
		return err
	}
	s.audit.Append(events.AuditPinLinkRemoved, a, "review_pin_link", linkID, "")
	return nil
}

// ListLinks returns a pin's document links.
func (s *PinService) ListLinks(ctx context.Context, a actor.Actor, pinID uuid.UUID) ([]chat.ReviewPinLink, error) {
	if !a.IsStaff() {
		return nil, chaterrors.ErrForbidden
	}
	ctx, cancel := s.boundCtx(ctx)
	defer cancel()
	return s.store.Pins().ListLinks(ctx, pinID)
}
