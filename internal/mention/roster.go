package mention

import (
	"context"
	"sync"
	"time"

	"backoffice-chat/internal/domain/chat"
	"backoffice-chat/internal/domain/directory"
	"backoffice-chat/pkg/logger"
)

// Source is the slice of the directory the roster needs.
type Source interface {
	ActiveCustomers(ctx context.Context) ([]directory.Customer, error)
	ActiveStaff(ctx context.Context) ([]directory.StaffUser, error)
}

// Roster holds a periodically refreshed snapshot of mention candidates.
// The send path reads the snapshot instead of re-querying the whole
// customer/staff roster on every scanned message.
type Roster struct {
	source   Source
	interval time.Duration
	log      *logger.Logger

	mu         sync.RWMutex
	candidates []Candidate
}

func NewRoster(source Source, interval time.Duration, log *logger.Logger) *Roster {
	return &Roster{source: source, interval: interval, log: log}
}

// Candidates returns the current snapshot. The returned slice must not
// be mutated.
func (r *Roster) Candidates() []Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.candidates
}

// Refresh reloads the snapshot once.
func (r *Roster) Refresh(ctx context.Context) error {
	customers, err := r.source.ActiveCustomers(ctx)
	if err != nil {
		return err
	}
	staff, err := r.source.ActiveStaff(ctx)
	if err != nil {
		return err
	}

	candidates := make([]Candidate, 0, len(customers)+len(staff))
	for _, c := range customers {
		candidates = append(candidates, Candidate{
			EntityType: chat.EntityCustomer,
			EntityID:   c.ID,
			Name:       c.Name,
		})
	}
	for _, s := range staff {
		candidates = append(candidates, Candidate{
			EntityType: chat.EntityStaff,
			EntityID:   s.ID,
			Name:       s.FullName,
		})
	}

	r.mu.Lock()
	r.candidates = candidates
	r.mu.Unlock()
	return nil
}

// Start refreshes immediately, then on every tick until ctx is done.
// A failed refresh keeps the previous snapshot.
func (r *Roster) Start(ctx context.Context) {
	if err := r.Refresh(ctx); err != nil && r.log != nil {
		r.log.Errorf("roster refresh failed: %v", err)
	}
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := r.Refresh(ctx); err != nil && r.log != nil {
					r.log.Errorf("roster refresh failed: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
