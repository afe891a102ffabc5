package calendar

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RepositoryStub is an in-memory Repository used by service and handler
// tests. Insertion order is preserved so start-time ties sort stably, the
// same way rows come back from the SQL implementation.
type RepositoryStub struct {
	mu             sync.RWMutex
	items          map[uuid.UUID]Event
	order          []uuid.UUID
	transactionErr error
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		items: make(map[uuid.UUID]Event),
	}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	r.mu.Lock()
	originalItems := make(map[uuid.UUID]Event, len(r.items))
	for k, v := range r.items {
		originalItems[k] = v
	}
	originalOrder := append([]uuid.UUID(nil), r.order...)
	r.mu.Unlock()

	err := fn(r)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil || r.transactionErr != nil {
		// Roll back to the snapshot taken at transaction start
		r.items = originalItems
		r.order = originalOrder
		if err != nil {
			return err
		}
		return r.transactionErr
	}
	return nil
}

func (r *RepositoryStub) StoreEvent(ctx context.Context, event Event) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.UID == uuid.Nil {
		event.UID = uuid.New()
	}
	if _, exists := r.items[event.UID]; exists {
		return Event{}, fmt.Errorf("%w: %s", ErrEventConflict, event.UID)
	}
	r.items[event.UID] = event
	r.order = append(r.order, event.UID)
	return event, nil
}

func (r *RepositoryStub) GetEvent(ctx context.Context, uid uuid.UUID) (Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, exists := r.items[uid]
	if !exists {
		return Event{}, ErrEventNotFound
	}
	return event, nil
}

func (r *RepositoryStub) GetAllEvents(ctx context.Context, ownerId string, activeOnly bool) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Event, 0)
	for _, uid := range r.order {
		event := r.items[uid]
		if !event.BelongsTo(ownerId) {
			continue
		}
		if activeOnly && !event.IsActive {
			continue
		}
		result = append(result, event)
	}
	sortByStart(result)
	return result, nil
}

func (r *RepositoryStub) GetEvents(ctx context.Context, ownerId string, from, to time.Time) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Event, 0)
	for _, uid := range r.order {
		event := r.items[uid]
		if event.BelongsTo(ownerId) && event.IsActive && event.OverlapsWindow(from, to) {
			result = append(result, event)
		}
	}
	sortByStart(result)
	return result, nil
}

func (r *RepositoryStub) UpdateEvent(ctx context.Context, uid uuid.UUID, mutate func(Event) (Event, error)) (Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.items[uid]
	if !exists {
		return Event{}, ErrEventNotFound
	}
	next, err := mutate(current)
	if err != nil {
		return Event{}, err
	}
	if !next.EndTime.After(next.StartTime) {
		return Event{}, &ValidationError{Field: "end", Reason: "end must be after start"}
	}
	next.UID = current.UID
	next.OwnerID = current.OwnerID
	next.CreatedBy = current.CreatedBy
	next.CreatedAt = current.CreatedAt
	next.Version = current.Version + 1
	r.items[uid] = next
	return next, nil
}

// SetTransactionError makes the next transaction roll back (for testing).
func (r *RepositoryStub) SetTransactionError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactionErr = err
}

// GetStoredEvents returns every stored event, including inactive ones
// (useful for test assertions).
func (r *RepositoryStub) GetStoredEvents() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Event, 0, len(r.order))
	for _, uid := range r.order {
		result = append(result, r.items[uid])
	}
	return result
}

func sortByStart(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})
}
