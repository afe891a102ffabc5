package calendar

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Repository is the durable store for calendar events. Lookups by owner and
// by (owner, time) are index-backed; see the calendar_events migration.
type Repository interface {
	WithTransaction(ctx context.Context, fn func(repo Repository) error) error
	StoreEvent(ctx context.Context, event Event) (Event, error)
	GetEvent(ctx context.Context, uid uuid.UUID) (Event, error)
	GetAllEvents(ctx context.Context, ownerId string, activeOnly bool) ([]Event, error)
	GetEvents(ctx context.Context, ownerId string, from, to time.Time) ([]Event, error)
	UpdateEvent(ctx context.Context, uid uuid.UUID, mutate func(Event) (Event, error)) (Event, error)
}

const eventColumns = `uid, owner_id, title, description, start_time, end_time, all_day, color,
		is_active, created_by, updated_by, recurrence_frequency, recurrence_interval,
		recurrence_end_time, recurrence_count, created_at, updated_at, version`

// updateRetryLimit bounds how often UpdateEvent re-reads after a concurrent
// writer invalidates the version it read.
const updateRetryLimit = 5

var errStaleEvent = errors.New("event version changed during update")

type RepositoryImpl struct {
	db *sql.DB
	tx *sql.Tx
}

func NewRepository(db *sql.DB) *RepositoryImpl {
	return &RepositoryImpl{db: db, tx: nil}
}

// getQueryer returns the appropriate database interface for queries (either tx or db)
func (r *RepositoryImpl) getQueryer() interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
} {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func (r *RepositoryImpl) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.tx != nil {
		// Already inside a transaction, just run the function on it.
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		// The Rollback is a no-op if the transaction was already committed
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Errorf("rollback error: %v", rbErr)
		}
	}()

	txRepo := &RepositoryImpl{db: r.db, tx: tx}
	if err := fn(txRepo); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// StoreEvent persists a new event. A nil UID gets one assigned; an existing
// UID is never overwritten and yields ErrEventConflict.
func (r *RepositoryImpl) StoreEvent(ctx context.Context, event Event) (Event, error) {
	if event.UID == uuid.Nil {
		event.UID = uuid.New()
	}

	err := r.WithTransaction(ctx, func(repo Repository) error {
		impl := repo.(*RepositoryImpl)

		var exists bool
		row := impl.getQueryer().QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM calendar_events WHERE uid = $1)`, event.UID.String())
		if err := row.Scan(&exists); err != nil {
			return fmt.Errorf("could not check event existence: %w", err)
		}
		if exists {
			return fmt.Errorf("%w: %s", ErrEventConflict, event.UID)
		}
		return impl.insertEvent(ctx, event)
	})
	if err != nil {
		return Event{}, err
	}
	return event, nil
}

func (r *RepositoryImpl) insertEvent(ctx context.Context, event Event) error {
	// seq is assigned inside the storing transaction so listings can break
	// start-time ties by insertion order.
	query := `INSERT INTO calendar_events (` + eventColumns + `, seq)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM calendar_events))`

	_, err := r.getQueryer().ExecContext(ctx, query,
		event.UID.String(),
		event.OwnerID,
		event.Title,
		event.Description,
		event.StartTime.UnixMilli(),
		event.EndTime.UnixMilli(),
		event.AllDay,
		event.Color,
		event.IsActive,
		event.CreatedBy,
		nullString(event.UpdatedBy),
		recurrenceFrequency(event.Recurrence),
		recurrenceInterval(event.Recurrence),
		recurrenceEndTime(event.Recurrence),
		recurrenceCount(event.Recurrence),
		event.CreatedAt.UnixMilli(),
		event.UpdatedAt.UnixMilli(),
		event.Version,
	)
	if err != nil {
		err := fmt.Errorf("could not insert calendar event: %w", err)
		log.Error(err)
		return err
	}
	return nil
}

// GetEvent loads an event by UID regardless of its active flag. Visibility
// rules (soft delete, ownership) belong to the service layer.
func (r *RepositoryImpl) GetEvent(ctx context.Context, uid uuid.UUID) (Event, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events WHERE uid = $1`

	row := r.getQueryer().QueryRowContext(ctx, query, uid.String())
	event, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, ErrEventNotFound
	}
	if err != nil {
		err := fmt.Errorf("could not load calendar event: %w", err)
		log.Error(err)
		return Event{}, err
	}
	return event, nil
}

// GetAllEvents returns the owner's events ordered by start time ascending
// (ties broken by insertion order via seq).
func (r *RepositoryImpl) GetAllEvents(ctx context.Context, ownerId string, activeOnly bool) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events
		WHERE owner_id = $1 AND (is_active OR NOT $2)
		ORDER BY start_time, seq, uid`

	rows, err := r.getQueryer().QueryContext(ctx, query, ownerId, activeOnly)
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

// GetEvents returns the owner's active events intersecting the inclusive
// window [from, to]. An event matches when it starts in the window, ends in
// the window, or spans the whole window; boundary touches count.
func (r *RepositoryImpl) GetEvents(ctx context.Context, ownerId string, from, to time.Time) ([]Event, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events
		WHERE owner_id = $1 AND is_active
		  AND ((start_time >= $2 AND start_time <= $3)
		    OR (end_time >= $2 AND end_time <= $3)
		    OR (start_time <= $2 AND end_time >= $3))
		ORDER BY start_time, seq, uid`

	rows, err := r.getQueryer().QueryContext(ctx, query, ownerId, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		err := fmt.Errorf("could not query calendar events: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

// UpdateEvent performs an atomic read-modify-write on a single event. The
// write only lands if the row still carries the version the read saw; when a
// concurrent writer got there first, the read and the mutator are re-run
// against the committed row, so updates to one UID apply sequentially and
// never overwrite each other's fields. A mutated row violating end > start
// is rejected and nothing is written.
func (r *RepositoryImpl) UpdateEvent(ctx context.Context, uid uuid.UUID, mutate func(Event) (Event, error)) (Event, error) {
	for attempt := 0; attempt < updateRetryLimit; attempt++ {
		var updated Event
		err := r.WithTransaction(ctx, func(repo Repository) error {
			impl := repo.(*RepositoryImpl)

			current, err := impl.GetEvent(ctx, uid)
			if err != nil {
				return err
			}
			next, err := mutate(current)
			if err != nil {
				return err
			}
			if !next.EndTime.After(next.StartTime) {
				return &ValidationError{Field: "end", Reason: "end must be after start"}
			}
			// Identity is immutable regardless of what the mutator returns.
			next.UID = current.UID
			next.OwnerID = current.OwnerID
			next.CreatedBy = current.CreatedBy
			next.CreatedAt = current.CreatedAt
			next.Version = current.Version + 1

			if err := impl.writeEvent(ctx, next, current.Version); err != nil {
				return err
			}
			updated = next
			return nil
		})
		if errors.Is(err, errStaleEvent) {
			continue
		}
		if err != nil {
			return Event{}, err
		}
		return updated, nil
	}
	return Event{}, fmt.Errorf("could not update calendar event %s: %w", uid, errStaleEvent)
}

// writeEvent persists an updated row, guarded by the version it was read at.
// Returns errStaleEvent when another writer committed in between.
func (r *RepositoryImpl) writeEvent(ctx context.Context, event Event, expectedVersion int64) error {
	query := `UPDATE calendar_events SET
			title = $1, description = $2, start_time = $3, end_time = $4, all_day = $5,
			color = $6, is_active = $7, updated_by = $8, recurrence_frequency = $9,
			recurrence_interval = $10, recurrence_end_time = $11, recurrence_count = $12,
			updated_at = $13, version = $14
		WHERE uid = $15 AND version = $16`

	result, err := r.getQueryer().ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.StartTime.UnixMilli(),
		event.EndTime.UnixMilli(),
		event.AllDay,
		event.Color,
		event.IsActive,
		nullString(event.UpdatedBy),
		recurrenceFrequency(event.Recurrence),
		recurrenceInterval(event.Recurrence),
		recurrenceEndTime(event.Recurrence),
		recurrenceCount(event.Recurrence),
		event.UpdatedAt.UnixMilli(),
		event.Version,
		event.UID.String(),
		expectedVersion,
	)
	if err != nil {
		err := fmt.Errorf("could not update calendar event: %w", err)
		log.Error(err)
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not read update result: %w", err)
	}
	if affected == 0 {
		return errStaleEvent
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (Event, error) {
	var (
		uidString           string
		event               Event
		startMillis         int64
		endMillis           int64
		updatedBy           sql.NullString
		recurrenceFreq      sql.NullString
		recurrenceInt       sql.NullInt64
		recurrenceEndMillis sql.NullInt64
		recurrenceCnt       sql.NullInt64
		createdMillis       int64
		updatedMillis       int64
	)
	err := row.Scan(
		&uidString,
		&event.OwnerID,
		&event.Title,
		&event.Description,
		&startMillis,
		&endMillis,
		&event.AllDay,
		&event.Color,
		&event.IsActive,
		&event.CreatedBy,
		&updatedBy,
		&recurrenceFreq,
		&recurrenceInt,
		&recurrenceEndMillis,
		&recurrenceCnt,
		&createdMillis,
		&updatedMillis,
		&event.Version,
	)
	if err != nil {
		return Event{}, err
	}

	uid, err := uuid.Parse(uidString)
	if err != nil {
		return Event{}, fmt.Errorf("malformed uid in storage: %w", err)
	}
	event.UID = uid
	event.StartTime = time.UnixMilli(startMillis).UTC()
	event.EndTime = time.UnixMilli(endMillis).UTC()
	event.CreatedAt = time.UnixMilli(createdMillis).UTC()
	event.UpdatedAt = time.UnixMilli(updatedMillis).UTC()
	if updatedBy.Valid {
		event.UpdatedBy = updatedBy.String
	}
	if recurrenceFreq.Valid {
		recurrence := &Recurrence{
			Frequency: Frequency(recurrenceFreq.String),
			Interval:  int(recurrenceInt.Int64),
		}
		if recurrenceEndMillis.Valid {
			end := time.UnixMilli(recurrenceEndMillis.Int64).UTC()
			recurrence.EndTime = &end
		}
		if recurrenceCnt.Valid {
			count := int(recurrenceCnt.Int64)
			recurrence.Count = &count
		}
		event.Recurrence = recurrence
	}
	return event, nil
}

func collectEvents(rows *sql.Rows) ([]Event, error) {
	events := make([]Event, 0, 10)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate rows: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func recurrenceFrequency(r *Recurrence) sql.NullString {
	if r == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(r.Frequency), Valid: true}
}

func recurrenceInterval(r *Recurrence) sql.NullInt64 {
	if r == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(r.Interval), Valid: true}
}

func recurrenceEndTime(r *Recurrence) sql.NullInt64 {
	if r == nil || r.EndTime == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: r.EndTime.UnixMilli(), Valid: true}
}

func recurrenceCount(r *Recurrence) sql.NullInt64 {
	if r == nil || r.Count == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*r.Count), Valid: true}
}
