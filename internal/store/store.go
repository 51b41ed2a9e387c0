package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carpark-status-backend/internal/model"
)

// EventStore defines the operations on the append-only movement-event log.
type EventStore interface {
	Append(ctx context.Context, events []model.MovementEvent) (int, error)
	ParkedVehicles(ctx context.Context, now time.Time) ([]ParkedVehicle, error)
	CountByLocation(ctx context.Context, now time.Time) (map[string]int, error)
	HistoryFor(ctx context.Context, plate string) ([]model.MovementEvent, error)
	Stats(ctx context.Context, now time.Time) (Stats, error)
	DB() *gorm.DB
}

// gormStore implements EventStore using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed event store.
func NewGormStore(db *gorm.DB) EventStore {
	return &gormStore{db: db}
}

// DB exposes the underlying connection for collaborators that manage their
// own rows (push subscriptions).
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// Append inserts a batch of movement events in a single transaction.
// Events whose (plate_number, occurred_at, event_type) triple is already
// stored are silently skipped; the return value counts only new rows.
// A failure rolls the whole batch back.
func (s *gormStore) Append(ctx context.Context, events []model.MovementEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	var inserted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "plate_number"},
				{Name: "occurred_at"},
				{Name: "event_type"},
			},
			DoNothing: true,
		}).Create(&events)
		if res.Error != nil {
			return fmt.Errorf("batch insert of %d movement events failed: %w", len(events), res.Error)
		}
		inserted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return int(inserted), nil
}

// ParkedVehicles derives current occupancy from the log: a plate is parked
// iff it has an ENTRY event and no EXIT event after that entry. A repeated
// ENTRY without an intervening EXIT keys the duration to the newer entry.
// Results are ordered most-recent entry first; ParkingHours is relative to
// the supplied now.
func (s *gormStore) ParkedVehicles(ctx context.Context, now time.Time) ([]ParkedVehicle, error) {
	// One self-referencing query: each plate's newest ENTRY row, kept only
	// when no later EXIT exists for that plate.
	var entries []model.MovementEvent
	if err := s.db.WithContext(ctx).
		Where(`event_type = ?
			AND occurred_at = (
				SELECT MAX(m.occurred_at) FROM movement_events m
				WHERE m.plate_number = movement_events.plate_number AND m.event_type = movement_events.event_type)
			AND NOT EXISTS (
				SELECT 1 FROM movement_events x
				WHERE x.plate_number = movement_events.plate_number AND x.event_type = ? AND x.occurred_at > movement_events.occurred_at)`,
			model.MovementEntry, model.MovementExit).
		Order("occurred_at DESC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to derive parked vehicles: %w", err)
	}

	parked := make([]ParkedVehicle, 0, len(entries))
	for _, e := range entries {
		location := e.Location
		if location == "" {
			location = UnspecifiedLocation
		}
		parked = append(parked, ParkedVehicle{
			PlateNumber:  e.PlateNumber,
			EnteredAt:    e.OccurredAt,
			Location:     location,
			CardType:     e.CardType,
			ParkingHours: now.Sub(e.OccurredAt).Hours(),
		})
	}
	return parked, nil
}

// CountByLocation aggregates currently parked vehicles per gate location.
func (s *gormStore) CountByLocation(ctx context.Context, now time.Time) (map[string]int, error) {
	parked, err := s.ParkedVehicles(ctx, now)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, p := range parked {
		counts[p.Location]++
	}
	return counts, nil
}

// HistoryFor returns all movement events for a plate, newest first.
func (s *gormStore) HistoryFor(ctx context.Context, plate string) ([]model.MovementEvent, error) {
	var events []model.MovementEvent
	if err := s.db.WithContext(ctx).
		Where("plate_number = ?", plate).
		Order("occurred_at DESC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to load history for plate %s: %w", plate, err)
	}
	return events, nil
}

// Stats summarizes the log: total events, currently parked vehicles, and
// events that occurred since midnight in now's location.
func (s *gormStore) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var stats Stats

	if err := s.db.WithContext(ctx).Model(&model.MovementEvent{}).
		Count(&stats.TotalEvents).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count events: %w", err)
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.WithContext(ctx).Model(&model.MovementEvent{}).
		Where("occurred_at >= ?", startOfDay).
		Count(&stats.TodayEvents).Error; err != nil {
		return Stats{}, fmt.Errorf("failed to count today's events: %w", err)
	}

	parked, err := s.ParkedVehicles(ctx, now)
	if err != nil {
		return Stats{}, err
	}
	stats.CurrentlyParked = len(parked)

	return stats, nil
}
