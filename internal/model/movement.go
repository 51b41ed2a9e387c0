package model

import "time"

// MovementType is the direction of a recorded gate scan.
type MovementType string

const (
	MovementEntry MovementType = "ENTRY"
	MovementExit  MovementType = "EXIT"
)

// MovementEvent is one recorded entry or exit scan for a plate. Rows are
// append-only: the ingestion job creates them and nothing updates or deletes
// them. The composite unique index makes re-polled date ranges idempotent.
type MovementEvent struct {
	ID          int64        `gorm:"autoIncrement;primaryKey" json:"id"`
	PlateNumber string       `gorm:"size:32;not null;uniqueIndex:uniq_movement,priority:1" json:"plateNumber"`
	OccurredAt  time.Time    `gorm:"not null;uniqueIndex:uniq_movement,priority:2;index" json:"occurredAt"`
	EventType   MovementType `gorm:"size:8;not null;uniqueIndex:uniq_movement,priority:3" json:"eventType"`
	Location    string       `gorm:"size:128" json:"location"`
	CardType    string       `gorm:"size:64" json:"cardType"`
	RawPayload  string       `gorm:"type:text" json:"-"`
	CreatedAt   time.Time    `gorm:"not null" json:"-"`
}
