package model

import "time"

// The types below map tables owned by the refurbishment system's database.
// This service only ever reads them; there are no migrations for them here.

// Vehicle is the refurbishment system's registration record for a plate.
// A plate can appear multiple times (re-registered vehicles); the row with
// the highest ID among non-deleted rows is the current identity.
type Vehicle struct {
	ID          int64  `gorm:"primaryKey"`
	PlateNumber string `gorm:"column:plate_number"`
	Deleted     bool   `gorm:"column:is_deleted"`
}

func (Vehicle) TableName() string { return "vehicles" }

// VehicleStatus is one status record for a vehicle. Latest record wins;
// there is no versioning beyond "highest ID per vehicle".
type VehicleStatus struct {
	ID         int64     `gorm:"primaryKey"`
	VehicleID  int64     `gorm:"column:vehicle_id"`
	StatusCode string    `gorm:"column:status_code"`
	Deleted    bool      `gorm:"column:is_deleted"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (VehicleStatus) TableName() string { return "vehicle_statuses" }

// Inspection results recorded on tasks.
const (
	InspectionPass = "PASS"
	InspectionFail = "FAIL"
)

// VehicleTask is one unit of refurbishment work attached to a status record.
type VehicleTask struct {
	ID               int64   `gorm:"primaryKey"`
	VehicleStatusID  int64   `gorm:"column:vehicle_status_id"`
	PartName         string  `gorm:"column:part_name"`
	StatusCode       string  `gorm:"column:status_code"`
	InspectionResult *string `gorm:"column:inspection_result"`
	Deleted          bool    `gorm:"column:is_deleted"`
}

func (VehicleTask) TableName() string { return "vehicle_tasks" }
