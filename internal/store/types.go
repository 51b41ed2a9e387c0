package store

import "time"

// UnspecifiedLocation is the bucket for events whose gate equipment did not
// report a location name.
const UnspecifiedLocation = "unspecified"

// ParkedVehicle is the derived occupancy state for one plate. It is computed
// from the event log at query time and never stored.
type ParkedVehicle struct {
	PlateNumber  string    `json:"plateNumber"`
	EnteredAt    time.Time `json:"enteredAt"`
	Location     string    `json:"location"`
	CardType     string    `json:"cardType"`
	ParkingHours float64   `json:"parkingHours"`
}

// Stats summarizes the event log.
type Stats struct {
	TotalEvents     int64 `json:"totalEvents"`
	CurrentlyParked int   `json:"currentlyParked"`
	TodayEvents     int64 `json:"todayEvents"`
}
