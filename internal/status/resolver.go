// Package status joins currently parked plates against the refurbishment
// system's database. All lookups are batched so a page of parked vehicles
// costs a fixed number of queries, and all failures degrade to empty or
// partial results: a down product store must never break occupancy
// reporting, only blank out the status columns.
package status

import (
	"context"
	"log"

	"gorm.io/gorm"

	"carpark-status-backend/internal/model"
	"carpark-status-backend/internal/taxonomy"
)

// Info is the resolved refurbishment status for one plate.
//
// A plate that is absent from the result map has no vehicle identity at all
// (unregistered); a plate mapped to an Info with Category none is registered
// but has no status record yet.
type Info struct {
	StatusRecordID      int64             `json:"statusRecordId"`
	StatusCode          string            `json:"statusCode"`
	StatusText          string            `json:"statusText"`
	Category            taxonomy.Category `json:"category"`
	CategoryText        string            `json:"categoryText"`
	HasFailedInspection bool              `json:"hasFailedInspection"`
}

// TaskSummary is one active refurbishment task for a plate.
type TaskSummary struct {
	PartName   string `json:"partName"`
	StatusCode string `json:"statusCode"`
}

// Resolver performs batch lookups against the product-status database.
type Resolver struct {
	db *gorm.DB
}

// NewResolver creates a resolver over the (read-only) product store.
func NewResolver(db *gorm.DB) *Resolver {
	return &Resolver{db: db}
}

// ResolveStatus maps each plate to its latest status record, categorized and
// flagged with any failed inspection. Plates without a vehicle identity are
// absent from the result; lookup failures are logged and produce a partial
// map, never an error.
func (r *Resolver) ResolveStatus(ctx context.Context, plates []string) map[string]Info {
	result := make(map[string]Info)
	if len(plates) == 0 {
		return result
	}

	vehicleByPlate := r.resolveVehicles(ctx, plates)
	if len(vehicleByPlate) == 0 {
		return result
	}

	vehicleIDs := make([]int64, 0, len(vehicleByPlate))
	for _, id := range vehicleByPlate {
		vehicleIDs = append(vehicleIDs, id)
	}

	statusByVehicle := r.resolveLatestStatuses(ctx, vehicleIDs)

	statusIDs := make([]int64, 0, len(statusByVehicle))
	for _, st := range statusByVehicle {
		statusIDs = append(statusIDs, st.ID)
	}
	failed := r.resolveFailedInspections(ctx, statusIDs)

	for plate, vehicleID := range vehicleByPlate {
		st, ok := statusByVehicle[vehicleID]
		if !ok {
			// Registered but never processed: explicit no-record entry.
			result[plate] = Info{
				Category:     taxonomy.CategoryNone,
				CategoryText: taxonomy.CategoryText(taxonomy.CategoryNone),
			}
			continue
		}
		category := taxonomy.Categorize(st.StatusCode)
		result[plate] = Info{
			StatusRecordID:      st.ID,
			StatusCode:          st.StatusCode,
			StatusText:          taxonomy.StatusText(st.StatusCode),
			Category:            category,
			CategoryText:        taxonomy.CategoryText(category),
			HasFailedInspection: failed[st.ID],
		}
	}
	return result
}

// ActiveTasksFor maps each plate to its tasks currently in the working set.
func (r *Resolver) ActiveTasksFor(ctx context.Context, plates []string) map[string][]TaskSummary {
	result := make(map[string][]TaskSummary)
	if len(plates) == 0 {
		return result
	}

	vehicleByPlate := r.resolveVehicles(ctx, plates)
	if len(vehicleByPlate) == 0 {
		return result
	}
	vehicleIDs := make([]int64, 0, len(vehicleByPlate))
	for _, id := range vehicleByPlate {
		vehicleIDs = append(vehicleIDs, id)
	}
	statusByVehicle := r.resolveLatestStatuses(ctx, vehicleIDs)

	plateByStatusID := make(map[int64]string)
	statusIDs := make([]int64, 0, len(statusByVehicle))
	for plate, vehicleID := range vehicleByPlate {
		if st, ok := statusByVehicle[vehicleID]; ok {
			plateByStatusID[st.ID] = plate
			statusIDs = append(statusIDs, st.ID)
		}
	}
	if len(statusIDs) == 0 {
		return result
	}

	var tasks []model.VehicleTask
	if err := r.db.WithContext(ctx).
		Where("vehicle_status_id IN ? AND status_code IN ? AND is_deleted = ?",
			statusIDs, taxonomy.ActiveTaskCodes(), false).
		Find(&tasks).Error; err != nil {
		log.Printf("status: active task lookup failed: %v", err)
		return result
	}

	for _, task := range tasks {
		plate, ok := plateByStatusID[task.VehicleStatusID]
		if !ok {
			continue
		}
		result[plate] = append(result[plate], TaskSummary{
			PartName:   task.PartName,
			StatusCode: task.StatusCode,
		})
	}
	return result
}

// ActiveTaskCountsByPart counts active tasks per work part across the given
// status records, for fleet-wide load reporting.
func (r *Resolver) ActiveTaskCountsByPart(ctx context.Context, statusRecordIDs []int64) map[string]int64 {
	result := make(map[string]int64)
	if len(statusRecordIDs) == 0 {
		return result
	}

	var rows []struct {
		PartName string
		Cnt      int64
	}
	if err := r.db.WithContext(ctx).Model(&model.VehicleTask{}).
		Select("part_name, COUNT(*) AS cnt").
		Where("vehicle_status_id IN ? AND status_code IN ? AND is_deleted = ?",
			statusRecordIDs, taxonomy.ActiveTaskCodes(), false).
		Group("part_name").
		Scan(&rows).Error; err != nil {
		log.Printf("status: task count lookup failed: %v", err)
		return result
	}
	for _, row := range rows {
		result[row.PartName] = row.Cnt
	}
	return result
}

// resolveVehicles maps each plate to its most-recent non-deleted vehicle
// identity (highest ID per plate).
func (r *Resolver) resolveVehicles(ctx context.Context, plates []string) map[string]int64 {
	var rows []struct {
		PlateNumber string
		ID          int64
	}
	if err := r.db.WithContext(ctx).Model(&model.Vehicle{}).
		Select("plate_number, MAX(id) AS id").
		Where("plate_number IN ? AND is_deleted = ?", plates, false).
		Group("plate_number").
		Scan(&rows).Error; err != nil {
		log.Printf("status: vehicle lookup failed: %v", err)
		return map[string]int64{}
	}
	byPlate := make(map[string]int64, len(rows))
	for _, row := range rows {
		byPlate[row.PlateNumber] = row.ID
	}
	return byPlate
}

// resolveLatestStatuses maps each vehicle to its most-recent non-deleted
// status record.
func (r *Resolver) resolveLatestStatuses(ctx context.Context, vehicleIDs []int64) map[int64]model.VehicleStatus {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&model.VehicleStatus{}).
		Select("MAX(id)").
		Where("vehicle_id IN ? AND is_deleted = ?", vehicleIDs, false).
		Group("vehicle_id").
		Scan(&ids).Error; err != nil {
		log.Printf("status: status id lookup failed: %v", err)
		return map[int64]model.VehicleStatus{}
	}
	if len(ids) == 0 {
		return map[int64]model.VehicleStatus{}
	}

	var statuses []model.VehicleStatus
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&statuses).Error; err != nil {
		log.Printf("status: status record lookup failed: %v", err)
		return map[int64]model.VehicleStatus{}
	}
	byVehicle := make(map[int64]model.VehicleStatus, len(statuses))
	for _, st := range statuses {
		byVehicle[st.VehicleID] = st
	}
	return byVehicle
}

// resolveFailedInspections reports which status records have at least one
// non-deleted task flagged FAIL. Failures degrade to "no fails known".
func (r *Resolver) resolveFailedInspections(ctx context.Context, statusIDs []int64) map[int64]bool {
	failed := make(map[int64]bool)
	if len(statusIDs) == 0 {
		return failed
	}

	var ids []int64
	if err := r.db.WithContext(ctx).Model(&model.VehicleTask{}).
		Distinct("vehicle_status_id").
		Where("vehicle_status_id IN ? AND inspection_result = ? AND is_deleted = ?",
			statusIDs, model.InspectionFail, false).
		Pluck("vehicle_status_id", &ids).Error; err != nil {
		log.Printf("status: inspection lookup failed: %v", err)
		return failed
	}
	for _, id := range ids {
		failed[id] = true
	}
	return failed
}
