// Package taxonomy maps the two generations of refurbishment status codes
// onto one unified set of reporting categories. It is pure lookup tables:
// adding another code generation means extending the tables, callers never
// change.
package taxonomy

// Category is one of the unified reporting buckets.
type Category string

const (
	CategoryPending         Category = "pending"
	CategoryWorking         Category = "working"
	CategoryCompleted       Category = "completed"
	CategoryOutboundWaiting Category = "outbound_waiting"
	CategoryDone            Category = "done"
	CategoryOther           Category = "other"
	// CategoryNone is returned for unknown or empty codes, and used by
	// callers for "registered but no status record yet".
	CategoryNone Category = "none"
)

// newGenCategories covers the current refurbishment system's codes.
var newGenCategories = map[string]Category{
	"RECEPTION_COMPLETED":       CategoryPending,
	"INSPECTION_WAITING":        CategoryPending,
	"ESTIMATE_WAITING":          CategoryPending,
	"INSPECTION_IN_PROGRESS":    CategoryWorking,
	"ESTIMATE_APPROVED":         CategoryWorking,
	"REPAIR_WAITING":            CategoryWorking,
	"REPAIR_IN_PROGRESS":        CategoryWorking,
	"QUALITY_CHECK_WAITING":     CategoryWorking,
	"QUALITY_CHECK_IN_PROGRESS": CategoryWorking,
	"REPAIR_COMPLETED":          CategoryCompleted,
	"SHIPMENT_WAITING":          CategoryOutboundWaiting,
	"SHIPMENT_RESERVED":         CategoryOutboundWaiting,
	"SERVICE_COMPLETED":         CategoryDone,
	"ON_HOLD":                   CategoryOther,
	"CANCELLED":                 CategoryOther,
}

// legacyCategories covers the retired system's codes, still present on old
// status records.
var legacyCategories = map[string]Category{
	"INPUT":     CategoryPending,
	"WAITING":   CategoryPending,
	"CHECKING":  CategoryWorking,
	"REPAIRING": CategoryWorking,
	"POLISHING": CategoryWorking,
	"PHOTO":     CategoryWorking,
	"PRICING":   CategoryWorking,
	"CHECKED":   CategoryCompleted,
	"REPAIRED":  CategoryCompleted,
	"POLISHED":  CategoryCompleted,
	"SELLING":   CategoryOutboundWaiting,
	"RESERVED":  CategoryOutboundWaiting,
	"OUTPUT":    CategoryDone,
	"FINISH":    CategoryDone,
}

var statusLabels = map[string]string{
	"RECEPTION_COMPLETED":       "Reception completed",
	"INSPECTION_WAITING":        "Awaiting inspection",
	"INSPECTION_IN_PROGRESS":    "Inspection in progress",
	"ESTIMATE_WAITING":          "Awaiting estimate",
	"ESTIMATE_APPROVED":         "Estimate approved",
	"REPAIR_WAITING":            "Awaiting repair",
	"REPAIR_IN_PROGRESS":        "Repair in progress",
	"REPAIR_COMPLETED":          "Repair completed",
	"QUALITY_CHECK_WAITING":     "Awaiting quality check",
	"QUALITY_CHECK_IN_PROGRESS": "Quality check in progress",
	"SHIPMENT_WAITING":          "Awaiting shipment",
	"SHIPMENT_RESERVED":         "Shipment reserved",
	"SERVICE_COMPLETED":         "Service completed",
	"ON_HOLD":                   "On hold",
	"CANCELLED":                 "Cancelled",
	"INPUT":                     "Received (legacy)",
	"WAITING":                   "Waiting (legacy)",
	"CHECKING":                  "Inspecting (legacy)",
	"CHECKED":                   "Inspected (legacy)",
	"REPAIRING":                 "Repairing (legacy)",
	"REPAIRED":                  "Repaired (legacy)",
	"POLISHING":                 "Polishing (legacy)",
	"POLISHED":                  "Polished (legacy)",
	"PHOTO":                     "Photographing (legacy)",
	"PRICING":                   "Pricing (legacy)",
	"SELLING":                   "On sale (legacy)",
	"RESERVED":                  "Reserved (legacy)",
	"OUTPUT":                    "Shipped (legacy)",
	"FINISH":                    "Finished (legacy)",
}

var categoryLabels = map[Category]string{
	CategoryPending:         "Pending",
	CategoryWorking:         "In progress",
	CategoryCompleted:       "Work completed",
	CategoryOutboundWaiting: "Awaiting outbound",
	CategoryDone:            "Done",
	CategoryOther:           "Other",
	CategoryNone:            "No status record",
}

// Categorize maps a status code from either generation to its reporting
// category. Unknown or empty codes map to CategoryNone; it never fails.
func Categorize(statusCode string) Category {
	if c, ok := newGenCategories[statusCode]; ok {
		return c
	}
	if c, ok := legacyCategories[statusCode]; ok {
		return c
	}
	return CategoryNone
}

// StatusText returns the human label for a status code, falling back to the
// raw code when unmapped.
func StatusText(statusCode string) string {
	if label, ok := statusLabels[statusCode]; ok {
		return label
	}
	return statusCode
}

// CategoryText returns the human label for a category.
func CategoryText(c Category) string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// activeTaskCodes is the task working set counted as "currently being
// worked" in aggregates. WAIT is queued rather than started, but the
// operational reports have always counted it as active; kept as-is.
var activeTaskCodes = map[string]struct{}{
	"TASKING":  {},
	"ON_QUEUE": {},
	"DOING":    {},
	"WAIT":     {},
}

// IsActiveTask reports whether a task status code belongs to the working set.
func IsActiveTask(statusCode string) bool {
	_, ok := activeTaskCodes[statusCode]
	return ok
}

// ActiveTaskCodes returns the working-set codes for use in queries.
func ActiveTaskCodes() []string {
	codes := make([]string, 0, len(activeTaskCodes))
	for c := range activeTaskCodes {
		codes = append(codes, c)
	}
	return codes
}
