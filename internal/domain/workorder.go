package domain

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityNormal Priority = "NORMAL"
	PriorityLow    Priority = "LOW"
)

// ExtractedData is what the extractor pulls out of one email.
type ExtractedData struct {
	Title       string   `json:"title"`
	Priority    Priority `json:"priority"`
	Description string   `json:"description"`
	DueDate     string   `json:"due_date"`
	Customer    string   `json:"customer"`
	Location    string   `json:"location"`
	Trade       string   `json:"trade"`
	Summary     string   `json:"summary"`
	ActionItems string   `json:"action_items"`
}

type WorkOrder struct {
	ID int64 `json:"id"`
	ExtractedData
	CreatedAt string `json:"created_at"`
}

// SampleWorkOrders is the demo list served by GET /work-orders.
func SampleWorkOrders() []WorkOrder {
	return []WorkOrder{
		{
			ID: 1,
			ExtractedData: ExtractedData{
				Title:       "Fix Leaking Roof",
				Priority:    PriorityHigh,
				Description: "Customer reported water damage from roof leak in master bedroom",
				DueDate:     "2025-04-10",
				Customer:    "John Smith",
				Location:    "123 Main St, Anytown, USA",
				Trade:       "Roofing",
				Summary:     "Urgent roof repair needed due to water damage in master bedroom.",
				ActionItems: "1. Inspect roof\n2. Repair damaged shingles\n3. Check for interior water damage",
			},
			CreatedAt: "2025-04-03T12:30:00",
		},
		{
			ID: 2,
			ExtractedData: ExtractedData{
				Title:       "HVAC Maintenance",
				Priority:    PriorityNormal,
				Description: "Annual HVAC system check and filter replacement",
				DueDate:     "2025-04-15",
				Customer:    "Jane Doe",
				Location:    "456 Oak Ave, Somewhere, USA",
				Trade:       "HVAC",
				Summary:     "Routine annual HVAC maintenance and filter replacement.",
				ActionItems: "1. Replace air filters\n2. Clean condenser coils\n3. Check refrigerant levels",
			},
			CreatedAt: "2025-04-02T09:15:00",
		},
	}
}
