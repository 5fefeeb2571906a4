package model

// API request/response and persistence read models.

// PlanRequest asks the service to run the trial search over a scenario.
type PlanRequest struct {
	Scenario string  `json:"scenario,omitempty"`
	Trials   int     `json:"trials,omitempty"`
	Seed     int64   `json:"seed,omitempty"`
	Workers  int     `json:"workers,omitempty"`
	BudgetMs int     `json:"budgetMs,omitempty"`
	Vehicles int     `json:"vehicles,omitempty"`
	Capacity int     `json:"capacity,omitempty"`
	SpeedMPH float64 `json:"speedMph,omitempty"`
}

// PlanRecord is the persisted outcome of one search run.
type PlanRecord struct {
	ID            string            `json:"id"`
	Scenario      string            `json:"scenario,omitempty"`
	Status        string            `json:"status"`
	Trials        int               `json:"trials"`
	FeasibleRuns  int               `json:"feasibleRuns"`
	BestMileage   float64           `json:"bestMileage"`
	WorstMileage  float64           `json:"worstMileage,omitempty"`
	AvgMileage    float64           `json:"avgMileage,omitempty"`
	Seed          int64             `json:"seed"`
	CreatedAt     string            `json:"createdAt"`
	Error         string            `json:"error,omitempty"`
	VehicleRoutes []VehicleRouteOut `json:"vehicleRoutes,omitempty"`
	Packages      []PackageOut      `json:"packages,omitempty"`
}

// Plan record statuses.
const (
	PlanRunning  = "RUNNING"
	PlanComplete = "COMPLETE"
	PlanFailed   = "FAILED"
)

// VehicleRouteOut is the per-vehicle slice of a plan record.
type VehicleRouteOut struct {
	VehicleID  int     `json:"vehicleId"`
	Route      []int   `json:"route"`
	Mileage    float64 `json:"mileage"`
	DepartedAt string  `json:"departedAt,omitempty"`
	ReturnedAt string  `json:"returnedAt,omitempty"`
}

// PackageOut is the per-package delivery view consumed by reporting.
type PackageOut struct {
	ID          int    `json:"id"`
	Location    string `json:"location"`
	Deadline    string `json:"deadline,omitempty"`
	Status      string `json:"status"`
	VehicleID   int    `json:"vehicleId,omitempty"`
	DepartedAt  string `json:"departedAt,omitempty"`
	DeliveredAt string `json:"deliveredAt,omitempty"`
	OnTime      bool   `json:"onTime"`
}

// Plan event types published on the event broker during a search.
const (
	EventTrialDone    = "plan.trial"
	EventPlanComplete = "plan.completed"
	EventPlanFailed   = "plan.failed"
)

// SubscriptionRequest registers a webhook consumer for plan events.
type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

// Subscription is a registered webhook consumer.
type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}
