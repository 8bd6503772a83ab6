package model

import "time"

// Handler is a public directory listing of a certified recycler facility.
// One listing per user.
type Handler struct {
	ID                  uint64     `json:"id"`
	UserID              uint64     `json:"userId"`
	Name                string     `json:"name"`
	BusinessName        string     `json:"businessName"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone"`
	Region              string     `json:"region"`
	ActivityType        string     `json:"activityType"`
	Rating              float64    `json:"rating"`
	CertificationStatus string     `json:"certificationStatus"`
	ValidUntil          *time.Time `json:"validUntil,omitempty"`
	ServicesOffered     []string   `json:"servicesOffered"`
	PriceRange          string     `json:"priceRange"`
	Capacity            string     `json:"capacity"`
	IsVerified          bool       `json:"isVerified"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`
}

// HandlerFilter holds the optional filters of the public handler search.
type HandlerFilter struct {
	MinRating    *float64
	ActivityType string
	Region       string // case-insensitive substring
	ValidOnly    bool   // only listings whose validUntil lies in the future
}

// WasteCollector is a service provider profile contactable through approach requests.
type WasteCollector struct {
	ID              uint64    `json:"id"`
	UserID          uint64    `json:"userId"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	Region          string    `json:"region"`
	Rating          float64   `json:"rating"`
	Specialization  string    `json:"specialization"`
	Availability    string    `json:"availability"`
	PriceRange      string    `json:"priceRange"`
	Experience      string    `json:"experience"`
	ServicesOffered []string  `json:"servicesOffered"`
	VehicleTypes    []string  `json:"vehicleTypes"`
	OperatingHours  string    `json:"operatingHours"`
	IsVerified      bool      `json:"isVerified"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Feedback is a recycler's rating of a collector.
type Feedback struct {
	ID           uint64    `json:"id"`
	CollectorID  uint64    `json:"collectorId"`
	RecyclerID   uint64    `json:"recyclerId"`
	RecyclerName string    `json:"recyclerName"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	ProjectType  string    `json:"projectType"`
	IsVerified   bool      `json:"isVerified"`
	Response     *string   `json:"response,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CollectorStats summarises a collector's workload and reputation.
type CollectorStats struct {
	TotalProjects  int     `json:"totalProjects"`
	ActiveRequests int     `json:"activeRequests"`
	AverageRating  float64 `json:"averageRating"`
	TotalFeedbacks int     `json:"totalFeedbacks"`
	CompletionRate float64 `json:"completionRate"`
}
