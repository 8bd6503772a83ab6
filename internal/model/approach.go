package model

import "time"

// ApproachStatus is the state of a contact request.
type ApproachStatus string

const (
	ApproachPending   ApproachStatus = "pending"
	ApproachAccepted  ApproachStatus = "accepted"
	ApproachRejected  ApproachStatus = "rejected"
	ApproachCompleted ApproachStatus = "completed"
)

// ApproachRequest is a directed contact request from a recycler to a
// collector.  RecyclerID is a user id; CollectorID is the collector
// profile id, CollectorUserID the profile's owning user.
type ApproachRequest struct {
	ID              uint64         `json:"id"`
	RecyclerID      uint64         `json:"recyclerId"`
	CollectorID     uint64         `json:"collectorId"`
	CollectorUserID uint64         `json:"collectorUserId"`
	Message         string         `json:"message"`
	Status          ApproachStatus `json:"status"`
	WasteType       *string        `json:"wasteType,omitempty"`
	Quantity        *string        `json:"quantity,omitempty"`
	Urgency         *string        `json:"urgency,omitempty"`
	PreferredDate   *time.Time     `json:"preferredDate,omitempty"`
	Response        *string        `json:"response,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// ApproachMetadata is the optional scheduling payload of a request.
type ApproachMetadata struct {
	WasteType     *string
	Quantity      *string
	Urgency       *string
	PreferredDate *time.Time
}
