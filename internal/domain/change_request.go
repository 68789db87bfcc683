package domain

import (
	"context"
	"time"
)

type Status string

const (
	StatusPending  Status = "Pending"
	StatusReviewed Status = "Reviewed"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

var Statuses = []Status{StatusPending, StatusReviewed, StatusApproved, StatusRejected}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s Status) Terminal() bool { return s == StatusApproved || s == StatusRejected }

type Priority string

const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if p == v {
			return true
		}
	}
	return false
}

type ChangeRequest struct {
	ID                 string    `gorm:"primaryKey;size:64" json:"id"`
	Title              string    `gorm:"size:255;not null" json:"title"`
	System             string    `gorm:"size:255;not null" json:"system"`
	Requester          string    `gorm:"size:128;not null;index:idx_change_requests_requester" json:"requester"`
	Department         string    `gorm:"size:128;not null" json:"department"`
	Description        string    `gorm:"type:text;not null" json:"description"`
	Reason             string    `gorm:"type:text;not null" json:"reason"`
	Impact             string    `gorm:"type:text;not null" json:"impact"`
	Priority           Priority  `gorm:"size:16;not null" json:"priority"`
	RequestDate        time.Time `gorm:"not null;index:idx_change_requests_request_date" json:"requestDate"`
	ImplementationDate string    `gorm:"size:64;not null" json:"implementationDate"`
	Status             Status    `gorm:"size:16;not null;index:idx_change_requests_status" json:"status"`
	Summary            string    `gorm:"type:text;not null" json:"summary"`
	Remarks            *string   `gorm:"type:text" json:"remarks,omitempty"`
}

func (ChangeRequest) TableName() string { return "change_requests" }

// NewChangeRequest carries the submitter-provided fields; id, requestDate,
// status and summary are assigned on creation.
type NewChangeRequest struct {
	Title              string   `json:"title"`
	System             string   `json:"system"`
	Requester          string   `json:"requester"`
	Department         string   `json:"department"`
	Description        string   `json:"description"`
	Reason             string   `json:"reason"`
	Impact             string   `json:"impact"`
	Priority           Priority `json:"priority"`
	ImplementationDate string   `json:"implementationDate"`
}

type ChangeRequestRepository interface {
	// List returns all requests, newest requestDate first.
	List(ctx context.Context) ([]ChangeRequest, error)
	FindByID(ctx context.Context, id string) (*ChangeRequest, error)
	// Create and Update rewrite r.RequestDate to UTC truncated to the
	// millisecond, the precision every backend stores.
	Create(ctx context.Context, r *ChangeRequest) error
	Update(ctx context.Context, r *ChangeRequest) error
	CountByDepartment(ctx context.Context, department string) (int64, error)
}
