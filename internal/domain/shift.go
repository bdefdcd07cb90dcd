package domain

import (
	"context"
	"time"
)

// Employee is a member of a company who can be rostered.
type Employee struct {
	ID         string `json:"id"`
	CompanyID  string `json:"-"`
	UserID     string `json:"-"`
	FullName   string `json:"full_name"`
	Department string `json:"department,omitempty"`
}

// Shift is a rostered block of work.
// Department is copied from the employee when the shift is created and may
// drift from the employee's current department.
type Shift struct {
	ID             string    `json:"id"`
	CompanyID      string    `json:"-"`
	EmployeeID     string    `json:"employee_id"`
	EmployeeName   string    `json:"employee_name"`
	AssignedUserID string    `json:"-"`
	Department     string    `json:"department,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Location       string    `json:"location,omitempty"`
	Role           string    `json:"role,omitempty"`
	Published      bool      `json:"published"`
	Notes          string    `json:"notes,omitempty"`
}

// ShiftQuery scopes a shift lookup. CompanyID is always required.
type ShiftQuery struct {
	CompanyID string
	StartFrom time.Time // start_time >= StartFrom
	EndUntil  time.Time // end_time <= EndUntil

	// AssignedUserID restricts to shifts assigned to a user when set.
	AssignedUserID string

	// PublishedOnly restricts to published shifts.
	PublishedOnly bool
}

// ShiftStore is the data-store contract for rota data.
type ShiftStore interface {
	// ListShifts returns shifts matching q ordered by start time ascending.
	ListShifts(ctx context.Context, q ShiftQuery) ([]Shift, error)

	// ListEmployees returns a company's employees ordered by full name.
	ListEmployees(ctx context.Context, companyID string) ([]Employee, error)
}
