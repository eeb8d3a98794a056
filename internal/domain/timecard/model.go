// Package timecard records employee hours and derives pay.
package timecard

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/clinicbill/clinicbill/internal/platform/fsm"
)

// Status is the timecard approval state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
)

var Transitions = fsm.New("timecard entry", map[Status][]Status{
	StatusDraft:     {StatusSubmitted},
	StatusSubmitted: {StatusApproved, StatusRejected},
	StatusRejected:  {StatusDraft, StatusSubmitted},
	StatusApproved:  nil,
})

// Entry is one day's hours for an employee. EmployeeID is not necessarily a
// provider. TotalPay is derived by ComputePay and never accepted as input.
type Entry struct {
	ID          string  `json:"id"`
	EmployeeID  string  `json:"employeeId" validate:"required"`
	ClinicID    string  `json:"clinicId" validate:"required"`
	Date        string  `json:"date" validate:"required,datetime=2006-01-02"`
	HoursWorked float64 `json:"hoursWorked" validate:"gte=0,lte=24"`
	HourlyRate  float64 `json:"hourlyRate" validate:"gte=0"`
	TotalPay    float64 `json:"totalPay"`
	Status      Status  `json:"status" validate:"omitempty,oneof=draft submitted approved rejected"`
	Notes       string  `json:"notes,omitempty"`
}

// Row maps to the timecard_entries table.
type Row struct {
	ID          string    `db:"id"`
	EmployeeID  string    `db:"employee_id"`
	ClinicID    string    `db:"clinic_id"`
	Date        time.Time `db:"date"`
	HoursWorked float64   `db:"hours_worked"`
	HourlyRate  float64   `db:"hourly_rate"`
	TotalPay    float64   `db:"total_pay"`
	Status      string    `db:"status"`
	Notes       *string   `db:"notes"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type Patch struct {
	EmployeeID  *string  `json:"employeeId,omitempty" validate:"omitempty,min=1"`
	ClinicID    *string  `json:"clinicId,omitempty" validate:"omitempty,min=1"`
	Date        *string  `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	HoursWorked *float64 `json:"hoursWorked,omitempty" validate:"omitempty,gte=0,lte=24"`
	HourlyRate  *float64 `json:"hourlyRate,omitempty" validate:"omitempty,gte=0"`
	Status      *Status  `json:"status,omitempty" validate:"omitempty,oneof=draft submitted approved rejected"`
	Notes       *string  `json:"notes,omitempty"`

	totalPay *float64
}

// ComputePay is hours x rate, rounded to cents.
func ComputePay(hours, rate float64) float64 {
	pay, _ := decimal.NewFromFloat(hours).Mul(decimal.NewFromFloat(rate)).Round(2).Float64()
	return pay
}

// WithPay returns e with TotalPay recomputed.
func (e Entry) WithPay() Entry {
	e.TotalPay = ComputePay(e.HoursWorked, e.HourlyRate)
	return e
}

// Reprice attaches the recomputed total pay when p changes hours or rate.
func (p Patch) Reprice(current Entry) Patch {
	if p.HoursWorked == nil && p.HourlyRate == nil {
		return p
	}
	hours, rate := current.HoursWorked, current.HourlyRate
	if p.HoursWorked != nil {
		hours = *p.HoursWorked
	}
	if p.HourlyRate != nil {
		rate = *p.HourlyRate
	}
	pay := ComputePay(hours, rate)
	p.totalPay = &pay
	return p
}
