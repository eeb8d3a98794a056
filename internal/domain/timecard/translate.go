package timecard

import (
	"fmt"

	"github.com/clinicbill/clinicbill/internal/platform/db"
	"github.com/clinicbill/clinicbill/pkg/period"
)

func FromRow(r Row) Entry {
	return Entry{
		ID:          r.ID,
		EmployeeID:  r.EmployeeID,
		ClinicID:    r.ClinicID,
		Date:        period.FormatDate(r.Date),
		HoursWorked: r.HoursWorked,
		HourlyRate:  r.HourlyRate,
		TotalPay:    r.TotalPay,
		Status:      Status(r.Status),
		Notes:       db.StringValue(r.Notes),
	}
}

// ToRow maps e as given; callers run WithPay first.
func (e Entry) ToRow() (Row, error) {
	date, err := period.ParseDate(e.Date)
	if err != nil {
		return Row{}, fmt.Errorf("date: %w", err)
	}
	status := e.Status
	if status == "" {
		status = StatusDraft
	}
	return Row{
		ID:          e.ID,
		EmployeeID:  e.EmployeeID,
		ClinicID:    e.ClinicID,
		Date:        date,
		HoursWorked: e.HoursWorked,
		HourlyRate:  e.HourlyRate,
		TotalPay:    e.TotalPay,
		Status:      string(status),
		Notes:       db.NullString(e.Notes),
	}, nil
}

func (p Patch) Columns() (db.Columns, error) {
	cols := db.Columns{}
	if p.EmployeeID != nil {
		cols["employee_id"] = *p.EmployeeID
	}
	if p.ClinicID != nil {
		cols["clinic_id"] = *p.ClinicID
	}
	if p.Date != nil {
		d, err := period.ParseDate(*p.Date)
		if err != nil {
			return nil, fmt.Errorf("date: %w", err)
		}
		cols["date"] = d
	}
	if p.HoursWorked != nil {
		cols["hours_worked"] = *p.HoursWorked
	}
	if p.HourlyRate != nil {
		cols["hourly_rate"] = *p.HourlyRate
	}
	if p.totalPay != nil {
		cols["total_pay"] = *p.totalPay
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.Notes != nil {
		cols["notes"] = db.NullString(*p.Notes)
	}
	return cols, nil
}
