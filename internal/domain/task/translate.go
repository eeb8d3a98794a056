package task

import (
	"fmt"
	"time"

	"github.com/clinicbill/clinicbill/internal/platform/db"
)

func FromRow(r Row) Item {
	out := Item{
		ID:        r.ID,
		ClinicID:  r.ClinicID,
		ClaimID:   r.ClaimID,
		Status:    Status(r.Status),
		Issue:     r.Issue,
		Notes:     db.StringValue(r.Notes),
		CreatedBy: r.CreatedBy,
	}
	if r.CompletedAt != nil {
		out.CompletedAt = r.CompletedAt.UTC().Format(time.RFC3339)
	}
	return out
}

func (i Item) ToRow() (Row, error) {
	row := Row{
		ID:        i.ID,
		ClinicID:  i.ClinicID,
		ClaimID:   i.ClaimID,
		Status:    string(i.Status),
		Issue:     i.Issue,
		Notes:     db.NullString(i.Notes),
		CreatedBy: i.CreatedBy,
	}
	if i.CompletedAt != "" {
		t, err := time.Parse(time.RFC3339, i.CompletedAt)
		if err != nil {
			return Row{}, fmt.Errorf("completedAt: %w", err)
		}
		row.CompletedAt = &t
	}
	return row, nil
}

func (p Patch) Columns() (db.Columns, error) {
	cols := db.Columns{}
	if p.ClinicID != nil {
		cols["clinic_id"] = *p.ClinicID
	}
	if p.ClaimID != nil {
		cols["claim_id"] = *p.ClaimID
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.Issue != nil {
		cols["issue"] = *p.Issue
	}
	if p.Notes != nil {
		cols["notes"] = db.NullString(*p.Notes)
	}
	if p.completion {
		cols["completed_at"] = p.completedAt
	}
	return cols, nil
}
