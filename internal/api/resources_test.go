package api

import (
	"net/http"
	"sort"
	"testing"

	"github.com/clinicbill/clinicbill/internal/domain/admin"
	"github.com/clinicbill/clinicbill/internal/domain/billing"
	"github.com/clinicbill/clinicbill/internal/domain/patient"
	"github.com/clinicbill/clinicbill/internal/domain/task"
)

func entryIDs(t *testing.T, f *fixture, ws, query string) []string {
	t.Helper()
	rec := f.do(t, ws, http.MethodGet, "/billing-entries"+query, nil)
	expectStatus(t, rec, http.StatusOK)
	var ids []string
	for _, e := range decode[page[billing.BillingEntry]](t, rec).Data {
		ids = append(ids, e.ID)
	}
	sort.Strings(ids)
	return ids
}

func sorted(ids ...string) []string {
	sort.Strings(ids)
	return ids
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestBillingEntries_ScopedByRole(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		email string
		want  []string
	}{
		{"admin@clinic.io", sorted(f.entryA, f.entryB, f.entryShared)},
		{"office@clinic.io", sorted(f.entryA, f.entryShared)},
		{"viewer@clinic.io", sorted(f.entryA, f.entryShared)},
		{"doc@clinic.io", sorted(f.entryA)},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			ws := f.login(t, tt.email)
			if got := entryIDs(t, f, ws, ""); !equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBillingEntries_QueryFilters(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "admin@clinic.io")

	if got := entryIDs(t, f, ws, "?month=March%202025"); !equal(got, sorted(f.entryA, f.entryB)) {
		t.Errorf("march: got %v", got)
	}
	if got := entryIDs(t, f, ws, "?providerId="+f.providerB); !equal(got, sorted(f.entryB, f.entryShared)) {
		t.Errorf("provider B: got %v", got)
	}
	if got := entryIDs(t, f, ws, "?status=paid"); !equal(got, sorted(f.entryShared)) {
		t.Errorf("paid: got %v", got)
	}
	expectStatus(t, f.do(t, ws, http.MethodGet, "/billing-entries?month=nope", nil), http.StatusBadRequest)
}

func TestBillingEntries_Pagination(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "admin@clinic.io")
	rec := f.do(t, ws, http.MethodGet, "/billing-entries?limit=2", nil)
	expectStatus(t, rec, http.StatusOK)
	p := decode[page[billing.BillingEntry]](t, rec)
	if len(p.Data) != 2 || p.Total != 3 || !p.HasMore {
		t.Errorf("unexpected page: %+v", p)
	}
}

func TestBillingEntries_HiddenRecordIsNotFound(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "office@clinic.io")
	expectStatus(t, f.do(t, ws, http.MethodGet, "/billing-entries/"+f.entryB, nil), http.StatusNotFound)
	expectStatus(t, f.do(t, ws, http.MethodGet, "/billing-entries/"+f.entryA, nil), http.StatusOK)
	expectStatus(t, f.do(t, ws, http.MethodDelete, "/billing-entries/"+f.entryB, nil), http.StatusNotFound)
}

func TestBillingEntries_ProviderSubmitsPending(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "doc@clinic.io")

	body := map[string]interface{}{
		"providerId":    f.providerA,
		"clinicId":      f.clinicA,
		"date":          "2025-03-10",
		"patientName":   "John Doe",
		"procedureCode": "99214",
		"amount":        120,
	}
	rec := f.do(t, ws, http.MethodPost, "/billing-entries", body)
	expectStatus(t, rec, http.StatusCreated)
	if got := decode[billing.BillingEntry](t, rec); got.Status != billing.EntryPending {
		t.Errorf("expected pending, got %s", got.Status)
	}

	body["status"] = "approved"
	expectStatus(t, f.do(t, ws, http.MethodPost, "/billing-entries", body), http.StatusForbidden)

	body["status"] = "pending"
	body["providerId"] = f.providerB
	expectStatus(t, f.do(t, ws, http.MethodPost, "/billing-entries", body), http.StatusForbidden)

	expectStatus(t, f.do(t, ws, http.MethodPatch, "/billing-entries/"+f.entryA,
		map[string]string{"status": "paid"}), http.StatusForbidden)
	expectStatus(t, f.do(t, ws, http.MethodPatch, "/billing-entries/"+f.entryA,
		map[string]string{"notes": "follow up"}), http.StatusOK)
}

func TestBillingEntries_TransitionConflict(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "office@clinic.io")

	// paid is terminal
	rec := f.do(t, ws, http.MethodPatch, "/billing-entries/"+f.entryShared, map[string]string{"status": "pending"})
	expectStatus(t, rec, http.StatusConflict)

	rec = f.do(t, ws, http.MethodPatch, "/billing-entries/"+f.entryA, map[string]string{"status": "paid"})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[billing.BillingEntry](t, rec); got.Status != billing.EntryPaid {
		t.Errorf("expected paid, got %s", got.Status)
	}
}

func TestViewer_ReadOnly(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "viewer@clinic.io")

	expectStatus(t, f.do(t, ws, http.MethodGet, "/patients", nil), http.StatusOK)
	rec := f.do(t, ws, http.MethodPost, "/patients", map[string]string{"patientId": "P-2"})
	expectStatus(t, rec, http.StatusForbidden)
	expectStatus(t, f.do(t, ws, http.MethodPost, "/billing-entries/refresh", nil), http.StatusOK)
}

func TestPatients_ScopeOnWrite(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "office@clinic.io")

	p := patient.Patient{PatientID: "P-2", FirstName: "Ann", LastName: "Lee", ClinicID: f.clinicB}
	expectStatus(t, f.do(t, ws, http.MethodPost, "/patients", p), http.StatusForbidden)

	p.ClinicID = f.clinicA
	rec := f.do(t, ws, http.MethodPost, "/patients", p)
	expectStatus(t, rec, http.StatusCreated)
	created := decode[patient.Patient](t, rec)

	expectStatus(t, f.do(t, ws, http.MethodPatch, "/patients/"+created.ID,
		map[string]string{"clinicId": f.clinicB}), http.StatusForbidden)
	expectStatus(t, f.do(t, ws, http.MethodPatch, "/patients/"+created.ID,
		map[string]string{"insurance": "Acme"}), http.StatusOK)
	expectStatus(t, f.do(t, ws, http.MethodDelete, "/patients/"+created.ID, nil), http.StatusNoContent)
}

func TestPatients_Validation(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "office@clinic.io")
	rec := f.do(t, ws, http.MethodPost, "/patients", map[string]string{"clinicId": f.clinicA})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestProviders_OwnRecordAndWrites(t *testing.T) {
	f := newFixture(t)

	ws := f.login(t, "doc@clinic.io")
	expectStatus(t, f.do(t, ws, http.MethodGet, "/providers/"+f.providerA, nil), http.StatusOK)
	expectStatus(t, f.do(t, ws, http.MethodGet, "/providers/"+f.providerB, nil), http.StatusNotFound)
	expectStatus(t, f.do(t, ws, http.MethodPost, "/providers",
		admin.Provider{Name: "Dr C", ClinicID: f.clinicA}), http.StatusForbidden)

	adminWS := f.login(t, "admin@clinic.io")
	expectStatus(t, f.do(t, adminWS, http.MethodPost, "/providers",
		admin.Provider{Name: "Dr C", ClinicID: f.clinicA, Active: true}), http.StatusCreated)
}

func TestUserProfiles_AdminOnly(t *testing.T) {
	f := newFixture(t)

	ws := f.login(t, "office@clinic.io")
	expectStatus(t, f.do(t, ws, http.MethodGet, "/user-profiles", nil), http.StatusForbidden)
	rec := f.do(t, ws, http.MethodGet, "/me", nil)
	expectStatus(t, rec, http.StatusOK)
	if me := decode[admin.UserProfile](t, rec); me.Email != "office@clinic.io" {
		t.Errorf("unexpected profile: %+v", me)
	}

	adminWS := f.login(t, "admin@clinic.io")
	expectStatus(t, f.do(t, adminWS, http.MethodGet, "/user-profiles", nil), http.StatusOK)
	expectStatus(t, f.do(t, adminWS, http.MethodPatch, "/user-profiles/"+f.users["office@clinic.io"],
		map[string]string{"role": "super_admin"}), http.StatusForbidden)
	expectStatus(t, f.do(t, adminWS, http.MethodPatch, "/user-profiles/"+f.users["office@clinic.io"],
		map[string]string{"role": "billing_staff"}), http.StatusOK)
}

func TestClinics_Visibility(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "office@clinic.io")
	rec := f.do(t, ws, http.MethodGet, "/clinics", nil)
	expectStatus(t, rec, http.StatusOK)
	got := decode[page[admin.Clinic]](t, rec).Data
	if len(got) != 1 || got[0].ID != f.clinicA {
		t.Errorf("expected only the own clinic, got %+v", got)
	}
	expectStatus(t, f.do(t, ws, http.MethodPatch, "/clinics/"+f.clinicA, map[string]bool{"active": false}), http.StatusForbidden)
}

func TestTodoItems_CreatedByCaller(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "office@clinic.io")

	rec := f.do(t, ws, http.MethodPost, "/todo-items", task.Item{
		ClinicID:  f.clinicA,
		ClaimID:   "CLM-1",
		Status:    task.StatusIP,
		Issue:     "missing modifier",
		CreatedBy: "someone-else",
	})
	expectStatus(t, rec, http.StatusCreated)
	item := decode[task.Item](t, rec)
	if item.CreatedBy != f.users["office@clinic.io"] {
		t.Errorf("expected createdBy of caller, got %q", item.CreatedBy)
	}
	if item.Status != task.StatusIP {
		t.Errorf("ip must be kept as ip, got %s", item.Status)
	}

	rec = f.do(t, ws, http.MethodPatch, "/todo-items/"+item.ID, map[string]string{"status": "completed"})
	expectStatus(t, rec, http.StatusOK)
	if done := decode[task.Item](t, rec); done.CompletedAt == "" {
		t.Error("expected completedAt stamped")
	}
}

func TestRefresh_ScopedToPrincipal(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "office@clinic.io")

	rec := f.do(t, ws, http.MethodPost, "/billing-entries/refresh",
		map[string]string{"clinicId": f.clinicB, "month": "March 2025"})
	expectStatus(t, rec, http.StatusOK)
	got := decode[page[billing.BillingEntry]](t, rec).Data
	if len(got) != 1 || got[0].ID != f.entryA {
		t.Errorf("expected the clinic's March entry only, got %+v", got)
	}

	expectStatus(t, f.do(t, ws, http.MethodPost, "/billing-entries/refresh",
		map[string]string{"month": "Smarch"}), http.StatusBadRequest)
	expectStatus(t, f.do(t, ws, http.MethodPost, "/todo-items/refresh", nil), http.StatusOK)
	expectStatus(t, f.do(t, ws, http.MethodPost, "/receivables/refresh", nil), http.StatusOK)

	doc := f.login(t, "doc@clinic.io")
	expectStatus(t, f.do(t, doc, http.MethodPost, "/receivables/refresh", nil), http.StatusForbidden)
}

func TestRevenue(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "office@clinic.io")

	rec := f.do(t, ws, http.MethodGet, "/revenue/clinics/"+f.clinicA, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[revenueResponse](t, rec); got.Revenue != 150 {
		t.Errorf("expected 150 (approved + paid), got %v", got.Revenue)
	}
	expectStatus(t, f.do(t, ws, http.MethodGet, "/revenue/clinics/"+f.clinicB, nil), http.StatusNotFound)
	expectStatus(t, f.do(t, ws, http.MethodGet, "/revenue/clinics/missing", nil), http.StatusNotFound)

	doc := f.login(t, "doc@clinic.io")
	rec = f.do(t, doc, http.MethodGet, "/revenue/providers/"+f.providerA, nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[revenueResponse](t, rec); got.Revenue != 100 {
		t.Errorf("expected 100, got %v", got.Revenue)
	}
	expectStatus(t, f.do(t, doc, http.MethodGet, "/revenue/providers/"+f.providerB, nil), http.StatusNotFound)
}

func TestInvoices_NumberingAndTotals(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "billing@clinic.io")

	rec := f.do(t, ws, http.MethodGet, "/invoices/next-number?year=2025", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[nextNumberResponse](t, rec); got.InvoiceNumber != "INV-2025-001" {
		t.Errorf("unexpected number: %+v", got)
	}
	expectStatus(t, f.do(t, ws, http.MethodGet, "/invoices/next-number?year=abc", nil), http.StatusBadRequest)

	rec = f.do(t, ws, http.MethodPost, "/invoices", billing.Invoice{
		ClinicID: f.clinicA,
		Date:     "2025-05-01",
		DueDate:  "2025-05-31",
		Items:    []billing.InvoiceItem{{Description: "Consult", Quantity: 2, Rate: 50}},
		TaxRate:  10,
		Total:    1,
	})
	expectStatus(t, rec, http.StatusCreated)
	inv := decode[billing.Invoice](t, rec)
	if inv.InvoiceNumber != "INV-2025-001" || inv.Subtotal != 100 || inv.Total != 110 {
		t.Errorf("unexpected invoice: %+v", inv)
	}

	office := f.login(t, "office@clinic.io")
	expectStatus(t, f.do(t, office, http.MethodGet, "/invoices", nil), http.StatusOK)
	expectStatus(t, f.do(t, office, http.MethodPatch, "/invoices/"+inv.ID,
		map[string]string{"status": "sent"}), http.StatusForbidden)
}

func TestSelection(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "viewer@clinic.io")

	expectStatus(t, f.do(t, ws, http.MethodGet, "/selection", nil), http.StatusNoContent)
	expectStatus(t, f.do(t, ws, http.MethodPut, "/selection", map[string]int{"year": 2025, "month": 13}), http.StatusBadRequest)

	rec := f.do(t, ws, http.MethodPut, "/selection", map[string]int{"year": 2025, "month": 3})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[selectionResponse](t, rec); got.Label != "March 2025" {
		t.Errorf("unexpected label %q", got.Label)
	}
	rec = f.do(t, ws, http.MethodGet, "/selection", nil)
	expectStatus(t, rec, http.StatusOK)
	if got := decode[selectionResponse](t, rec); got.Month != 3 || got.Year != 2025 {
		t.Errorf("unexpected selection %+v", got)
	}
}

func TestDataRefresh(t *testing.T) {
	f := newFixture(t)
	ws := f.login(t, "admin@clinic.io")
	expectStatus(t, f.do(t, ws, http.MethodPost, "/data/refresh", nil), http.StatusNoContent)
	if got := entryIDs(t, f, ws, ""); len(got) != 3 {
		t.Errorf("expected 3 entries after reload, got %v", got)
	}
}
