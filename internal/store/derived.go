package store

import (
	"github.com/shopspring/decimal"

	"github.com/clinicbill/clinicbill/internal/domain/billing"
)

// Revenue counts approved and paid billing entries.
func countsAsRevenue(e billing.BillingEntry) bool {
	return e.Status == billing.EntryApproved || e.Status == billing.EntryPaid
}

func (s *Store) revenue(keep func(billing.BillingEntry) bool) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sum := decimal.Zero
	for _, e := range s.entries.items {
		if countsAsRevenue(e) && keep(e) {
			sum = sum.Add(decimal.NewFromFloat(e.Amount))
		}
	}
	f, _ := sum.Round(2).Float64()
	return f
}

// ClinicRevenue sums the loaded revenue entries of clinicID.
func (s *Store) ClinicRevenue(clinicID string) float64 {
	return s.revenue(func(e billing.BillingEntry) bool { return e.ClinicID == clinicID })
}

// ProviderRevenue sums the loaded revenue entries of providerID.
func (s *Store) ProviderRevenue(providerID string) float64 {
	return s.revenue(func(e billing.BillingEntry) bool { return e.ProviderID == providerID })
}
