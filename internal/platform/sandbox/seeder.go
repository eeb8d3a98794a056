// Package sandbox generates reproducible demo data for in-memory servers:
// clinics with providers, patients, a month of billing entries and a few
// follow-up tasks.
package sandbox

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbill/clinicbill/internal/domain/admin"
	"github.com/clinicbill/clinicbill/internal/domain/billing"
	"github.com/clinicbill/clinicbill/internal/domain/patient"
	"github.com/clinicbill/clinicbill/internal/domain/task"
	"github.com/clinicbill/clinicbill/internal/store"
	"github.com/clinicbill/clinicbill/pkg/period"
)

// SeedConfig controls the volume of generated data.
type SeedConfig struct {
	Clinics            int
	ProvidersPerClinic int
	PatientsPerClinic  int
	EntriesPerProvider int
	TodosPerClinic     int
	// Month receives every billing entry. Zero means the current month.
	Month period.Month
	Seed  int64
}

// DefaultSeedConfig returns a small data set that fits on one screen.
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		Clinics:            2,
		ProvidersPerClinic: 3,
		PatientsPerClinic:  10,
		EntriesPerProvider: 8,
		TodosPerClinic:     4,
		Seed:               1,
	}
}

// SeedResult counts what was written.
type SeedResult struct {
	Clinics   int
	Providers int
	Patients  int
	Entries   int
	Todos     int
}

var (
	clinicNames = []string{"Riverside Family Practice", "Northgate Pediatrics", "Lakeview Internal Medicine", "Harbor Physical Therapy", "Summit Dermatology"}
	cities      = []string{"Springfield", "Fairview", "Madison", "Georgetown", "Salem"}
	firstNames  = []string{"James", "Mary", "Robert", "Patricia", "John", "Jennifer", "Michael", "Linda", "David", "Elizabeth", "Maria", "Wei", "Aisha", "Carlos"}
	lastNames   = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez", "Chen", "Patel", "Nguyen"}
	insurers    = []string{"Aetna", "Blue Cross", "Cigna", "Medicare", "UnitedHealthcare", "Self-pay"}
	todoIssues  = []string{"Missing modifier", "Eligibility check failed", "Needs prior authorization", "Duplicate claim", "Diagnosis code mismatch"}
)

type procedure struct {
	code        string
	description string
	amount      float64
}

var procedures = []procedure{
	{"99213", "Office visit, established patient, low complexity", 110},
	{"99214", "Office visit, established patient, moderate complexity", 165},
	{"99203", "Office visit, new patient, low complexity", 150},
	{"97110", "Therapeutic exercise, 15 minutes", 45},
	{"36415", "Routine venipuncture", 12},
	{"90471", "Immunization administration", 28},
	{"11102", "Tangential skin biopsy", 140},
}

var entryStatuses = []billing.EntryStatus{
	billing.EntryPending, billing.EntryPending, billing.EntryApproved, billing.EntryApproved, billing.EntryPaid, billing.EntryRejected,
}

var todoStatuses = []task.Status{task.StatusWaiting, task.StatusInProgress, task.StatusOnHold, task.StatusCompleted}

// Seeder writes generated rows through a store gateway.
type Seeder struct {
	cfg SeedConfig
	rng *rand.Rand
	now func() time.Time
}

func NewSeeder(cfg SeedConfig) *Seeder {
	return &Seeder{cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed)), now: time.Now}
}

func (s *Seeder) pick(pool []string) string {
	return pool[s.rng.Intn(len(pool))]
}

func (s *Seeder) personName() (string, string) {
	return s.pick(firstNames), s.pick(lastNames)
}

func (s *Seeder) phone() string {
	return fmt.Sprintf("(%03d) 555-%04d", 200+s.rng.Intn(700), s.rng.Intn(10000))
}

// Seed generates the configured data set into gw.
func (s *Seeder) Seed(ctx context.Context, gw store.Gateway) (*SeedResult, error) {
	month := s.cfg.Month
	if month.Year == 0 {
		now := s.now()
		month = period.Month{Year: now.Year(), Month: now.Month()}
	}
	start := month.First()
	days := month.Last().Day()

	res := &SeedResult{}
	for i := 0; i < s.cfg.Clinics; i++ {
		clinic, err := gw.Clinics.Create(ctx, admin.ClinicRow{
			ID:      uuid.NewString(),
			Name:    clinicNames[i%len(clinicNames)],
			Address: fmt.Sprintf("%d Main St, %s", 100+s.rng.Intn(900), s.pick(cities)),
			Phone:   s.phone(),
			Active:  true,
		})
		if err != nil {
			return res, fmt.Errorf("seed clinic: %w", err)
		}
		res.Clinics++

		var patientNames []string
		for j := 0; j < s.cfg.PatientsPerClinic; j++ {
			first, last := s.personName()
			if _, err := gw.Patients.Create(ctx, patient.Row{
				ID:          uuid.NewString(),
				PatientID:   fmt.Sprintf("MRN-%06d", s.rng.Intn(1000000)),
				FirstName:   first,
				LastName:    last,
				Insurance:   s.pick(insurers),
				Copay:       float64(5 * s.rng.Intn(11)),
				Coinsurance: float64(s.rng.Intn(5)) * 0.05,
				ClinicID:    clinic.ID,
			}); err != nil {
				return res, fmt.Errorf("seed patient: %w", err)
			}
			patientNames = append(patientNames, first+" "+last)
			res.Patients++
		}

		for j := 0; j < s.cfg.ProvidersPerClinic; j++ {
			first, last := s.personName()
			provider, err := gw.Providers.Create(ctx, admin.ProviderRow{
				ID:       uuid.NewString(),
				Name:     fmt.Sprintf("Dr. %s %s", first, last),
				Email:    fmt.Sprintf("%s.%s.%d@example.test", first, last, s.rng.Intn(1000)),
				ClinicID: clinic.ID,
				Active:   true,
			})
			if err != nil {
				return res, fmt.Errorf("seed provider: %w", err)
			}
			res.Providers++

			for k := 0; k < s.cfg.EntriesPerProvider && len(patientNames) > 0; k++ {
				proc := procedures[s.rng.Intn(len(procedures))]
				row := billing.EntryRow{
					ID:            uuid.NewString(),
					ProviderID:    provider.ID,
					ClinicID:      clinic.ID,
					Date:          start.AddDate(0, 0, s.rng.Intn(days)),
					PatientName:   s.pick(patientNames),
					ProcedureCode: proc.code,
					Description:   proc.description,
					Amount:        proc.amount,
					Status:        string(entryStatuses[s.rng.Intn(len(entryStatuses))]),
				}
				if row.Status != string(billing.EntryPending) {
					claim := fmt.Sprintf("CLM-%08d", s.rng.Intn(100000000))
					row.ClaimNumber = &claim
				}
				if _, err := gw.Entries.Create(ctx, row); err != nil {
					return res, fmt.Errorf("seed billing entry: %w", err)
				}
				res.Entries++
			}
		}

		for j := 0; j < s.cfg.TodosPerClinic; j++ {
			row := task.Row{
				ID:        uuid.NewString(),
				ClinicID:  clinic.ID,
				ClaimID:   fmt.Sprintf("CLM-%08d", s.rng.Intn(100000000)),
				Status:    string(todoStatuses[s.rng.Intn(len(todoStatuses))]),
				Issue:     s.pick(todoIssues),
				CreatedBy: "sandbox",
			}
			if row.Status == string(task.StatusCompleted) {
				done := s.now()
				row.CompletedAt = &done
			}
			if _, err := gw.Todos.Create(ctx, row); err != nil {
				return res, fmt.Errorf("seed todo item: %w", err)
			}
			res.Todos++
		}
	}
	return res, nil
}
