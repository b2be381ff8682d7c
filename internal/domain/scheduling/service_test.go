package scheduling

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vaxtrack/vaxtrack/internal/domain/catalog"
	"github.com/vaxtrack/vaxtrack/internal/platform/directory"
	"github.com/vaxtrack/vaxtrack/internal/platform/notification"
	"github.com/vaxtrack/vaxtrack/pkg/vaxerr"
)

type mockSchedulingRepo struct {
	mu          sync.Mutex
	schedulings map[uuid.UUID]*Scheduling
}

func newMockSchedulingRepo() *mockSchedulingRepo {
	return &mockSchedulingRepo{schedulings: make(map[uuid.UUID]*Scheduling)}
}

func (m *mockSchedulingRepo) Create(_ context.Context, s *Scheduling) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Storage-level backstop for the live dose slot.
	for _, other := range m.schedulings {
		if other.UserID == s.UserID && other.VaccineID == s.VaccineID &&
			other.DoseNumber == s.DoseNumber && other.Live() {
			return vaxerr.New(vaxerr.KindDuplicateScheduling,
				"a live scheduling already exists for dose %d", s.DoseNumber)
		}
	}
	s.ID = uuid.New()
	cp := *s
	m.schedulings[s.ID] = &cp
	return nil
}

func (m *mockSchedulingRepo) GetByID(_ context.Context, id uuid.UUID) (*Scheduling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedulings[id]
	if !ok {
		return nil, vaxerr.NotFound("scheduling")
	}
	cp := *s
	return &cp, nil
}

func (m *mockSchedulingRepo) Update(_ context.Context, s *Scheduling) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedulings[s.ID]; !ok {
		return vaxerr.NotFound("scheduling")
	}
	cp := *s
	m.schedulings[s.ID] = &cp
	return nil
}

func (m *mockSchedulingRepo) FindLive(_ context.Context, userID, vaccineID uuid.UUID, doseNumber int) (*Scheduling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.schedulings {
		if s.UserID == userID && s.VaccineID == vaccineID && s.DoseNumber == doseNumber && s.Live() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, vaxerr.NotFound("scheduling")
}

func (m *mockSchedulingRepo) ListLiveByUserVaccine(_ context.Context, userID, vaccineID uuid.UUID) ([]*Scheduling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Scheduling
	for _, s := range m.schedulings {
		if s.UserID == userID && s.VaccineID == vaccineID && s.Live() {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockSchedulingRepo) List(_ context.Context, filter ListFilter, limit, offset int) ([]*Scheduling, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*Scheduling
	for _, s := range m.schedulings {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.UserID != uuid.Nil && s.UserID != filter.UserID {
			continue
		}
		if filter.VaccineID != uuid.Nil && s.VaccineID != filter.VaccineID {
			continue
		}
		cp := *s
		all = append(all, &cp)
	}
	total := len(all)
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockSchedulingRepo) ListByDate(_ context.Context, date time.Time) ([]*Scheduling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Scheduling
	for _, s := range m.schedulings {
		if s.ScheduledDate.Format("2006-01-02") == date.Format("2006-01-02") {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockSchedulingRepo) ListByNurseMonth(_ context.Context, nurseID uuid.UUID, year int, month time.Month) ([]*Scheduling, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Scheduling
	for _, s := range m.schedulings {
		if s.AssignedNurseID == nil || *s.AssignedNurseID != nurseID {
			continue
		}
		if s.ScheduledDate.Year() == year && s.ScheduledDate.Month() == month {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockVaccineLookup struct {
	vaccines map[uuid.UUID]*catalog.Vaccine
}

func (m *mockVaccineLookup) GetVaccine(_ context.Context, id uuid.UUID) (*catalog.Vaccine, error) {
	v, ok := m.vaccines[id]
	if !ok {
		return nil, vaxerr.NotFound("vaccine")
	}
	return v, nil
}

type mockApplicationReader struct {
	mu        sync.Mutex
	applied   map[uuid.UUID][]AppliedDose // keyed by user id
	summaries map[uuid.UUID]*ApplicationSummary
}

func newMockApplicationReader() *mockApplicationReader {
	return &mockApplicationReader{
		applied:   make(map[uuid.UUID][]AppliedDose),
		summaries: make(map[uuid.UUID]*ApplicationSummary),
	}
}

func (m *mockApplicationReader) ListApplied(_ context.Context, userID, _ uuid.UUID) ([]AppliedDose, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied[userID], nil
}

func (m *mockApplicationReader) GetSummaryByScheduling(_ context.Context, schedulingID uuid.UUID) (*ApplicationSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.summaries[schedulingID]
	if !ok {
		return nil, vaxerr.NotFound("application")
	}
	return s, nil
}

type fixture struct {
	svc       *Service
	repo      *mockSchedulingRepo
	apps      *mockApplicationReader
	dir       *directory.MockDirectory
	notifier  *notification.MockNotifier
	vaccine   *catalog.Vaccine
	patient   *directory.User
	nurse     *directory.User
	vaccineID uuid.UUID
}

func intPtr(n int) *int { return &n }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	vaccineID := uuid.New()
	vaccine := &catalog.Vaccine{
		ID:            vaccineID,
		Name:          "Hepatite B",
		Manufacturer:  "Acme Biotech",
		DosesRequired: 3,
		IntervalDays:  intPtr(30),
	}

	repo := newMockSchedulingRepo()
	apps := newMockApplicationReader()
	dir := directory.NewMockDirectory()
	notifier := notification.NewMockNotifier()

	patient := dir.Add(&directory.User{Name: "Joana Silva", Email: "joana@corp.example", Role: "patient"})
	coren := "COREN-12345"
	nurse := dir.Add(&directory.User{Name: "Carlos Souza", Email: "carlos@corp.example", Role: "nurse", Coren: &coren})

	svc := NewService(repo,
		&mockVaccineLookup{vaccines: map[uuid.UUID]*catalog.Vaccine{vaccineID: vaccine}},
		apps, dir, notifier)

	return &fixture{
		svc: svc, repo: repo, apps: apps, dir: dir, notifier: notifier,
		vaccine: vaccine, patient: patient, nurse: nurse, vaccineID: vaccineID,
	}
}

func (f *fixture) newScheduling(dose int, date time.Time) *Scheduling {
	return &Scheduling{
		UserID:        f.patient.ID,
		VaccineID:     f.vaccineID,
		DoseNumber:    dose,
		ScheduledDate: date,
	}
}

func tomorrow() time.Time { return time.Now().AddDate(0, 0, 1) }

func TestCreateScheduling_Success(t *testing.T) {
	f := newFixture(t)

	sch := f.newScheduling(1, tomorrow())
	sch.AssignedNurseID = &f.nurse.ID
	if err := f.svc.CreateScheduling(context.Background(), sch); err != nil {
		t.Fatalf("create: %v", err)
	}
	if sch.Status != StatusScheduled {
		t.Errorf("status = %q, want SCHEDULED", sch.Status)
	}

	// Patient and nurse both notified.
	events := f.notifier.Events("created")
	if len(events) != 2 {
		t.Fatalf("expected 2 created events, got %d", len(events))
	}
	if events[0].UserEmail != "joana@corp.example" || events[1].UserEmail != "carlos@corp.example" {
		t.Errorf("unexpected recipients: %+v", events)
	}
}

func TestCreateScheduling_PastDate(t *testing.T) {
	f := newFixture(t)

	sch := f.newScheduling(1, time.Now().AddDate(0, 0, -1))
	err := f.svc.CreateScheduling(context.Background(), sch)
	if !vaxerr.IsKind(err, vaxerr.KindInvalidSchedulingDate) {
		t.Fatalf("expected invalid scheduling date, got %v", err)
	}
}

func TestCreateScheduling_DoseOutOfRange(t *testing.T) {
	f := newFixture(t)

	for _, dose := range []int{0, 4} {
		sch := f.newScheduling(dose, tomorrow())
		err := f.svc.CreateScheduling(context.Background(), sch)
		if !vaxerr.IsKind(err, vaxerr.KindInvalidDoseNumber) {
			t.Errorf("dose %d: expected invalid dose number, got %v", dose, err)
		}
	}
}

func TestCreateScheduling_MissingPreviousDose(t *testing.T) {
	f := newFixture(t)

	sch := f.newScheduling(2, tomorrow())
	err := f.svc.CreateScheduling(context.Background(), sch)
	if !vaxerr.IsKind(err, vaxerr.KindMissingPreviousDose) {
		t.Fatalf("expected missing previous dose, got %v", err)
	}
}

func TestCreateScheduling_PriorLiveSchedulingCoversDose(t *testing.T) {
	f := newFixture(t)

	first := f.newScheduling(1, tomorrow())
	if err := f.svc.CreateScheduling(context.Background(), first); err != nil {
		t.Fatalf("dose 1: %v", err)
	}

	second := f.newScheduling(2, tomorrow().AddDate(0, 0, 30))
	if err := f.svc.CreateScheduling(context.Background(), second); err != nil {
		t.Fatalf("dose 2 after live dose 1: %v", err)
	}
}

func TestCreateScheduling_IntervalAgainstApplication(t *testing.T) {
	f := newFixture(t)

	appliedAt := time.Now().AddDate(0, 0, -10)
	f.apps.applied[f.patient.ID] = []AppliedDose{{DoseNumber: 1, ApplicationDate: appliedAt}}

	// 10 days since dose 1, interval is 30: the earliest allowed date is 20
	// days from now.
	tooSoon := f.newScheduling(2, tomorrow())
	err := f.svc.CreateScheduling(context.Background(), tooSoon)
	if !vaxerr.IsKind(err, vaxerr.KindIntervalNotMet) {
		t.Fatalf("expected interval not met, got %v", err)
	}

	onTime := f.newScheduling(2, appliedAt.AddDate(0, 0, 30))
	if err := f.svc.CreateScheduling(context.Background(), onTime); err != nil {
		t.Fatalf("exactly at interval: %v", err)
	}
}

func TestCreateScheduling_DuplicateLiveSlot(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.CreateScheduling(context.Background(), f.newScheduling(1, tomorrow())); err != nil {
		t.Fatalf("first: %v", err)
	}
	err := f.svc.CreateScheduling(context.Background(), f.newScheduling(1, tomorrow().AddDate(0, 0, 2)))
	if !vaxerr.IsKind(err, vaxerr.KindDuplicateScheduling) {
		t.Fatalf("expected duplicate scheduling, got %v", err)
	}
}

func TestCreateScheduling_DoseAlreadyApplied(t *testing.T) {
	f := newFixture(t)

	f.apps.applied[f.patient.ID] = []AppliedDose{{DoseNumber: 1, ApplicationDate: time.Now().AddDate(0, 0, -5)}}

	err := f.svc.CreateScheduling(context.Background(), f.newScheduling(1, tomorrow()))
	if !vaxerr.IsKind(err, vaxerr.KindDuplicateApplication) {
		t.Fatalf("expected duplicate application, got %v", err)
	}
}

func TestUpdateScheduling_ConfirmAndCancel(t *testing.T) {
	f := newFixture(t)

	sch := f.newScheduling(1, tomorrow())
	if err := f.svc.CreateScheduling(context.Background(), sch); err != nil {
		t.Fatalf("create: %v", err)
	}

	confirmed := StatusConfirmed
	updated, err := f.svc.UpdateScheduling(context.Background(), sch.ID, Patch{Status: &confirmed})
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if updated.Status != StatusConfirmed {
		t.Errorf("status = %q, want CONFIRMED", updated.Status)
	}
	if len(f.notifier.Events("confirmed")) == 0 {
		t.Error("expected confirmed notification")
	}

	cancelled, err := f.svc.CancelScheduling(context.Background(), sch.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("status = %q, want CANCELLED", cancelled.Status)
	}
	if len(f.notifier.Events("cancelled")) == 0 {
		t.Error("expected cancelled notification")
	}
}

func TestUpdateScheduling_TerminalRejectsMutation(t *testing.T) {
	f := newFixture(t)

	sch := f.newScheduling(1, tomorrow())
	if err := f.svc.CreateScheduling(context.Background(), sch); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.CancelScheduling(context.Background(), sch.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	confirmed := StatusConfirmed
	_, err := f.svc.UpdateScheduling(context.Background(), sch.ID, Patch{Status: &confirmed})
	if !vaxerr.IsKind(err, vaxerr.KindSchedulingAlreadyComplete) {
		t.Fatalf("expected terminal rejection, got %v", err)
	}
}

func TestUpdateScheduling_IllegalTransition(t *testing.T) {
	f := newFixture(t)

	sch := f.newScheduling(1, tomorrow())
	if err := f.svc.CreateScheduling(context.Background(), sch); err != nil {
		t.Fatalf("create: %v", err)
	}

	// SCHEDULED cannot jump back to SCHEDULED from CONFIRMED.
	confirmed := StatusConfirmed
	if _, err := f.svc.UpdateScheduling(context.Background(), sch.ID, Patch{Status: &confirmed}); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	scheduled := StatusScheduled
	_, err := f.svc.UpdateScheduling(context.Background(), sch.ID, Patch{Status: &scheduled})
	if !vaxerr.IsKind(err, vaxerr.KindInvalidInput) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestUpdateScheduling_ReassignNurse(t *testing.T) {
	f := newFixture(t)

	sch := f.newScheduling(1, tomorrow())
	sch.AssignedNurseID = &f.nurse.ID
	if err := f.svc.CreateScheduling(context.Background(), sch); err != nil {
		t.Fatalf("create: %v", err)
	}

	other := f.dir.Add(&directory.User{Name: "Maria Lima", Email: "maria@corp.example", Role: "nurse"})
	updated, err := f.svc.UpdateScheduling(context.Background(), sch.ID, Patch{AssignedNurseID: &other.ID})
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if updated.AssignedNurseID == nil || *updated.AssignedNurseID != other.ID {
		t.Errorf("nurse not reassigned: %+v", updated.AssignedNurseID)
	}
}

func TestComplete_RoundTrip(t *testing.T) {
	f := newFixture(t)

	sch := f.newScheduling(1, tomorrow())
	if err := f.svc.CreateScheduling(context.Background(), sch); err != nil {
		t.Fatalf("create: %v", err)
	}

	completed, err := f.svc.Complete(context.Background(), sch.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != StatusCompleted {
		t.Errorf("status = %q, want COMPLETED", completed.Status)
	}

	// Completed schedulings are immutable.
	notes := "late arrival"
	_, err = f.svc.UpdateScheduling(context.Background(), sch.ID, Patch{Notes: &notes})
	if !vaxerr.IsKind(err, vaxerr.KindSchedulingAlreadyComplete) {
		t.Fatalf("expected immutability, got %v", err)
	}
	if _, err := f.svc.Complete(context.Background(), sch.ID); !vaxerr.IsKind(err, vaxerr.KindSchedulingAlreadyComplete) {
		t.Fatalf("expected double-complete rejection, got %v", err)
	}
}

func TestGetMonthlyAgenda(t *testing.T) {
	f := newFixture(t)

	date := time.Date(2026, 9, 15, 10, 0, 0, 0, time.UTC)
	if !date.After(time.Now()) {
		date = tomorrow()
	}

	sch := f.newScheduling(1, date)
	sch.AssignedNurseID = &f.nurse.ID
	if err := f.svc.CreateScheduling(context.Background(), sch); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Complete(context.Background(), sch.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	f.apps.summaries[sch.ID] = &ApplicationSummary{
		ID:              uuid.New(),
		ApplicationDate: date,
		BatchNumber:     "LOT-001",
	}

	agenda, err := f.svc.GetMonthlyAgenda(context.Background(), f.nurse.ID, date.Year(), date.Month())
	if err != nil {
		t.Fatalf("agenda: %v", err)
	}

	day := date.Format("2006-01-02")
	entries := agenda[day]
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry on %s, got %d", day, len(entries))
	}
	e := entries[0]
	if e.PatientName != "Joana Silva" || e.VaccineName != "Hepatite B" || e.NurseName != "Carlos Souza" {
		t.Errorf("enrichment wrong: %+v", e)
	}
	if e.Application == nil || e.Application.BatchNumber != "LOT-001" {
		t.Errorf("application summary missing: %+v", e.Application)
	}
}

func TestGetMonthlyAgenda_OtherNurseExcluded(t *testing.T) {
	f := newFixture(t)

	sch := f.newScheduling(1, tomorrow())
	sch.AssignedNurseID = &f.nurse.ID
	if err := f.svc.CreateScheduling(context.Background(), sch); err != nil {
		t.Fatalf("create: %v", err)
	}

	agenda, err := f.svc.GetMonthlyAgenda(context.Background(), uuid.New(), tomorrow().Year(), tomorrow().Month())
	if err != nil {
		t.Fatalf("agenda: %v", err)
	}
	if len(agenda) != 0 {
		t.Errorf("expected empty agenda, got %v", agenda)
	}
}

func TestSendReminders(t *testing.T) {
	f := newFixture(t)

	sch := f.newScheduling(1, tomorrow())
	sch.AssignedNurseID = &f.nurse.ID
	if err := f.svc.CreateScheduling(context.Background(), sch); err != nil {
		t.Fatalf("create: %v", err)
	}

	// A cancelled scheduling on the same day gets no reminder.
	cancelled := f.newScheduling(2, tomorrow())
	cancelled.Status = StatusCancelled
	cancelled.ID = uuid.New()
	f.repo.schedulings[cancelled.ID] = cancelled

	sent, err := f.svc.SendReminders(context.Background(), tomorrow())
	if err != nil {
		t.Fatalf("reminders: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1", sent)
	}

	events := f.notifier.Events("reminder")
	// Patient and nurse both reminded for the live scheduling.
	if len(events) != 2 {
		t.Fatalf("expected 2 reminder events, got %d", len(events))
	}
}
