package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vaxtrack/vaxtrack/internal/domain/catalog"
	"github.com/vaxtrack/vaxtrack/internal/platform/db"
	"github.com/vaxtrack/vaxtrack/internal/platform/directory"
	"github.com/vaxtrack/vaxtrack/internal/platform/notification"
	"github.com/vaxtrack/vaxtrack/pkg/vaxerr"
)

// VaccineLookup is the slice of the catalog the scheduling engine needs.
type VaccineLookup interface {
	GetVaccine(ctx context.Context, id uuid.UUID) (*catalog.Vaccine, error)
}

// AppliedDose is a completed dose as seen by the scheduling rules.
type AppliedDose struct {
	DoseNumber      int
	ApplicationDate time.Time
}

// ApplicationReader exposes the recorded applications the scheduling engine
// validates against. Implemented by the application engine.
type ApplicationReader interface {
	ListApplied(ctx context.Context, userID, vaccineID uuid.UUID) ([]AppliedDose, error)
	// GetSummaryByScheduling returns the application linked to a scheduling,
	// or a NotFound domain error when none exists.
	GetSummaryByScheduling(ctx context.Context, schedulingID uuid.UUID) (*ApplicationSummary, error)
}

type Service struct {
	schedulings  SchedulingRepository
	vaccines     VaccineLookup
	applications ApplicationReader
	users        directory.UserDirectory
	notifier     notification.Notifier
	now          func() time.Time
}

func NewService(
	schedulings SchedulingRepository,
	vaccines VaccineLookup,
	applications ApplicationReader,
	users directory.UserDirectory,
	notifier notification.Notifier,
) *Service {
	return &Service{
		schedulings:  schedulings,
		vaccines:     vaccines,
		applications: applications,
		users:        users,
		notifier:     notifier,
		now:          time.Now,
	}
}

// CreateScheduling validates the dose slot against the catalog, prior
// applications and live schedulings, then persists a SCHEDULED appointment and
// notifies the patient and assigned nurse.
func (s *Service) CreateScheduling(ctx context.Context, sch *Scheduling) error {
	vaccine, err := s.vaccines.GetVaccine(ctx, sch.VaccineID)
	if err != nil {
		return err
	}

	if !sch.ScheduledDate.After(s.now()) {
		return vaxerr.New(vaxerr.KindInvalidSchedulingDate, "scheduled_date must be in the future")
	}
	if sch.DoseNumber < 1 || sch.DoseNumber > vaccine.DosesRequired {
		return vaxerr.New(vaxerr.KindInvalidDoseNumber,
			"dose_number must be between 1 and %d", vaccine.DosesRequired)
	}

	applied, err := s.applications.ListApplied(ctx, sch.UserID, sch.VaccineID)
	if err != nil {
		return err
	}
	appliedByDose := make(map[int]AppliedDose, len(applied))
	for _, a := range applied {
		appliedByDose[a.DoseNumber] = a
	}
	if _, ok := appliedByDose[sch.DoseNumber]; ok {
		return vaxerr.New(vaxerr.KindDuplicateApplication,
			"dose %d has already been applied", sch.DoseNumber)
	}

	live, err := s.schedulings.ListLiveByUserVaccine(ctx, sch.UserID, sch.VaccineID)
	if err != nil {
		return err
	}
	liveByDose := make(map[int]*Scheduling, len(live))
	for _, l := range live {
		liveByDose[l.DoseNumber] = l
	}
	if _, ok := liveByDose[sch.DoseNumber]; ok {
		return vaxerr.New(vaxerr.KindDuplicateScheduling,
			"a live scheduling already exists for dose %d", sch.DoseNumber)
	}

	// Every earlier dose must be covered by an application or a live scheduling.
	for d := 1; d < sch.DoseNumber; d++ {
		if _, ok := appliedByDose[d]; ok {
			continue
		}
		if _, ok := liveByDose[d]; ok {
			continue
		}
		return vaxerr.New(vaxerr.KindMissingPreviousDose,
			"dose %d has no application or scheduling", d)
	}

	if vaccine.IntervalDays != nil && sch.DoseNumber > 1 {
		interval := *vaccine.IntervalDays
		var prior time.Time
		if a, ok := appliedByDose[sch.DoseNumber-1]; ok {
			prior = a.ApplicationDate
		} else {
			prior = liveByDose[sch.DoseNumber-1].ScheduledDate
		}
		earliest := prior.AddDate(0, 0, interval)
		if sch.ScheduledDate.Before(earliest) {
			return vaxerr.New(vaxerr.KindIntervalNotMet,
				"dose %d must be at least %d days after dose %d", sch.DoseNumber, interval, sch.DoseNumber-1)
		}
	}

	sch.Status = StatusScheduled
	if err := s.schedulings.Create(ctx, sch); err != nil {
		return err
	}

	s.notify(ctx, sch, vaccine.Name, s.notifier.SchedulingCreated)
	return nil
}

// notify resolves directory entries and fires the event for the patient and,
// when assigned, the nurse. Lookup failures drop the notice silently.
func (s *Service) notify(ctx context.Context, sch *Scheduling, vaccineName string,
	fire func(context.Context, notification.SchedulingEvent)) {

	evt := notification.SchedulingEvent{
		VaccineName: vaccineName,
		DoseNumber:  sch.DoseNumber,
		Date:        sch.ScheduledDate,
	}
	if patient, err := s.users.GetUser(ctx, sch.UserID); err == nil {
		evt.UserName = patient.Name
		evt.UserEmail = patient.Email
		fire(ctx, evt)
	}
	if sch.AssignedNurseID != nil {
		if nurse, err := s.users.GetUser(ctx, *sch.AssignedNurseID); err == nil {
			evt.UserName = nurse.Name
			evt.UserEmail = nurse.Email
			fire(ctx, evt)
		}
	}
}

func (s *Service) GetScheduling(ctx context.Context, id uuid.UUID) (*Scheduling, error) {
	return s.schedulings.GetByID(ctx, id)
}

// Patch carries a partial scheduling update. Nil fields are left unchanged.
type Patch struct {
	Status          *string    `json:"status,omitempty"`
	AssignedNurseID *uuid.UUID `json:"assigned_nurse_id,omitempty"`
	ScheduledDate   *time.Time `json:"scheduled_date,omitempty"`
	Notes           *string    `json:"notes,omitempty"`
}

// UpdateScheduling mutates a live scheduling. Terminal schedulings reject
// every mutation.
func (s *Service) UpdateScheduling(ctx context.Context, id uuid.UUID, patch Patch) (*Scheduling, error) {
	sch, err := s.schedulings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sch.Terminal() {
		return nil, vaxerr.New(vaxerr.KindSchedulingAlreadyComplete,
			"scheduling is %s and cannot be modified", sch.Status)
	}

	notifyConfirmed := false
	notifyCancelled := false
	if patch.Status != nil && *patch.Status != sch.Status {
		if !CanTransition(sch.Status, *patch.Status) {
			return nil, vaxerr.New(vaxerr.KindInvalidInput,
				"cannot transition from %s to %s", sch.Status, *patch.Status)
		}
		notifyConfirmed = *patch.Status == StatusConfirmed
		notifyCancelled = *patch.Status == StatusCancelled
		sch.Status = *patch.Status
	}
	if patch.AssignedNurseID != nil {
		sch.AssignedNurseID = patch.AssignedNurseID
	}
	if patch.ScheduledDate != nil {
		if !patch.ScheduledDate.After(s.now()) {
			return nil, vaxerr.New(vaxerr.KindInvalidSchedulingDate, "scheduled_date must be in the future")
		}
		sch.ScheduledDate = *patch.ScheduledDate
	}
	if patch.Notes != nil {
		sch.Notes = patch.Notes
	}

	if err := s.schedulings.Update(ctx, sch); err != nil {
		return nil, err
	}

	if notifyConfirmed || notifyCancelled {
		if vaccine, err := s.vaccines.GetVaccine(ctx, sch.VaccineID); err == nil {
			if notifyConfirmed {
				s.notify(ctx, sch, vaccine.Name, s.notifier.SchedulingConfirmed)
			} else {
				s.notify(ctx, sch, vaccine.Name, s.notifier.SchedulingCancelled)
			}
		}
	}
	return sch, nil
}

// CancelScheduling soft-cancels a live scheduling.
func (s *Service) CancelScheduling(ctx context.Context, id uuid.UUID) (*Scheduling, error) {
	cancelled := StatusCancelled
	return s.UpdateScheduling(ctx, id, Patch{Status: &cancelled})
}

// Complete marks a live scheduling COMPLETED. Called by the application engine
// inside its transaction.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Scheduling, error) {
	sch, err := s.schedulings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sch.Terminal() {
		return nil, vaxerr.New(vaxerr.KindSchedulingAlreadyComplete,
			"scheduling is %s and cannot be completed", sch.Status)
	}
	sch.Status = StatusCompleted
	if err := s.schedulings.Update(ctx, sch); err != nil {
		return nil, err
	}
	return sch, nil
}

type schedulingPage struct {
	items []*Scheduling
	total int
}

func (s *Service) ListSchedulings(ctx context.Context, filter ListFilter, limit, offset int) ([]*Scheduling, int, error) {
	page, err := db.Read(ctx, func(ctx context.Context) (schedulingPage, error) {
		items, total, err := s.schedulings.List(ctx, filter, limit, offset)
		return schedulingPage{items, total}, err
	})
	return page.items, page.total, err
}

func (s *Service) GetByDate(ctx context.Context, date time.Time) ([]*Scheduling, error) {
	return db.Read(ctx, func(ctx context.Context) ([]*Scheduling, error) {
		return s.schedulings.ListByDate(ctx, date)
	})
}

// SendReminders fires a reminder notice for every live scheduling on the given
// date and returns how many were sent.
func (s *Service) SendReminders(ctx context.Context, date time.Time) (int, error) {
	items, err := s.GetByDate(ctx, date)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, sch := range items {
		if !sch.Live() {
			continue
		}
		vaccine, err := s.vaccines.GetVaccine(ctx, sch.VaccineID)
		if err != nil {
			continue
		}
		s.notify(ctx, sch, vaccine.Name, s.notifier.SchedulingReminder)
		sent++
	}
	return sent, nil
}

// GetMonthlyAgenda returns a nurse's schedulings for a calendar month grouped
// by ISO date, enriched with patient, vaccine and linked application details.
func (s *Service) GetMonthlyAgenda(ctx context.Context, nurseID uuid.UUID, year int, month time.Month) (map[string][]*AgendaEntry, error) {
	items, err := db.Read(ctx, func(ctx context.Context) ([]*Scheduling, error) {
		return s.schedulings.ListByNurseMonth(ctx, nurseID, year, month)
	})
	if err != nil {
		return nil, err
	}

	agenda := make(map[string][]*AgendaEntry)
	names := make(map[uuid.UUID]string)
	vaccineNames := make(map[uuid.UUID]string)

	resolveUser := func(id uuid.UUID) string {
		if name, ok := names[id]; ok {
			return name
		}
		name := ""
		if u, err := s.users.GetUser(ctx, id); err == nil {
			name = u.Name
		}
		names[id] = name
		return name
	}

	for _, sch := range items {
		entry := &AgendaEntry{
			Scheduling:  sch,
			PatientName: resolveUser(sch.UserID),
		}
		if sch.AssignedNurseID != nil {
			entry.NurseName = resolveUser(*sch.AssignedNurseID)
		}
		if name, ok := vaccineNames[sch.VaccineID]; ok {
			entry.VaccineName = name
		} else if v, err := s.vaccines.GetVaccine(ctx, sch.VaccineID); err == nil {
			vaccineNames[sch.VaccineID] = v.Name
			entry.VaccineName = v.Name
		}
		if sch.Status == StatusCompleted {
			if summary, err := s.applications.GetSummaryByScheduling(ctx, sch.ID); err == nil {
				entry.Application = summary
			}
		}

		day := sch.ScheduledDate.Format("2006-01-02")
		agenda[day] = append(agenda[day], entry)
	}

	return agenda, nil
}
