package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vaxtrack/vaxtrack/internal/domain/catalog"
	"github.com/vaxtrack/vaxtrack/internal/domain/inventory"
	"github.com/vaxtrack/vaxtrack/internal/domain/scheduling"
	"github.com/vaxtrack/vaxtrack/internal/platform/db"
	"github.com/vaxtrack/vaxtrack/internal/platform/directory"
	"github.com/vaxtrack/vaxtrack/internal/platform/notification"
	"github.com/vaxtrack/vaxtrack/pkg/vaxerr"
)

// VaccineLookup is the slice of the catalog the application engine needs.
type VaccineLookup interface {
	GetVaccine(ctx context.Context, id uuid.UUID) (*catalog.Vaccine, error)
	ListAllVaccines(ctx context.Context) ([]*catalog.Vaccine, error)
}

// BatchConsumer takes one dose from a batch. Implemented by the inventory
// service with a conditional decrement.
type BatchConsumer interface {
	ConsumeDose(ctx context.Context, batchID, vaccineID uuid.UUID) (*inventory.Batch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*inventory.Batch, error)
}

// TxRunner executes fn inside a single storage transaction.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// PassthroughTx runs fn without a transaction. Used by tests.
func PassthroughTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type Service struct {
	applications ApplicationRepository
	schedulings  scheduling.SchedulingRepository
	vaccines     VaccineLookup
	batches      BatchConsumer
	users        directory.UserDirectory
	notifier     notification.Notifier
	tx           TxRunner
	now          func() time.Time
}

func NewService(
	applications ApplicationRepository,
	schedulings scheduling.SchedulingRepository,
	vaccines VaccineLookup,
	batches BatchConsumer,
	users directory.UserDirectory,
	notifier notification.Notifier,
	tx TxRunner,
) *Service {
	return &Service{
		applications: applications,
		schedulings:  schedulings,
		vaccines:     vaccines,
		batches:      batches,
		users:        users,
		notifier:     notifier,
		tx:           tx,
		now:          time.Now,
	}
}

// resolved is the common tuple both input shapes converge on.
type resolved struct {
	userID       uuid.UUID
	vaccineID    uuid.UUID
	doseNumber   int
	batchID      uuid.UUID
	appliedByID  uuid.UUID
	site         string
	observations *string
	sched        *scheduling.Scheduling // nil for walk-ins
}

// CreateApplication records an administered dose. The application insert, the
// batch decrement (with its DEPLETED flip) and the scheduling completion all
// commit or roll back together.
func (s *Service) CreateApplication(ctx context.Context, input CreateInput) (*Application, error) {
	var res resolved
	switch in := input.(type) {
	case SchedulingBased:
		sched, err := s.schedulings.GetByID(ctx, in.SchedulingID)
		if err != nil {
			return nil, err
		}
		if sched.Terminal() {
			return nil, vaxerr.New(vaxerr.KindSchedulingAlreadyComplete,
				"scheduling is %s and cannot be applied", sched.Status)
		}
		res = resolved{
			userID:       sched.UserID,
			vaccineID:    sched.VaccineID,
			doseNumber:   sched.DoseNumber,
			batchID:      in.BatchID,
			appliedByID:  in.AppliedByID,
			site:         in.ApplicationSite,
			observations: in.Observations,
			sched:        sched,
		}
	case WalkInBased:
		res = resolved{
			userID:       in.UserID,
			vaccineID:    in.VaccineID,
			doseNumber:   in.DoseNumber,
			batchID:      in.BatchID,
			appliedByID:  in.AppliedByID,
			site:         in.ApplicationSite,
			observations: in.Observations,
		}
	default:
		return nil, vaxerr.New(vaxerr.KindConflictingInput,
			"either a scheduling id or walk-in parameters must be provided")
	}

	vaccine, err := s.vaccines.GetVaccine(ctx, res.vaccineID)
	if err != nil {
		return nil, err
	}
	if res.doseNumber < 1 || res.doseNumber > vaccine.DosesRequired {
		return nil, vaxerr.New(vaxerr.KindInvalidDoseNumber,
			"dose_number must be between 1 and %d", vaccine.DosesRequired)
	}
	if res.site == "" {
		return nil, vaxerr.New(vaxerr.KindInvalidInput, "application_site is required")
	}

	applied, err := s.applications.ListByUserVaccine(ctx, res.userID, res.vaccineID)
	if err != nil {
		return nil, err
	}
	if len(applied) >= vaccine.DosesRequired {
		return nil, vaxerr.New(vaxerr.KindExceededDoses,
			"all %d doses have already been applied", vaccine.DosesRequired)
	}
	appliedByDose := make(map[int]*Application, len(applied))
	for _, a := range applied {
		appliedByDose[a.DoseNumber] = a
	}
	if _, ok := appliedByDose[res.doseNumber]; ok {
		return nil, vaxerr.New(vaxerr.KindDuplicateApplication,
			"dose %d has already been applied", res.doseNumber)
	}
	for d := 1; d < res.doseNumber; d++ {
		if _, ok := appliedByDose[d]; !ok {
			return nil, vaxerr.New(vaxerr.KindMissingPreviousDose,
				"previous doses must be applied before dose %d", res.doseNumber)
		}
	}

	applicationDate := s.now()
	if vaccine.IntervalDays != nil && res.doseNumber > 1 {
		interval := *vaccine.IntervalDays
		prior := appliedByDose[res.doseNumber-1].ApplicationDate
		elapsed := int(applicationDate.Sub(prior).Hours() / 24)
		if elapsed < interval {
			return nil, vaxerr.New(vaxerr.KindIntervalNotMet,
				"dose %d requires %d days since dose %d; %d days remaining",
				res.doseNumber, interval, res.doseNumber-1, interval-elapsed)
		}
	}

	app := &Application{
		UserID:          res.userID,
		VaccineID:       res.vaccineID,
		DoseNumber:      res.doseNumber,
		BatchID:         res.batchID,
		AppliedByID:     res.appliedByID,
		ApplicationDate: applicationDate,
		ApplicationSite: res.site,
		Observations:    res.observations,
	}

	err = s.tx(ctx, func(ctx context.Context) error {
		if _, err := s.batches.ConsumeDose(ctx, res.batchID, res.vaccineID); err != nil {
			return err
		}

		if res.sched != nil {
			res.sched.Status = scheduling.StatusCompleted
			if err := s.schedulings.Update(ctx, res.sched); err != nil {
				return err
			}
			app.SchedulingID = res.sched.ID
		} else {
			// A walk-in for a dose the patient already booked completes the
			// existing live scheduling rather than stranding it in SCHEDULED.
			live, err := s.schedulings.FindLive(ctx, res.userID, res.vaccineID, res.doseNumber)
			switch {
			case err == nil:
				live.Status = scheduling.StatusCompleted
				if err := s.schedulings.Update(ctx, live); err != nil {
					return err
				}
				app.SchedulingID = live.ID
			case vaxerr.IsKind(err, vaxerr.KindNotFound):
				// No booking for this dose. Synthesize an already-completed
				// scheduling so every application has exactly one scheduling.
				synth := &scheduling.Scheduling{
					UserID:        res.userID,
					VaccineID:     res.vaccineID,
					DoseNumber:    res.doseNumber,
					ScheduledDate: applicationDate,
					Status:        scheduling.StatusCompleted,
				}
				if err := s.schedulings.Create(ctx, synth); err != nil {
					return err
				}
				app.SchedulingID = synth.ID
			default:
				return err
			}
		}

		return s.applications.Create(ctx, app)
	})
	if err != nil {
		return nil, err
	}

	if patient, derr := s.users.GetUser(ctx, res.userID); derr == nil {
		s.notifier.ApplicationRecorded(ctx, notification.SchedulingEvent{
			UserName:    patient.Name,
			UserEmail:   patient.Email,
			VaccineName: vaccine.Name,
			DoseNumber:  res.doseNumber,
			Date:        applicationDate,
		})
	}

	return app, nil
}

func (s *Service) GetApplication(ctx context.Context, id uuid.UUID) (*Application, error) {
	return s.applications.GetByID(ctx, id)
}

// UpdateApplication changes the only mutable fields, site and observations.
// Caller must be the applying caregiver or a manager; callerID and isManager
// come from the request's auth context.
func (s *Service) UpdateApplication(ctx context.Context, id uuid.UUID, callerID uuid.UUID, isManager bool, site *string, observations *string) (*Application, error) {
	app, err := s.applications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isManager && callerID != app.AppliedByID {
		return nil, vaxerr.New(vaxerr.KindForbidden,
			"only the applying caregiver or a manager may edit an application")
	}

	if site != nil {
		if *site == "" {
			return nil, vaxerr.New(vaxerr.KindInvalidInput, "application_site cannot be empty")
		}
		app.ApplicationSite = *site
	}
	if observations != nil {
		app.Observations = observations
	}

	if err := s.applications.UpdateMutable(ctx, app.ID, app.ApplicationSite, app.Observations); err != nil {
		return nil, err
	}
	return app, nil
}

type applicationPage struct {
	items []*Application
	total int
}

func (s *Service) ListApplications(ctx context.Context, filter ListFilter, limit, offset int) ([]*Application, int, error) {
	page, err := db.Read(ctx, func(ctx context.Context) (applicationPage, error) {
		items, total, err := s.applications.List(ctx, filter, limit, offset)
		return applicationPage{items, total}, err
	})
	return page.items, page.total, err
}

// GetUserHistory aggregates everything applied to a user: per-vaccine dose
// groups with completion percentage, pending next-dose dates and the catalog
// vaccines never started.
func (s *Service) GetUserHistory(ctx context.Context, userID uuid.UUID) (*UserHistory, error) {
	if _, err := s.users.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	apps, err := db.Read(ctx, func(ctx context.Context) ([]*Application, error) {
		return s.applications.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	vaccines, err := s.vaccines.ListAllVaccines(ctx)
	if err != nil {
		return nil, err
	}

	byVaccine := make(map[uuid.UUID][]*Application)
	for _, a := range apps {
		byVaccine[a.VaccineID] = append(byVaccine[a.VaccineID], a)
	}

	history := &UserHistory{
		UserID:           userID,
		TotalApplied:     len(apps),
		NotStartedOblig:  []string{},
		NotStartedOption: []string{},
	}

	for _, v := range vaccines {
		doses, started := byVaccine[v.ID]
		if !started {
			if v.IsObligatory {
				history.NotStartedOblig = append(history.NotStartedOblig, v.Name)
				history.MandatoryPending++
			} else {
				history.NotStartedOption = append(history.NotStartedOption, v.Name)
			}
			continue
		}

		vh := &VaccineHistory{
			VaccineID:         v.ID,
			VaccineName:       v.Name,
			DosesRequired:     v.DosesRequired,
			DosesApplied:      len(doses),
			CompletionPercent: len(doses) * 100 / v.DosesRequired,
			Applications:      doses,
		}

		if len(doses) < v.DosesRequired {
			history.VaccinesPending++
			if v.IsObligatory {
				history.MandatoryPending++
			}
			if v.IntervalDays != nil {
				last := doses[len(doses)-1].ApplicationDate
				next := last.AddDate(0, 0, *v.IntervalDays)
				vh.NextDoseDate = &next
			}
		} else {
			history.VaccinesCompleted++
		}

		history.Vaccines = append(history.Vaccines, vh)
	}

	return history, nil
}

// ListApplied implements scheduling.ApplicationReader.
func (s *Service) ListApplied(ctx context.Context, userID, vaccineID uuid.UUID) ([]scheduling.AppliedDose, error) {
	apps, err := s.applications.ListByUserVaccine(ctx, userID, vaccineID)
	if err != nil {
		return nil, err
	}
	out := make([]scheduling.AppliedDose, 0, len(apps))
	for _, a := range apps {
		out = append(out, scheduling.AppliedDose{
			DoseNumber:      a.DoseNumber,
			ApplicationDate: a.ApplicationDate,
		})
	}
	return out, nil
}

// GetSummaryByScheduling implements scheduling.ApplicationReader.
func (s *Service) GetSummaryByScheduling(ctx context.Context, schedulingID uuid.UUID) (*scheduling.ApplicationSummary, error) {
	app, err := s.applications.GetBySchedulingID(ctx, schedulingID)
	if err != nil {
		return nil, err
	}
	summary := &scheduling.ApplicationSummary{
		ID:              app.ID,
		ApplicationDate: app.ApplicationDate,
	}
	if batch, berr := s.batches.GetBatch(ctx, app.BatchID); berr == nil {
		summary.BatchNumber = batch.BatchNumber
	}
	return summary, nil
}
