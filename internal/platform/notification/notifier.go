package notification

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SchedulingEvent carries the details a vaccination notification needs.
type SchedulingEvent struct {
	UserName    string
	UserEmail   string
	VaccineName string
	DoseNumber  int
	Date        time.Time
	BatchNumber string
}

// Notifier is the outbound notification port used by the domain services.
// Delivery failures must not fail the triggering operation, so none of the
// methods return an error.
type Notifier interface {
	SchedulingCreated(ctx context.Context, evt SchedulingEvent)
	SchedulingConfirmed(ctx context.Context, evt SchedulingEvent)
	SchedulingCancelled(ctx context.Context, evt SchedulingEvent)
	SchedulingReminder(ctx context.Context, evt SchedulingEvent)
	ApplicationRecorded(ctx context.Context, evt SchedulingEvent)
}

// ManagerNotifier implements Notifier on top of a NotificationManager.
type ManagerNotifier struct {
	manager *NotificationManager
	logger  zerolog.Logger
}

// NewManagerNotifier creates a Notifier backed by the given manager.
func NewManagerNotifier(mgr *NotificationManager, logger zerolog.Logger) *ManagerNotifier {
	return &ManagerNotifier{manager: mgr, logger: logger}
}

func (n *ManagerNotifier) send(ctx context.Context, templateID string, evt SchedulingEvent) {
	data := map[string]string{
		"user_name":    evt.UserName,
		"vaccine_name": evt.VaccineName,
		"dose_number":  strconv.Itoa(evt.DoseNumber),
		"date":         evt.Date.Format("2006-01-02"),
	}
	if evt.BatchNumber != "" {
		data["batch_number"] = evt.BatchNumber
	}

	if _, err := n.manager.SendFromTemplate(ctx, templateID, data, evt.UserEmail); err != nil {
		n.logger.Warn().
			Err(err).
			Str("template", templateID).
			Str("recipient", evt.UserEmail).
			Msg("notification delivery failed")
	}
}

func (n *ManagerNotifier) SchedulingCreated(ctx context.Context, evt SchedulingEvent) {
	n.send(ctx, "scheduling-created", evt)
}

func (n *ManagerNotifier) SchedulingConfirmed(ctx context.Context, evt SchedulingEvent) {
	n.send(ctx, "scheduling-confirmed", evt)
}

func (n *ManagerNotifier) SchedulingCancelled(ctx context.Context, evt SchedulingEvent) {
	n.send(ctx, "scheduling-cancelled", evt)
}

func (n *ManagerNotifier) SchedulingReminder(ctx context.Context, evt SchedulingEvent) {
	n.send(ctx, "scheduling-reminder", evt)
}

func (n *ManagerNotifier) ApplicationRecorded(ctx context.Context, evt SchedulingEvent) {
	n.send(ctx, "application-recorded", evt)
}

// MockNotifier records events for tests.
type MockNotifier struct {
	mu     sync.Mutex
	events map[string][]SchedulingEvent
}

// NewMockNotifier creates an empty MockNotifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{events: make(map[string][]SchedulingEvent)}
}

func (m *MockNotifier) record(kind string, evt SchedulingEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events[kind] = append(m.events[kind], evt)
}

// Events returns the recorded events of the given kind.
func (m *MockNotifier) Events(kind string) []SchedulingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SchedulingEvent, len(m.events[kind]))
	copy(out, m.events[kind])
	return out
}

func (m *MockNotifier) SchedulingCreated(_ context.Context, evt SchedulingEvent) {
	m.record("created", evt)
}

func (m *MockNotifier) SchedulingConfirmed(_ context.Context, evt SchedulingEvent) {
	m.record("confirmed", evt)
}

func (m *MockNotifier) SchedulingCancelled(_ context.Context, evt SchedulingEvent) {
	m.record("cancelled", evt)
}

func (m *MockNotifier) SchedulingReminder(_ context.Context, evt SchedulingEvent) {
	m.record("reminder", evt)
}

func (m *MockNotifier) ApplicationRecorded(_ context.Context, evt SchedulingEvent) {
	m.record("applied", evt)
}
