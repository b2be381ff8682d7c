package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Template Engine Tests
// ---------------------------------------------------------------------------

func TestTemplateEngine_RegisterAndRender(t *testing.T) {
	eng := NewTemplateEngine()
	eng.RegisterTemplate(Template{
		ID:      "test-tpl",
		Name:    "Test Template",
		Subject: "Hello {{name}}",
		Body:    "Dear {{name}}, your code is {{code}}.",
		Type:    TypeEmail,
	})

	subject, body, err := eng.Render("test-tpl", map[string]string{
		"name": "Alice",
		"code": "1234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Hello Alice" {
		t.Errorf("subject = %q, want %q", subject, "Hello Alice")
	}
	if body != "Dear Alice, your code is 1234." {
		t.Errorf("body = %q, want %q", body, "Dear Alice, your code is 1234.")
	}
}

func TestTemplateEngine_RenderMissing(t *testing.T) {
	eng := NewTemplateEngine()
	_, _, err := eng.Render("nonexistent", nil)
	if err == nil {
		t.Fatal("expected error for missing template, got nil")
	}
}

func TestTemplateEngine_BuiltInTemplates(t *testing.T) {
	eng := NewTemplateEngine()
	builtIn := []string{
		"scheduling-created",
		"scheduling-confirmed",
		"scheduling-cancelled",
		"scheduling-reminder",
		"application-recorded",
	}
	for _, id := range builtIn {
		if _, _, err := eng.Render(id, map[string]string{}); err != nil {
			t.Errorf("built-in template %q missing: %v", id, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Manager Tests
// ---------------------------------------------------------------------------

func newTestManager() (*NotificationManager, *MockEmailSender, *MockSMSSender) {
	email := &MockEmailSender{}
	sms := &MockSMSSender{}
	return NewNotificationManager(email, sms, NewTemplateEngine()), email, sms
}

func TestManager_SendEmail(t *testing.T) {
	mgr, email, _ := newTestManager()

	n := &Notification{
		Type:      TypeEmail,
		Recipient: "nurse@clinic.example",
		Subject:   "hello",
		Body:      "world",
	}
	if err := mgr.Send(context.Background(), n); err != nil {
		t.Fatalf("send: %v", err)
	}

	if n.Status != "sent" {
		t.Errorf("status = %q, want sent", n.Status)
	}
	if n.SentAt == nil {
		t.Error("expected SentAt to be set")
	}
	calls := email.Calls()
	if len(calls) != 1 || calls[0].To != "nurse@clinic.example" {
		t.Errorf("unexpected email calls: %+v", calls)
	}
}

func TestManager_SendFailureRecorded(t *testing.T) {
	email := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	mgr := NewNotificationManager(email, &MockSMSSender{}, NewTemplateEngine())

	n := &Notification{Type: TypeEmail, Recipient: "x@y.z", Body: "hi"}
	if err := mgr.Send(context.Background(), n); err == nil {
		t.Fatal("expected send error")
	}
	if n.Status != "failed" || !strings.Contains(n.Error, "smtp down") {
		t.Errorf("notification = %+v, want failed with smtp down", n)
	}
}

func TestManager_RetryFailed(t *testing.T) {
	email := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	mgr := NewNotificationManager(email, &MockSMSSender{}, NewTemplateEngine())

	n := &Notification{Type: TypeEmail, Recipient: "x@y.z", Body: "hi"}
	_ = mgr.Send(context.Background(), n)

	email.ShouldFail = false
	if err := mgr.Retry(context.Background(), n.ID); err != nil {
		t.Fatalf("retry: %v", err)
	}

	got, err := mgr.GetNotification(context.Background(), n.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != "sent" || got.Error != "" {
		t.Errorf("after retry: status=%q error=%q", got.Status, got.Error)
	}
}

func TestManager_RetryRejectsNonFailed(t *testing.T) {
	mgr, _, _ := newTestManager()

	n := &Notification{Type: TypeEmail, Recipient: "x@y.z", Body: "hi"}
	_ = mgr.Send(context.Background(), n)

	if err := mgr.Retry(context.Background(), n.ID); err == nil {
		t.Fatal("expected retry of sent notification to fail")
	}
}

func TestManager_SendFromTemplate(t *testing.T) {
	mgr, email, _ := newTestManager()

	n, err := mgr.SendFromTemplate(context.Background(), "scheduling-created", map[string]string{
		"user_name":    "Joana",
		"vaccine_name": "Hepatite B",
		"dose_number":  "1",
		"date":         "2026-09-15",
	}, "joana@corp.example")
	if err != nil {
		t.Fatalf("send from template: %v", err)
	}

	if !strings.Contains(n.Body, "Hepatite B") || !strings.Contains(n.Body, "2026-09-15") {
		t.Errorf("rendered body missing data: %q", n.Body)
	}
	if len(email.Calls()) != 1 {
		t.Errorf("expected 1 email, got %d", len(email.Calls()))
	}
}

// ---------------------------------------------------------------------------
// Notifier Tests
// ---------------------------------------------------------------------------

func TestManagerNotifier_SendsTemplates(t *testing.T) {
	mgr, email, _ := newTestManager()
	notifier := NewManagerNotifier(mgr, zerolog.New(os.Stderr))

	evt := SchedulingEvent{
		UserName:    "Joana",
		UserEmail:   "joana@corp.example",
		VaccineName: "Hepatite B",
		DoseNumber:  2,
		Date:        time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
	}

	notifier.SchedulingCreated(context.Background(), evt)
	notifier.SchedulingCancelled(context.Background(), evt)

	calls := email.Calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 emails, got %d", len(calls))
	}
	if !strings.Contains(calls[0].Body, "dose 2") {
		t.Errorf("created body missing dose number: %q", calls[0].Body)
	}
	if !strings.Contains(calls[1].Subject, "cancelled") {
		t.Errorf("cancelled subject = %q", calls[1].Subject)
	}
}

func TestManagerNotifier_DeliveryFailureIsSwallowed(t *testing.T) {
	email := &MockEmailSender{ShouldFail: true, FailError: "smtp down"}
	mgr := NewNotificationManager(email, &MockSMSSender{}, NewTemplateEngine())
	notifier := NewManagerNotifier(mgr, zerolog.New(os.Stderr))

	// Must not panic and must not propagate the error.
	notifier.SchedulingReminder(context.Background(), SchedulingEvent{
		UserEmail: "x@y.z", VaccineName: "Influenza", DoseNumber: 1, Date: time.Now(),
	})
}

func TestMockNotifier_RecordsEvents(t *testing.T) {
	m := NewMockNotifier()
	m.SchedulingCreated(context.Background(), SchedulingEvent{VaccineName: "BCG"})
	m.SchedulingCreated(context.Background(), SchedulingEvent{VaccineName: "Influenza"})

	events := m.Events("created")
	if len(events) != 2 || events[1].VaccineName != "Influenza" {
		t.Errorf("unexpected events: %+v", events)
	}
	if len(m.Events("cancelled")) != 0 {
		t.Error("expected no cancelled events")
	}
}

// ---------------------------------------------------------------------------
// HTTP Handler Tests
// ---------------------------------------------------------------------------

func TestHandler_GetAndList(t *testing.T) {
	mgr, _, _ := newTestManager()
	n := &Notification{Type: TypeEmail, Recipient: "x@y.z", Body: "hi"}
	_ = mgr.Send(context.Background(), n)

	h := NewNotificationHandler(mgr)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/notifications/"+n.ID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(n.ID)
	if err := h.HandleGet(c); err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("get status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/notifications?recipient=x@y.z", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if err := h.HandleList(c); err != nil {
		t.Fatalf("list: %v", err)
	}
	var list []*Notification
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("list len = %d, want 1", len(list))
	}
}

func TestHandler_GetMissing(t *testing.T) {
	mgr, _, _ := newTestManager()
	h := NewNotificationHandler(mgr)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/notifications/nope", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("nope")
	if err := h.HandleGet(c); err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
