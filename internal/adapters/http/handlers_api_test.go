package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"aceplatform/internal/adapters/http/middleware"
	"aceplatform/internal/adapters/http/perf"
	auditStore "aceplatform/internal/adapters/storage/audit"
	certificateStore "aceplatform/internal/adapters/storage/certificate"
	complaintStore "aceplatform/internal/adapters/storage/complaint"
	eventStore "aceplatform/internal/adapters/storage/event"
	outboxStore "aceplatform/internal/adapters/storage/outbox"
	"aceplatform/internal/application/listutil"

	accountDomain "aceplatform/internal/domain/account"
	attendanceDomain "aceplatform/internal/domain/attendance"
	auditDomain "aceplatform/internal/domain/audit"
	certificateDomain "aceplatform/internal/domain/certificate"
	complaintDomain "aceplatform/internal/domain/complaint"
	coordinatorDomain "aceplatform/internal/domain/coordinator"
	eventDomain "aceplatform/internal/domain/event"
	outboxDomain "aceplatform/internal/domain/outbox"
	quizDomain "aceplatform/internal/domain/quiz"
	registrationDomain "aceplatform/internal/domain/registration"
)

// --- Mock stores ---

type mockAccountStore struct {
	accounts map[string]accountDomain.Account
}

func (m *mockAccountStore) GetByID(ctx context.Context, id string) (accountDomain.Account, error) {
	if a, ok := m.accounts[id]; ok {
		return a, nil
	}
	return accountDomain.Account{}, sql.ErrNoRows
}

func (m *mockAccountStore) GetByEmail(ctx context.Context, email string) (accountDomain.Account, error) {
	for _, a := range m.accounts {
		if a.Email == email {
			return a, nil
		}
	}
	return accountDomain.Account{}, sql.ErrNoRows
}

func (m *mockAccountStore) Save(ctx context.Context, a accountDomain.Account) error {
	if m.accounts == nil {
		m.accounts = make(map[string]accountDomain.Account)
	}
	m.accounts[a.ID] = a
	return nil
}

type mockEventStore struct {
	events map[string]eventDomain.Event
}

func (m *mockEventStore) GetByID(ctx context.Context, id string) (eventDomain.Event, error) {
	if e, ok := m.events[id]; ok {
		return e, nil
	}
	return eventDomain.Event{}, sql.ErrNoRows
}

func (m *mockEventStore) Save(ctx context.Context, e eventDomain.Event) error {
	if m.events == nil {
		m.events = make(map[string]eventDomain.Event)
	}
	m.events[e.ID] = e
	return nil
}

func (m *mockEventStore) ClaimSlot(ctx context.Context, eventID string) (bool, error) {
	e, ok := m.events[eventID]
	if !ok {
		return false, sql.ErrNoRows
	}
	if e.CurrentParticipants >= e.MaxParticipants {
		return false, nil
	}
	e.CurrentParticipants++
	m.events[eventID] = e
	return true, nil
}

func (m *mockEventStore) ReleaseSlot(ctx context.Context, eventID string) error {
	e, ok := m.events[eventID]
	if ok && e.CurrentParticipants > 0 {
		e.CurrentParticipants--
		m.events[eventID] = e
	}
	return nil
}

func (m *mockEventStore) List(ctx context.Context, filter eventStore.ListFilter) ([]eventDomain.Event, error) {
	var list []eventDomain.Event
	for _, e := range m.events {
		if filter.Status != "" && string(e.Status) != filter.Status {
			continue
		}
		if filter.Type != "" && string(e.Type) != filter.Type {
			continue
		}
		list = append(list, e)
	}
	return list, nil
}

type mockRegistrationStore struct {
	registrations map[string]registrationDomain.Registration
}

func (m *mockRegistrationStore) GetByID(ctx context.Context, id string) (registrationDomain.Registration, error) {
	if r, ok := m.registrations[id]; ok {
		return r, nil
	}
	return registrationDomain.Registration{}, sql.ErrNoRows
}

func (m *mockRegistrationStore) Save(ctx context.Context, r registrationDomain.Registration) error {
	if m.registrations == nil {
		m.registrations = make(map[string]registrationDomain.Registration)
	}
	m.registrations[r.ID] = r
	return nil
}

func (m *mockRegistrationStore) FindByEventAndEmail(ctx context.Context, eventID, email string) (registrationDomain.Registration, error) {
	for _, r := range m.registrations {
		if r.EventID == eventID && r.ParticipantEmail == email {
			return r, nil
		}
	}
	return registrationDomain.Registration{}, sql.ErrNoRows
}

func (m *mockRegistrationStore) FindByConfirmationCode(ctx context.Context, eventID, code string) (registrationDomain.Registration, error) {
	for _, r := range m.registrations {
		if r.EventID == eventID && r.ConfirmationCode == code {
			return r, nil
		}
	}
	return registrationDomain.Registration{}, sql.ErrNoRows
}

func (m *mockRegistrationStore) ListByEvent(ctx context.Context, eventID string) ([]registrationDomain.Registration, error) {
	var list []registrationDomain.Registration
	for _, r := range m.registrations {
		if r.EventID == eventID {
			list = append(list, r)
		}
	}
	return list, nil
}

type mockAttendanceStore struct {
	records map[string]attendanceDomain.Record
}

func (m *mockAttendanceStore) GetByID(ctx context.Context, id string) (attendanceDomain.Record, error) {
	if rec, ok := m.records[id]; ok {
		return rec, nil
	}
	return attendanceDomain.Record{}, sql.ErrNoRows
}

func (m *mockAttendanceStore) Save(ctx context.Context, rec attendanceDomain.Record) error {
	if m.records == nil {
		m.records = make(map[string]attendanceDomain.Record)
	}
	m.records[rec.ID] = rec
	return nil
}

func (m *mockAttendanceStore) ListByParticipant(ctx context.Context, eventID, participantID string) ([]attendanceDomain.Record, error) {
	var list []attendanceDomain.Record
	for _, rec := range m.records {
		if rec.EventID == eventID && rec.ParticipantID == participantID {
			list = append(list, rec)
		}
	}
	return list, nil
}

func (m *mockAttendanceStore) ListByEvent(ctx context.Context, eventID string) ([]attendanceDomain.Record, error) {
	var list []attendanceDomain.Record
	for _, rec := range m.records {
		if rec.EventID == eventID {
			list = append(list, rec)
		}
	}
	return list, nil
}

type mockCertificateStore struct {
	certificates map[string]certificateDomain.Certificate
}

func (m *mockCertificateStore) GetByID(ctx context.Context, id string) (certificateDomain.Certificate, error) {
	if c, ok := m.certificates[id]; ok {
		return c, nil
	}
	return certificateDomain.Certificate{}, sql.ErrNoRows
}

func (m *mockCertificateStore) Save(ctx context.Context, c certificateDomain.Certificate) error {
	if m.certificates == nil {
		m.certificates = make(map[string]certificateDomain.Certificate)
	}
	m.certificates[c.ID] = c
	return nil
}

func (m *mockCertificateStore) MarkIssued(ctx context.Context, id, number string, at time.Time) (bool, error) {
	c, ok := m.certificates[id]
	if !ok || c.Status != certificateDomain.StatusPending {
		return false, nil
	}
	c.Status = certificateDomain.StatusIssued
	c.Number = number
	c.IssuedAt = at
	m.certificates[id] = c
	return true, nil
}

func (m *mockCertificateStore) FindByRegistration(ctx context.Context, registrationID string) (certificateDomain.Certificate, error) {
	for _, c := range m.certificates {
		if c.RegistrationID == registrationID {
			return c, nil
		}
	}
	return certificateDomain.Certificate{}, sql.ErrNoRows
}

func (m *mockCertificateStore) ListByEvent(ctx context.Context, eventID string) ([]certificateDomain.Certificate, error) {
	var list []certificateDomain.Certificate
	for _, c := range m.certificates {
		if c.EventID == eventID {
			list = append(list, c)
		}
	}
	return list, nil
}

func (m *mockCertificateStore) ListPending(ctx context.Context) ([]certificateDomain.Certificate, error) {
	var list []certificateDomain.Certificate
	for _, c := range m.certificates {
		if c.Status == certificateDomain.StatusPending {
			list = append(list, c)
		}
	}
	return list, nil
}

func (m *mockCertificateStore) List(ctx context.Context, filter certificateStore.ListFilter) ([]certificateDomain.Certificate, error) {
	var list []certificateDomain.Certificate
	for _, c := range m.certificates {
		if filter.Status != "" && string(c.Status) != filter.Status {
			continue
		}
		list = append(list, c)
	}
	return list, nil
}

type mockComplaintStore struct {
	complaints map[string]complaintDomain.Complaint
}

func (m *mockComplaintStore) GetByID(ctx context.Context, id string) (complaintDomain.Complaint, error) {
	if c, ok := m.complaints[id]; ok {
		return c, nil
	}
	return complaintDomain.Complaint{}, sql.ErrNoRows
}

func (m *mockComplaintStore) Save(ctx context.Context, c complaintDomain.Complaint) error {
	if m.complaints == nil {
		m.complaints = make(map[string]complaintDomain.Complaint)
	}
	m.complaints[c.ID] = c
	return nil
}

func (m *mockComplaintStore) ListOpen(ctx context.Context) ([]complaintDomain.Complaint, error) {
	var list []complaintDomain.Complaint
	for _, c := range m.complaints {
		if c.Status == complaintDomain.StatusSubmitted || c.Status == complaintDomain.StatusUnderReview {
			list = append(list, c)
		}
	}
	return list, nil
}

func (m *mockComplaintStore) List(ctx context.Context, filter complaintStore.ListFilter) ([]complaintDomain.Complaint, error) {
	var list []complaintDomain.Complaint
	for _, c := range m.complaints {
		list = append(list, c)
	}
	return list, nil
}

type mockFeedbackStore struct {
	responses map[string]complaintDomain.FeedbackResponse
}

func (m *mockFeedbackStore) GetByID(ctx context.Context, id string) (complaintDomain.FeedbackResponse, error) {
	if f, ok := m.responses[id]; ok {
		return f, nil
	}
	return complaintDomain.FeedbackResponse{}, sql.ErrNoRows
}

func (m *mockFeedbackStore) Save(ctx context.Context, f complaintDomain.FeedbackResponse) error {
	if m.responses == nil {
		m.responses = make(map[string]complaintDomain.FeedbackResponse)
	}
	m.responses[f.ID] = f
	return nil
}

func (m *mockFeedbackStore) ListUnreviewed(ctx context.Context) ([]complaintDomain.FeedbackResponse, error) {
	var list []complaintDomain.FeedbackResponse
	for _, f := range m.responses {
		if f.CoordinatorReviewedAt.IsZero() {
			list = append(list, f)
		}
	}
	return list, nil
}

func (m *mockFeedbackStore) ListByEvent(ctx context.Context, eventID string) ([]complaintDomain.FeedbackResponse, error) {
	var list []complaintDomain.FeedbackResponse
	for _, f := range m.responses {
		if f.EventID == eventID {
			list = append(list, f)
		}
	}
	return list, nil
}

type mockCoordinatorStore struct {
	certifications map[string]coordinatorDomain.Certification
}

func (m *mockCoordinatorStore) GetByCoordinatorID(ctx context.Context, coordinatorID string) (coordinatorDomain.Certification, error) {
	if c, ok := m.certifications[coordinatorID]; ok {
		return c, nil
	}
	return coordinatorDomain.Certification{}, sql.ErrNoRows
}

func (m *mockCoordinatorStore) Save(ctx context.Context, c coordinatorDomain.Certification) error {
	if m.certifications == nil {
		m.certifications = make(map[string]coordinatorDomain.Certification)
	}
	m.certifications[c.CoordinatorID] = c
	return nil
}

func (m *mockCoordinatorStore) List(ctx context.Context) ([]coordinatorDomain.Certification, error) {
	var list []coordinatorDomain.Certification
	for _, c := range m.certifications {
		list = append(list, c)
	}
	return list, nil
}

type mockQuizStore struct {
	quizzes     map[string]quizDomain.Quiz // keyed by event id
	questions   map[string][]quizDomain.Question
	submissions []quizDomain.Submission
}

func (m *mockQuizStore) FindByEvent(ctx context.Context, eventID string) (quizDomain.Quiz, error) {
	if q, ok := m.quizzes[eventID]; ok {
		return q, nil
	}
	return quizDomain.Quiz{}, sql.ErrNoRows
}

func (m *mockQuizStore) SaveQuiz(ctx context.Context, q quizDomain.Quiz) error {
	if m.quizzes == nil {
		m.quizzes = make(map[string]quizDomain.Quiz)
	}
	m.quizzes[q.EventID] = q
	return nil
}

func (m *mockQuizStore) ListQuestions(ctx context.Context, quizID string) ([]quizDomain.Question, error) {
	return m.questions[quizID], nil
}

func (m *mockQuizStore) SaveQuestion(ctx context.Context, q quizDomain.Question) error {
	if m.questions == nil {
		m.questions = make(map[string][]quizDomain.Question)
	}
	m.questions[q.QuizID] = append(m.questions[q.QuizID], q)
	return nil
}

func (m *mockQuizStore) ListSubmissions(ctx context.Context, quizID, participantID string) ([]quizDomain.Submission, error) {
	var list []quizDomain.Submission
	for _, s := range m.submissions {
		if s.QuizID == quizID && s.ParticipantID == participantID {
			list = append(list, s)
		}
	}
	return list, nil
}

func (m *mockQuizStore) SaveSubmission(ctx context.Context, s quizDomain.Submission) error {
	m.submissions = append(m.submissions, s)
	return nil
}

type mockOutboxStore struct {
	entries map[string]outboxDomain.Entry
}

func (m *mockOutboxStore) GetByID(ctx context.Context, id string) (outboxDomain.Entry, error) {
	if e, ok := m.entries[id]; ok {
		return e, nil
	}
	return outboxDomain.Entry{}, sql.ErrNoRows
}

func (m *mockOutboxStore) Save(ctx context.Context, e outboxDomain.Entry) error {
	if m.entries == nil {
		m.entries = make(map[string]outboxDomain.Entry)
	}
	m.entries[e.ID] = e
	return nil
}

func (m *mockOutboxStore) ListRetryable(ctx context.Context, limit int) ([]outboxDomain.Entry, error) {
	var list []outboxDomain.Entry
	for _, e := range m.entries {
		if e.CanRetry() && len(list) < limit {
			list = append(list, e)
		}
	}
	return list, nil
}

func (m *mockOutboxStore) List(ctx context.Context, filter outboxStore.ListFilter) ([]outboxDomain.Entry, error) {
	var list []outboxDomain.Entry
	for _, e := range m.entries {
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		list = append(list, e)
	}
	return list, nil
}

type mockAuditStore struct {
	events []auditDomain.Event
}

func (m *mockAuditStore) Save(ctx context.Context, e auditDomain.Event) error {
	m.events = append(m.events, e)
	return nil
}

func (m *mockAuditStore) List(ctx context.Context, filter auditStore.ListFilter) ([]auditDomain.Event, error) {
	return m.events, nil
}

// --- Test harness ---

var testBase = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type testApp struct {
	handler      http.Handler
	accounts     *mockAccountStore
	events       *mockEventStore
	registration *mockRegistrationStore
	attendance   *mockAttendanceStore
	certificates *mockCertificateStore
	complaints   *mockComplaintStore
	feedback     *mockFeedbackStore
	coordinators *mockCoordinatorStore
	quizzes      *mockQuizStore
	outbox       *mockOutboxStore
	audit        *mockAuditStore
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	app := &testApp{
		accounts:     &mockAccountStore{accounts: map[string]accountDomain.Account{}},
		events:       &mockEventStore{events: map[string]eventDomain.Event{}},
		registration: &mockRegistrationStore{registrations: map[string]registrationDomain.Registration{}},
		attendance:   &mockAttendanceStore{records: map[string]attendanceDomain.Record{}},
		certificates: &mockCertificateStore{certificates: map[string]certificateDomain.Certificate{}},
		complaints:   &mockComplaintStore{complaints: map[string]complaintDomain.Complaint{}},
		feedback:     &mockFeedbackStore{responses: map[string]complaintDomain.FeedbackResponse{}},
		coordinators: &mockCoordinatorStore{certifications: map[string]coordinatorDomain.Certification{}},
		quizzes:      &mockQuizStore{},
		outbox:       &mockOutboxStore{entries: map[string]outboxDomain.Entry{}},
		audit:        &mockAuditStore{},
	}

	RateLimitPerSecond = 10000
	timeNow = func() time.Time { return testBase }
	t.Cleanup(func() { timeNow = time.Now })

	app.handler = NewMux(t.TempDir(), &Stores{
		AccountStore:      app.accounts,
		EventStore:        app.events,
		RegistrationStore: app.registration,
		AttendanceStore:   app.attendance,
		CertificateStore:  app.certificates,
		ComplaintStore:    app.complaints,
		FeedbackStore:     app.feedback,
		CoordinatorStore:  app.coordinators,
		QuizStore:         app.quizzes,
		OutboxStore:       app.outbox,
		AuditStore:        app.audit,
	}, perf.NewCollector(100))
	return app
}

// do performs a JSON request against the app, optionally authenticated.
func (app *testApp) do(t *testing.T, method, path, body, sessionToken string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	if sessionToken != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: sessionToken})
	}
	rr := httptest.NewRecorder()
	app.handler.ServeHTTP(rr, req)
	return rr
}

func (app *testApp) adminSession(t *testing.T) string {
	t.Helper()
	token, err := sessions.Create("admin-1", "admin@aceprovider.example", "admin", "")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return token
}

func (app *testApp) coordinatorSession(t *testing.T, coordinatorID string) string {
	t.Helper()
	token, err := sessions.Create("coord-acct-1", "coord@aceprovider.example", "coordinator", coordinatorID)
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return token
}

func approvedEvent(id string) eventDomain.Event {
	return eventDomain.Event{
		ID:              id,
		Title:           "Ethics Refresher",
		Description:     "**Two hours** of ethics content.",
		Type:            eventDomain.TypeCE,
		Category:        eventDomain.CategoryEthics,
		Modality:        eventDomain.ModalitySynchronous,
		StartDate:       testBase.Add(24 * time.Hour),
		EndDate:         testBase.Add(26 * time.Hour),
		CreditUnits:     2.0,
		MaxParticipants: 10,
		Status:          eventDomain.StatusApproved,
		CoordinatorID:   "coord-1",
		CreatedAt:       testBase.AddDate(0, -1, 0),
	}
}

func currentCertification() coordinatorDomain.Certification {
	return coordinatorDomain.Certification{
		ID:                   "cc-1",
		CoordinatorID:        "coord-1",
		CoordinatorName:      "Dana Reyes",
		CoordinatorEmail:     "dana@aceprovider.example",
		CertificationNumber:  "1-23-45678",
		CertificationDate:    testBase.AddDate(-2, 0, 0),
		CertificationExpires: testBase.AddDate(1, 0, 0),
		Verified:             true,
		VerifiedAt:           testBase.AddDate(0, -6, 0),
		CanPublishEvents:     true,
		CanIssueCertificates: true,
	}
}

// --- Tests ---

func TestLoginAndSessionFlow(t *testing.T) {
	app := newTestApp(t)

	acct := accountDomain.Account{
		ID:        "admin-1",
		Email:     "admin@aceprovider.example",
		Role:      accountDomain.RoleAdmin,
		CreatedAt: testBase,
	}
	if err := acct.SetPassword("correct-horse-battery"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	app.accounts.accounts[acct.ID] = acct

	rr := app.do(t, "POST", "/api/login", `{"email":"admin@aceprovider.example","password":"correct-horse-battery"}`, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["role"] != "admin" {
		t.Errorf("expected admin role, got %q", resp["role"])
	}

	cookies := rr.Result().Cookies()
	var token string
	for _, c := range cookies {
		if c.Name == middleware.SessionCookieName {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatal("expected session cookie to be set")
	}

	rr = app.do(t, "GET", "/admin/dashboard", "", token)
	if rr.Code != http.StatusOK {
		t.Errorf("expected dashboard 200 with session, got %d", rr.Code)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	app := newTestApp(t)

	acct := accountDomain.Account{ID: "admin-1", Email: "admin@aceprovider.example", Role: accountDomain.RoleAdmin, CreatedAt: testBase}
	if err := acct.SetPassword("correct-horse-battery"); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	app.accounts.accounts[acct.ID] = acct

	rr := app.do(t, "POST", "/api/login", `{"email":"admin@aceprovider.example","password":"wrong"}`, "")
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
	if app.accounts.accounts["admin-1"].FailedLogins != 1 {
		t.Errorf("expected failed login to be recorded, got %d", app.accounts.accounts["admin-1"].FailedLogins)
	}
}

func TestAdminCertificateListSortsAndPaginates(t *testing.T) {
	app := newTestApp(t)
	names := []string{"Ana", "Ben", "Cleo"}
	for i, name := range names {
		id := fmt.Sprintf("c%d", i+1)
		app.certificates.certificates[id] = certificateDomain.Certificate{
			ID: id, EventID: "e1", ParticipantID: "p" + id,
			ParticipantName: name,
			Status:          certificateDomain.StatusPending,
			CreatedAt:       testBase.Add(time.Duration(i) * time.Hour),
		}
	}
	token := app.adminSession(t)

	rr := app.do(t, "GET", "/admin/certificates?sort=participant_name&dir=desc&status=pending", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Items []certificateDomain.Certificate `json:"items"`
		Page  listutil.PageInfo               `json:"page_info"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Page.Total != 3 || resp.Page.TotalPages != 1 {
		t.Errorf("page info = %+v, want total 3 over 1 page", resp.Page)
	}
	if len(resp.Items) != 3 || resp.Items[0].ParticipantName != "Cleo" || resp.Items[2].ParticipantName != "Ana" {
		t.Errorf("unexpected sort order: %+v", resp.Items)
	}

	// A page past the data clamps to the last page instead of 404ing.
	rr = app.do(t, "GET", "/admin/certificates?page=9&per_page=10", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Page.Page != 1 || len(resp.Items) != 3 {
		t.Errorf("expected clamped first page with 3 items, got page %d with %d items", resp.Page.Page, len(resp.Items))
	}
}

func TestAdminEndpointsRequireSession(t *testing.T) {
	app := newTestApp(t)

	paths := []string{
		"/admin/dashboard",
		"/admin/certificates",
		"/admin/complaints",
		"/admin/feedback",
		"/admin/coordinators",
		"/admin/outbox",
		"/admin/audit",
		"/admin/perf",
	}
	for _, path := range paths {
		rr := app.do(t, "GET", path, "", "")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401 without session, got %d", path, rr.Code)
		}
	}
}

func TestPublicEventListRendersMarkdown(t *testing.T) {
	app := newTestApp(t)
	app.events.events["e1"] = approvedEvent("e1")

	draft := approvedEvent("e2")
	draft.Status = eventDomain.StatusDraft
	app.events.events["e2"] = draft

	rr := app.do(t, "GET", "/api/events", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var views []eventView
	if err := json.Unmarshal(rr.Body.Bytes(), &views); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected only the approved event, got %d", len(views))
	}
	if !strings.Contains(views[0].DescriptionHTML, "<strong>Two hours</strong>") {
		t.Errorf("expected rendered markdown, got %q", views[0].DescriptionHTML)
	}
}

func TestRegisterFlow(t *testing.T) {
	app := newTestApp(t)
	app.events.events["e1"] = approvedEvent("e1")

	body := `{"participant_name":"Ana Lane","participant_email":"ana@example.com","credential":"bcba","bacb_id":"1-11-11111"}`
	rr := app.do(t, "POST", "/api/events/e1/register", body, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp["confirmation_code"]) != 8 {
		t.Errorf("expected 8-character confirmation code, got %q", resp["confirmation_code"])
	}
	if len(app.outbox.entries) != 1 {
		t.Errorf("expected a queued confirmation notice, got %d entries", len(app.outbox.entries))
	}

	// Duplicate email is refused.
	rr = app.do(t, "POST", "/api/events/e1/register", body, "")
	if rr.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate registration, got %d", rr.Code)
	}
}

func TestRegisterCredentialMismatch(t *testing.T) {
	app := newTestApp(t)
	app.events.events["e1"] = approvedEvent("e1") // CE event

	body := `{"participant_name":"Riley Chen","participant_email":"riley@example.com","credential":"rbt"}`
	rr := app.do(t, "POST", "/api/events/e1/register", body, "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["reason"] != "CREDENTIAL_MISMATCH" {
		t.Errorf("expected CREDENTIAL_MISMATCH reason, got %q", resp["reason"])
	}
}

func TestRegisterFullEvent(t *testing.T) {
	app := newTestApp(t)
	full := approvedEvent("e1")
	full.MaxParticipants = 1
	full.CurrentParticipants = 1
	app.events.events["e1"] = full

	body := `{"participant_name":"Ana Lane","participant_email":"ana@example.com","credential":"bcba"}`
	rr := app.do(t, "POST", "/api/events/e1/register", body, "")
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["reason"] != "EVENT_FULL" {
		t.Errorf("expected EVENT_FULL reason, got %q", resp["reason"])
	}
}

func TestCheckInWithConfirmationCode(t *testing.T) {
	app := newTestApp(t)
	app.events.events["e1"] = approvedEvent("e1")
	app.registration.registrations["r1"] = registrationDomain.Registration{
		ID:               "r1",
		EventID:          "e1",
		ParticipantName:  "Ana Lane",
		ParticipantEmail: "ana@example.com",
		Credential:       registrationDomain.CredentialBCBA,
		ConfirmationCode: "ABCD2345",
		Status:           registrationDomain.StatusConfirmed,
		CreatedAt:        testBase,
	}

	rr := app.do(t, "POST", "/api/events/e1/checkin", `{"confirmation_code":"abcd2345"}`, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(app.attendance.records) != 1 {
		t.Errorf("expected one attendance record, got %d", len(app.attendance.records))
	}

	rr = app.do(t, "POST", "/api/events/e1/checkin", `{"confirmation_code":"WRONG999"}`, "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown code, got %d", rr.Code)
	}

	// A second check-in while the first is still open maps to 409.
	rr = app.do(t, "POST", "/api/events/e1/checkin", `{"confirmation_code":"abcd2345"}`, "")
	if rr.Code != http.StatusConflict {
		t.Errorf("expected 409 for duplicate check-in, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(app.attendance.records) != 1 {
		t.Errorf("expected one attendance record after duplicate, got %d", len(app.attendance.records))
	}
}

func TestSubmitComplaint(t *testing.T) {
	app := newTestApp(t)

	body := `{"submitter_name":"Sam Ortiz","submitter_email":"sam@example.com","body":"The event materials were not provided."}`
	rr := app.do(t, "POST", "/api/complaints", body, "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	due, err := time.Parse(time.RFC3339, resp["response_due_date"])
	if err != nil {
		t.Fatalf("failed to parse due date: %v", err)
	}
	if want := testBase.AddDate(0, 0, 45); !due.Equal(want) {
		t.Errorf("expected due date %v, got %v", want, due)
	}
}

func TestIssueCertificateOverHTTP(t *testing.T) {
	app := newTestApp(t)

	completed := approvedEvent("e1")
	completed.Status = eventDomain.StatusCompleted
	app.events.events["e1"] = completed
	app.coordinators.certifications["coord-1"] = currentCertification()
	app.attendance.records["a1"] = attendanceDomain.Record{
		ID:            "a1",
		EventID:       "e1",
		ParticipantID: "r1",
		CheckInTime:   testBase,
		CheckOutTime:  testBase.Add(2 * time.Hour),
		Verified:      true,
	}
	app.certificates.certificates["c1"] = certificateDomain.Certificate{
		ID:               "c1",
		EventID:          "e1",
		RegistrationID:   "r1",
		ParticipantID:    "r1",
		ParticipantName:  "Ana Lane",
		ParticipantEmail: "ana@example.com",
		EventTitle:       completed.Title,
		EventDate:        completed.StartDate,
		CreditUnits:      2.0,
		Category:         completed.Category,
		Status:           certificateDomain.StatusPending,
		CreatedAt:        testBase,
	}

	token := app.coordinatorSession(t, "coord-1")
	rr := app.do(t, "POST", "/admin/certificates/c1/issue", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	issued := app.certificates.certificates["c1"]
	if issued.Status != certificateDomain.StatusIssued {
		t.Errorf("expected issued status, got %q", issued.Status)
	}
	if !strings.HasPrefix(issued.Number, "CE-2025-") {
		t.Errorf("expected CE-2025 number, got %q", issued.Number)
	}
}

func TestIssueCertificateDeniedForExpiredCoordinator(t *testing.T) {
	app := newTestApp(t)

	completed := approvedEvent("e1")
	completed.Status = eventDomain.StatusCompleted
	app.events.events["e1"] = completed

	expired := currentCertification()
	expired.CertificationExpires = testBase.AddDate(0, -1, 0)
	app.coordinators.certifications["coord-1"] = expired

	app.attendance.records["a1"] = attendanceDomain.Record{
		ID: "a1", EventID: "e1", ParticipantID: "r1",
		CheckInTime: testBase, CheckOutTime: testBase.Add(2 * time.Hour), Verified: true,
	}
	app.certificates.certificates["c1"] = certificateDomain.Certificate{
		ID: "c1", EventID: "e1", RegistrationID: "r1", ParticipantID: "r1",
		ParticipantName: "Ana Lane", ParticipantEmail: "ana@example.com",
		EventTitle: completed.Title, EventDate: completed.StartDate,
		CreditUnits: 2.0, Category: completed.Category,
		Status: certificateDomain.StatusPending, CreatedAt: testBase,
	}

	token := app.coordinatorSession(t, "coord-1")
	rr := app.do(t, "POST", "/admin/certificates/c1/issue", "", token)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["reason"] != "COORDINATOR_EXPIRED" {
		t.Errorf("expected COORDINATOR_EXPIRED reason, got %q", resp["reason"])
	}
}

func TestCoordinatorCannotAccessAdminOnlyEndpoints(t *testing.T) {
	app := newTestApp(t)
	token := app.coordinatorSession(t, "coord-1")

	for _, path := range []string{"/admin/coordinators", "/admin/outbox", "/admin/audit", "/admin/perf"} {
		rr := app.do(t, "GET", path, "", token)
		if rr.Code != http.StatusForbidden {
			t.Errorf("%s: expected 403 for coordinator, got %d", path, rr.Code)
		}
	}
}

func TestAdminOutboxRetryAndAbandon(t *testing.T) {
	app := newTestApp(t)
	app.outbox.entries["o1"] = outboxDomain.Entry{
		ID:          "o1",
		NoticeType:  outboxDomain.NoticeRegistrationConfirmation,
		Payload:     `{"registration_id":"r1"}`,
		Recipient:   "ana@example.com",
		Status:      outboxDomain.StatusFailed,
		Attempts:    2,
		MaxAttempts: 5,
		CreatedAt:   testBase,
	}

	token := app.adminSession(t)
	rr := app.do(t, "GET", "/admin/outbox", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var entries []outboxDomain.Entry
	if err := json.Unmarshal(rr.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one failed entry, got %d", len(entries))
	}

	rr = app.do(t, "POST", "/admin/outbox/o1/abandon", "", token)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if app.outbox.entries["o1"].Status != outboxDomain.StatusAbandoned {
		t.Errorf("expected abandoned status, got %q", app.outbox.entries["o1"].Status)
	}
}

func TestCreateEventAsCoordinatorUsesOwnCertification(t *testing.T) {
	app := newTestApp(t)
	app.coordinators.certifications["coord-1"] = currentCertification()

	body := `{"title":"Supervision Workshop","type":"ce","category":"supervision","modality":"in_person","start_date":"2025-07-01T09:00:00Z","end_date":"2025-07-01T12:00:00Z","credit_units":3,"max_participants":25,"coordinator_id":"someone-else"}`
	token := app.coordinatorSession(t, "coord-1")
	rr := app.do(t, "POST", "/api/events", body, token)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	var created eventView
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if created.Status != string(eventDomain.StatusDraft) {
		t.Errorf("expected draft status, got %q", created.Status)
	}
	if app.events.events[created.ID].CoordinatorID != "coord-1" {
		t.Errorf("expected the session coordinator to own the event, got %q", app.events.events[created.ID].CoordinatorID)
	}
}
