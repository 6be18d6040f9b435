package orchestrators

import (
	"context"
	"errors"
	"time"

	"aceplatform/internal/domain/attendance"
	"aceplatform/internal/domain/audit"
	"aceplatform/internal/domain/certificate"
	"aceplatform/internal/domain/complaint"
	"aceplatform/internal/domain/coordinator"
	"aceplatform/internal/domain/event"
	"aceplatform/internal/domain/outbox"
	"aceplatform/internal/domain/quiz"
	"aceplatform/internal/domain/registration"
)

var errNotFound = errors.New("not found")

// fixedNow returns a deterministic clock for tests.
func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// seqID returns a deterministic id generator: id-1, id-2, ...
func seqID() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + string(rune('0'+n))
	}
}

type fakeEventStore struct {
	events      map[string]event.Event
	claimDenied bool
	released    int
}

func newFakeEventStore(events ...event.Event) *fakeEventStore {
	s := &fakeEventStore{events: make(map[string]event.Event)}
	for _, ev := range events {
		s.events[ev.ID] = ev
	}
	return s
}

func (s *fakeEventStore) GetByID(_ context.Context, id string) (event.Event, error) {
	ev, ok := s.events[id]
	if !ok {
		return event.Event{}, errNotFound
	}
	return ev, nil
}

func (s *fakeEventStore) Save(_ context.Context, ev event.Event) error {
	s.events[ev.ID] = ev
	return nil
}

func (s *fakeEventStore) ClaimSlot(_ context.Context, eventID string) (bool, error) {
	ev, ok := s.events[eventID]
	if !ok {
		return false, errNotFound
	}
	if s.claimDenied || ev.IsFull() {
		return false, nil
	}
	ev.CurrentParticipants++
	s.events[eventID] = ev
	return true, nil
}

func (s *fakeEventStore) ReleaseSlot(_ context.Context, eventID string) error {
	ev := s.events[eventID]
	ev.CurrentParticipants--
	s.events[eventID] = ev
	s.released++
	return nil
}

type fakeRegistrationStore struct {
	saved []registration.Registration
}

func (s *fakeRegistrationStore) Save(_ context.Context, r registration.Registration) error {
	s.saved = append(s.saved, r)
	return nil
}

func (s *fakeRegistrationStore) FindByEventAndEmail(_ context.Context, eventID, email string) (registration.Registration, error) {
	for _, r := range s.saved {
		if r.EventID == eventID && r.ParticipantEmail == email {
			return r, nil
		}
	}
	return registration.Registration{}, errNotFound
}

func (s *fakeRegistrationStore) ListByEvent(_ context.Context, eventID string) ([]registration.Registration, error) {
	var out []registration.Registration
	for _, r := range s.saved {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeOutboxStore struct {
	entries []outbox.Entry
}

func (s *fakeOutboxStore) Save(_ context.Context, e outbox.Entry) error {
	for i, existing := range s.entries {
		if existing.ID == e.ID {
			s.entries[i] = e
			return nil
		}
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *fakeOutboxStore) GetByID(_ context.Context, id string) (outbox.Entry, error) {
	for _, e := range s.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return outbox.Entry{}, errNotFound
}

func (s *fakeOutboxStore) ListRetryable(_ context.Context, limit int) ([]outbox.Entry, error) {
	var out []outbox.Entry
	for _, e := range s.entries {
		if e.CanRetry() {
			out = append(out, e)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type fakeAttendanceStore struct {
	records []attendance.Record
}

func (s *fakeAttendanceStore) Save(_ context.Context, r attendance.Record) error {
	for i, existing := range s.records {
		if existing.ID == r.ID {
			s.records[i] = r
			return nil
		}
	}
	s.records = append(s.records, r)
	return nil
}

func (s *fakeAttendanceStore) ListByParticipant(_ context.Context, eventID, participantID string) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, r := range s.records {
		if r.EventID == eventID && r.ParticipantID == participantID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeAttendanceStore) ListByEvent(_ context.Context, eventID string) ([]attendance.Record, error) {
	var out []attendance.Record
	for _, r := range s.records {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeAuditStore struct {
	events []audit.Event
}

func (s *fakeAuditStore) Save(_ context.Context, e audit.Event) error {
	s.events = append(s.events, e)
	return nil
}

type fakeCoordinatorStore struct {
	certs map[string]coordinator.Certification
}

func newFakeCoordinatorStore(certs ...coordinator.Certification) *fakeCoordinatorStore {
	s := &fakeCoordinatorStore{certs: make(map[string]coordinator.Certification)}
	for _, c := range certs {
		s.certs[c.CoordinatorID] = c
	}
	return s
}

func (s *fakeCoordinatorStore) GetByCoordinatorID(_ context.Context, coordinatorID string) (coordinator.Certification, error) {
	c, ok := s.certs[coordinatorID]
	if !ok {
		return coordinator.Certification{}, errNotFound
	}
	return c, nil
}

func (s *fakeCoordinatorStore) Save(_ context.Context, c coordinator.Certification) error {
	s.certs[c.CoordinatorID] = c
	return nil
}

func (s *fakeCoordinatorStore) List(_ context.Context) ([]coordinator.Certification, error) {
	var out []coordinator.Certification
	for _, c := range s.certs {
		out = append(out, c)
	}
	return out, nil
}

type fakeCertificateStore struct {
	certs map[string]certificate.Certificate
}

func newFakeCertificateStore(certs ...certificate.Certificate) *fakeCertificateStore {
	s := &fakeCertificateStore{certs: make(map[string]certificate.Certificate)}
	for _, c := range certs {
		s.certs[c.ID] = c
	}
	return s
}

func (s *fakeCertificateStore) GetByID(_ context.Context, id string) (certificate.Certificate, error) {
	c, ok := s.certs[id]
	if !ok {
		return certificate.Certificate{}, errNotFound
	}
	return c, nil
}

func (s *fakeCertificateStore) Save(_ context.Context, c certificate.Certificate) error {
	s.certs[c.ID] = c
	return nil
}

func (s *fakeCertificateStore) MarkIssued(_ context.Context, id, number string, at time.Time) (bool, error) {
	c, ok := s.certs[id]
	if !ok {
		return false, errNotFound
	}
	if c.Status != certificate.StatusPending {
		return false, nil
	}
	c.Number = number
	if err := c.MarkIssued(at); err != nil {
		return false, err
	}
	s.certs[id] = c
	return true, nil
}

func (s *fakeCertificateStore) FindByRegistration(_ context.Context, registrationID string) (certificate.Certificate, error) {
	for _, c := range s.certs {
		if c.RegistrationID == registrationID {
			return c, nil
		}
	}
	return certificate.Certificate{}, errNotFound
}

func (s *fakeCertificateStore) ListByEvent(_ context.Context, eventID string) ([]certificate.Certificate, error) {
	var out []certificate.Certificate
	for _, c := range s.certs {
		if c.EventID == eventID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeQuizStore struct {
	quiz        quiz.Quiz
	hasQuiz     bool
	questions   []quiz.Question
	submissions []quiz.Submission
}

func (s *fakeQuizStore) FindByEvent(_ context.Context, eventID string) (quiz.Quiz, error) {
	if !s.hasQuiz || s.quiz.EventID != eventID {
		return quiz.Quiz{}, errNotFound
	}
	return s.quiz, nil
}

func (s *fakeQuizStore) ListQuestions(_ context.Context, quizID string) ([]quiz.Question, error) {
	return s.questions, nil
}

func (s *fakeQuizStore) ListSubmissions(_ context.Context, quizID, participantID string) ([]quiz.Submission, error) {
	var out []quiz.Submission
	for _, sub := range s.submissions {
		if sub.QuizID == quizID && sub.ParticipantID == participantID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *fakeQuizStore) SaveSubmission(_ context.Context, sub quiz.Submission) error {
	s.submissions = append(s.submissions, sub)
	return nil
}

type fakeComplaintStore struct {
	complaints map[string]complaint.Complaint
}

func newFakeComplaintStore(complaints ...complaint.Complaint) *fakeComplaintStore {
	s := &fakeComplaintStore{complaints: make(map[string]complaint.Complaint)}
	for _, c := range complaints {
		s.complaints[c.ID] = c
	}
	return s
}

func (s *fakeComplaintStore) GetByID(_ context.Context, id string) (complaint.Complaint, error) {
	c, ok := s.complaints[id]
	if !ok {
		return complaint.Complaint{}, errNotFound
	}
	return c, nil
}

func (s *fakeComplaintStore) Save(_ context.Context, c complaint.Complaint) error {
	s.complaints[c.ID] = c
	return nil
}

func (s *fakeComplaintStore) ListOpen(_ context.Context) ([]complaint.Complaint, error) {
	var out []complaint.Complaint
	for _, c := range s.complaints {
		if !c.IsClosed() {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeFeedbackStore struct {
	items map[string]complaint.FeedbackResponse
}

func (s *fakeFeedbackStore) GetByID(_ context.Context, id string) (complaint.FeedbackResponse, error) {
	f, ok := s.items[id]
	if !ok {
		return complaint.FeedbackResponse{}, errNotFound
	}
	return f, nil
}

func (s *fakeFeedbackStore) Save(_ context.Context, f complaint.FeedbackResponse) error {
	s.items[f.ID] = f
	return nil
}

func (s *fakeFeedbackStore) ListUnreviewed(_ context.Context) ([]complaint.FeedbackResponse, error) {
	var out []complaint.FeedbackResponse
	for _, f := range s.items {
		if !f.IsReviewed() {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeFeedbackStore) ListByEvent(_ context.Context, eventID string) ([]complaint.FeedbackResponse, error) {
	var out []complaint.FeedbackResponse
	for _, f := range s.items {
		if f.EventID == eventID {
			out = append(out, f)
		}
	}
	return out, nil
}

// sampleEvent builds a valid CE event starting the day after base.
func sampleEvent(id string, base time.Time) event.Event {
	return event.Event{
		ID:              id,
		Title:           "Ethics in Supervision",
		Type:            event.TypeCE,
		Category:        event.CategoryEthics,
		Modality:        event.ModalitySynchronous,
		StartDate:       base.Add(24 * time.Hour),
		EndDate:         base.Add(26 * time.Hour),
		CreditUnits:     2,
		MaxParticipants: 10,
		Status:          event.StatusApproved,
		CoordinatorID:   "coord-1",
		CreatedAt:       base,
	}
}

// currentCoordinator builds a certification valid for a year past base
// with both capabilities granted.
func currentCoordinator(base time.Time) coordinator.Certification {
	return coordinator.Certification{
		ID:                   "cert-rec-1",
		CoordinatorID:        "coord-1",
		CoordinatorName:      "Dana Soto",
		CoordinatorEmail:     "dana@example.com",
		CertificationNumber:  "1-23-45678",
		CertificationDate:    base.AddDate(-1, 0, 0),
		CertificationExpires: base.AddDate(1, 0, 0),
		Verified:             true,
		CanPublishEvents:     true,
		CanIssueCertificates: true,
	}
}
