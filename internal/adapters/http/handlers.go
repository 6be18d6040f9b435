package web

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"

	"aceplatform/internal/adapters/http/middleware"
	eventStore "aceplatform/internal/adapters/storage/event"
	"aceplatform/internal/application/listutil"
	"aceplatform/internal/application/orchestrators"
	"aceplatform/internal/domain/attendance"
	"aceplatform/internal/domain/eligibility"
	eventDomain "aceplatform/internal/domain/event"
	"aceplatform/internal/domain/registration"
)

// timeNow is a variable for testability.
var timeNow = time.Now

// mdRenderer is a goldmark instance configured for safe HTML output.
// Raw HTML in markdown input is escaped (WithUnsafe is NOT set), preventing XSS.
var mdRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// validate is the shared request-DTO validator.
var validate = validator.New()

// generateID creates a new UUID string.
func generateID() string {
	return uuid.New().String()
}

// internalError logs the real error and returns a generic message to the client.
// This prevents leaking internal details per OWASP A05.
func internalError(w http.ResponseWriter, err error) {
	slog.Error("internal_error", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// strictDecode decodes JSON from the request body, rejecting unknown fields.
func strictDecode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// respondError maps application errors onto HTTP statuses. Eligibility
// denials carry their machine-readable reason code so clients can show
// a specific message.
func respondError(w http.ResponseWriter, err error) {
	var denied *eligibility.DeniedError
	switch {
	case errors.As(err, &denied):
		writeJSON(w, http.StatusConflict, map[string]string{
			"error":  denied.Error(),
			"reason": string(denied.Reason),
		})
	case errors.Is(err, sql.ErrNoRows):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, orchestrators.ErrAlreadyRegistered),
		errors.Is(err, attendance.ErrAlreadyCheckedIn),
		errors.Is(err, orchestrators.ErrIssuanceConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

// renderMarkdown converts markdown to sanitized HTML for event
// descriptions.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(md), &buf); err != nil {
		return template.HTMLEscapeString(md)
	}
	return buf.String()
}

// requireAdmin checks the session for admin role and returns the session.
// Returns false if the request should not proceed.
func requireAdmin(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return middleware.Session{}, false
	}
	if sess.Role != "admin" {
		slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role, "required", "admin")
		http.Error(w, "Forbidden", http.StatusForbidden)
		return middleware.Session{}, false
	}
	return sess, true
}

// requireStaff checks the session for admin or coordinator role.
// Returns false if the request should not proceed.
func requireStaff(w http.ResponseWriter, r *http.Request) (middleware.Session, bool) {
	sess, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		slog.Warn("auth_denied", "path", r.URL.Path, "reason", "no session")
		http.Error(w, "not authenticated", http.StatusUnauthorized)
		return middleware.Session{}, false
	}
	if sess.Role != "admin" && sess.Role != "coordinator" {
		slog.Warn("auth_denied", "path", r.URL.Path, "account_id", sess.AccountID, "role", sess.Role)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return middleware.Session{}, false
	}
	return sess, true
}

// pathSegment returns the n-th segment of the trimmed request path,
// or "" when the path is shorter.
func pathSegment(r *http.Request, n int) string {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if n >= len(parts) {
		return ""
	}
	return parts[n]
}

// --- Authentication ---

// handleLogin handles POST /api/login
func handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "email and password are required", http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteLogin(r.Context(), orchestrators.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	}, orchestrators.LoginDeps{
		AccountStore: stores.AccountStore,
		AuditStore:   stores.AuditStore,
		Now:          timeNow,
	})
	if err != nil {
		status := http.StatusUnauthorized
		if errors.Is(err, orchestrators.ErrAccountLocked) {
			status = http.StatusTooManyRequests
		}
		http.Error(w, err.Error(), status)
		return
	}

	token, err := sessions.Create(result.AccountID, result.Email, result.Role, result.CoordinatorID)
	if err != nil {
		internalError(w, err)
		return
	}
	middleware.SetSessionCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]string{
		"account_id": result.AccountID,
		"email":      result.Email,
		"role":       result.Role,
	})
}

// handleLogout handles POST /api/logout
func handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil {
		sessions.Delete(cookie.Value)
	}
	middleware.ClearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// --- Public event endpoints ---

// eventView is the public JSON shape of an event. The markdown
// description is rendered server-side.
type eventView struct {
	ID                  string  `json:"id"`
	Title               string  `json:"title"`
	DescriptionHTML     string  `json:"description_html"`
	Type                string  `json:"type"`
	Category            string  `json:"category"`
	Modality            string  `json:"modality"`
	StartDate           string  `json:"start_date"`
	EndDate             string  `json:"end_date"`
	CreditUnits         float64 `json:"credit_units"`
	MaxParticipants     int     `json:"max_participants"`
	CurrentParticipants int     `json:"current_participants"`
	Status              string  `json:"status"`
}

func toEventView(ev eventDomain.Event) eventView {
	return eventView{
		ID:                  ev.ID,
		Title:               ev.Title,
		DescriptionHTML:     renderMarkdown(ev.Description),
		Type:                string(ev.Type),
		Category:            string(ev.Category),
		Modality:            string(ev.Modality),
		StartDate:           ev.StartDate.Format(time.RFC3339),
		EndDate:             ev.EndDate.Format(time.RFC3339),
		CreditUnits:         ev.CreditUnits,
		MaxParticipants:     ev.MaxParticipants,
		CurrentParticipants: ev.CurrentParticipants,
		Status:              string(ev.Status),
	}
}

// parseEventFilter builds an event list filter from query parameters.
// The "all" status sentinel clears the status filter for staff views.
func parseEventFilter(r *http.Request, status string) eventStore.ListFilter {
	q := r.URL.Query()
	page := listutil.ParsePageParams(q)
	if status == "all" {
		status = ""
	}
	return eventStore.ListFilter{
		Status: status,
		Type:   q.Get("type"),
		Limit:  page.PerPage,
		Offset: (page.Page - 1) * page.PerPage,
	}
}

// handleEvents handles GET /api/events (public list) and POST /api/events (admin create).
func handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case "GET":
		// The public catalog only shows published events unless a staff
		// session asks for a specific status.
		status := r.URL.Query().Get("status")
		if status != "" && !middleware.IsRole(ctx, "admin", "coordinator") {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		if status == "" {
			status = string(eventDomain.StatusApproved)
		}

		events, err := stores.EventStore.List(ctx, parseEventFilter(r, status))
		if err != nil {
			internalError(w, err)
			return
		}

		views := make([]eventView, 0, len(events))
		for _, ev := range events {
			views = append(views, toEventView(ev))
		}
		writeJSON(w, http.StatusOK, views)

	case "POST":
		handleCreateEvent(w, r)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleEventByID handles GET /api/events/:id (public detail).
func handleEventByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	eventID := pathSegment(r, 2)
	ev, err := stores.EventStore.GetByID(ctx, eventID)
	if err != nil {
		respondError(w, err)
		return
	}
	if ev.Status == eventDomain.StatusDraft || ev.Status == eventDomain.StatusPendingApproval {
		if !middleware.IsRole(ctx, "admin", "coordinator") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
	}
	writeJSON(w, http.StatusOK, toEventView(ev))
}

// --- Registration ---

// handleRegister handles POST /api/events/:id/register
func handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ParticipantName  string `json:"participant_name" validate:"required,max=200"`
		ParticipantEmail string `json:"participant_email" validate:"required,email"`
		Credential       string `json:"credential" validate:"required,oneof=bcba bcaba rbt"`
		BACBID           string `json:"bacb_id" validate:"max=32"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := orchestrators.ExecuteRegisterParticipant(r.Context(), orchestrators.RegisterParticipantInput{
		EventID:          pathSegment(r, 2),
		ParticipantName:  req.ParticipantName,
		ParticipantEmail: req.ParticipantEmail,
		Credential:       registration.Credential(req.Credential),
		BACBID:           req.BACBID,
	}, orchestrators.RegisterParticipantDeps{
		EventStore:        stores.EventStore,
		RegistrationStore: stores.RegistrationStore,
		OutboxStore:       stores.OutboxStore,
		GenerateID:        generateID,
		Now:               timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"registration_id":   result.Registration.ID,
		"confirmation_code": result.Registration.ConfirmationCode,
		"status":            result.Registration.Status,
	})
}

// lookupRegistrationByCode resolves a confirmation code to the
// registration for the event in the request path.
func lookupRegistrationByCode(w http.ResponseWriter, r *http.Request, code string) (registration.Registration, bool) {
	if code == "" {
		http.Error(w, "confirmation_code is required", http.StatusBadRequest)
		return registration.Registration{}, false
	}
	reg, err := stores.RegistrationStore.FindByConfirmationCode(r.Context(), pathSegment(r, 2), strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		http.Error(w, "unknown confirmation code", http.StatusNotFound)
		return registration.Registration{}, false
	}
	return reg, true
}

// --- Attendance check-in/out ---

// handleCheckIn handles POST /api/events/:id/checkin
func handleCheckIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ConfirmationCode string `json:"confirmation_code"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	reg, ok := lookupRegistrationByCode(w, r, req.ConfirmationCode)
	if !ok {
		return
	}

	record, err := orchestrators.ExecuteRecordCheckIn(r.Context(), orchestrators.RecordCheckInInput{
		EventID:       reg.EventID,
		ParticipantID: reg.ID,
	}, orchestrators.RecordCheckInDeps{
		EventStore:      stores.EventStore,
		AttendanceStore: stores.AttendanceStore,
		GenerateID:      generateID,
		Now:             timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"record_id":   record.ID,
		"check_in_at": record.CheckInTime.Format(time.RFC3339),
		"participant": reg.ParticipantName,
	})
}

// handleCheckOut handles POST /api/events/:id/checkout
func handleCheckOut(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ConfirmationCode string `json:"confirmation_code"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	reg, ok := lookupRegistrationByCode(w, r, req.ConfirmationCode)
	if !ok {
		return
	}

	result, err := orchestrators.ExecuteRecordCheckOut(r.Context(), orchestrators.RecordCheckOutInput{
		EventID:       reg.EventID,
		ParticipantID: reg.ID,
	}, orchestrators.RecordCheckOutDeps{
		EventStore:      stores.EventStore,
		AttendanceStore: stores.AttendanceStore,
		Now:             timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"record_id":         result.Record.ID,
		"check_out_at":      result.Record.CheckOutTime.Format(time.RFC3339),
		"total_minutes":     result.Summary.DurationMinutes,
		"attendance_status": string(result.Summary.Status),
	})
}

// --- Quiz ---

// handleQuizSubmit handles POST /api/events/:id/quiz
func handleQuizSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ConfirmationCode string              `json:"confirmation_code"`
		Answers          map[string][]string `json:"answers"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	reg, ok := lookupRegistrationByCode(w, r, req.ConfirmationCode)
	if !ok {
		return
	}

	submission, err := orchestrators.ExecuteSubmitQuiz(r.Context(), orchestrators.SubmitQuizInput{
		EventID:       reg.EventID,
		ParticipantID: reg.ID,
		Answers:       req.Answers,
	}, orchestrators.SubmitQuizDeps{
		QuizStore:  stores.QuizStore,
		GenerateID: generateID,
		Now:        timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"submission_id":   submission.ID,
		"attempt_number":  submission.AttemptNumber,
		"score":           submission.Score,
		"total_questions": submission.TotalQuestions,
		"score_percent":   submission.ScorePercent,
		"passed":          submission.Passed,
	})
}

// handleQuizQuestions handles GET /api/events/:id/quiz (question list
// without the correct answers).
func handleQuizQuestions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	eventID := pathSegment(r, 2)

	q, err := stores.QuizStore.FindByEvent(ctx, eventID)
	if err != nil {
		http.Error(w, "no quiz for this event", http.StatusNotFound)
		return
	}
	if !q.Active {
		http.Error(w, "quiz is not active", http.StatusConflict)
		return
	}
	questions, err := stores.QuizStore.ListQuestions(ctx, q.ID)
	if err != nil {
		internalError(w, err)
		return
	}

	type questionView struct {
		ID      string   `json:"id"`
		Text    string   `json:"text"`
		Options []string `json:"options"`
	}
	views := make([]questionView, 0, len(questions))
	for _, question := range questions {
		views = append(views, questionView{ID: question.ID, Text: question.Text, Options: question.Options})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"quiz_id":               q.ID,
		"title":                 q.Title,
		"passing_score_percent": q.PassingScorePercent,
		"max_attempts":          q.MaxAttempts,
		"questions":             views,
	})
}

// --- Feedback ---

// handleFeedbackSubmit handles POST /api/events/:id/feedback
func handleFeedbackSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ConfirmationCode string `json:"confirmation_code"`
		Rating           int    `json:"rating" validate:"required,min=1,max=5"`
		InstructorRating int    `json:"instructor_rating" validate:"min=0,max=5"`
		ContentRating    int    `json:"content_rating" validate:"min=0,max=5"`
		Comments         string `json:"comments" validate:"max=4000"`
		WouldRecommend   bool   `json:"would_recommend"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reg, ok := lookupRegistrationByCode(w, r, req.ConfirmationCode)
	if !ok {
		return
	}

	fb, err := orchestrators.ExecuteSubmitFeedback(r.Context(), orchestrators.SubmitFeedbackInput{
		EventID:          reg.EventID,
		ParticipantID:    reg.ID,
		Rating:           req.Rating,
		InstructorRating: req.InstructorRating,
		ContentRating:    req.ContentRating,
		Comments:         req.Comments,
		WouldRecommend:   req.WouldRecommend,
	}, orchestrators.SubmitFeedbackDeps{
		EventStore:    stores.EventStore,
		FeedbackStore: stores.FeedbackStore,
		GenerateID:    generateID,
		Now:           timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"feedback_id":     fb.ID,
		"review_due_date": fb.CoordinatorReviewDueDate.Format(time.RFC3339),
	})
}

// --- Complaints ---

// handleComplaints handles POST /api/complaints (public submission).
func handleComplaints(w http.ResponseWriter, r *http.Request) {
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		EventID        string `json:"event_id"`
		SubmitterName  string `json:"submitter_name" validate:"required,max=200"`
		SubmitterEmail string `json:"submitter_email" validate:"required,email"`
		Body           string `json:"body" validate:"required,max=8000"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	c, err := orchestrators.ExecuteSubmitComplaint(r.Context(), orchestrators.SubmitComplaintInput{
		EventID:        req.EventID,
		SubmitterName:  req.SubmitterName,
		SubmitterEmail: req.SubmitterEmail,
		Body:           req.Body,
	}, orchestrators.SubmitComplaintDeps{
		ComplaintStore: stores.ComplaintStore,
		OutboxStore:    stores.OutboxStore,
		GenerateID:     generateID,
		Now:            timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"complaint_id":      c.ID,
		"status":            string(c.Status),
		"response_due_date": c.ResponseDueDate.Format(time.RFC3339),
	})
}
