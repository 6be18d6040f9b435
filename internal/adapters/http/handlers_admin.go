package web

import (
	"net/http"
	"sort"
	"strconv"
	"time"

	certificateStore "aceplatform/internal/adapters/storage/certificate"
	"aceplatform/internal/application/listutil"
	"aceplatform/internal/application/orchestrators"
	"aceplatform/internal/application/projections"
	certificateDomain "aceplatform/internal/domain/certificate"
	complaintDomain "aceplatform/internal/domain/complaint"
	eventDomain "aceplatform/internal/domain/event"
)

// Sort column allow lists for the admin list endpoints.
var (
	certSortColumns      = []string{"participant_name", "event_date", "issued_at", "status"}
	complaintSortColumns = []string{"submitted_at", "response_due_date", "status"}
)

// sortCertificates orders an admin certificate page in place. The
// default order is creation time, matching the store.
func sortCertificates(list []certificateDomain.Certificate, s listutil.SortParams) {
	sort.SliceStable(list, func(i, j int) bool {
		if s.Descending() {
			i, j = j, i
		}
		switch s.Sort {
		case "participant_name":
			return list[i].ParticipantName < list[j].ParticipantName
		case "event_date":
			return list[i].EventDate.Before(list[j].EventDate)
		case "issued_at":
			return list[i].IssuedAt.Before(list[j].IssuedAt)
		case "status":
			return list[i].Status < list[j].Status
		default:
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
	})
}

// sortComplaints orders the open-complaint queue in place, oldest
// submission first by default so overdue work surfaces.
func sortComplaints(list []complaintDomain.Complaint, s listutil.SortParams) {
	sort.SliceStable(list, func(i, j int) bool {
		if s.Descending() {
			i, j = j, i
		}
		switch s.Sort {
		case "response_due_date":
			return list[i].ResponseDueDate.Before(list[j].ResponseDueDate)
		case "status":
			return list[i].Status < list[j].Status
		default:
			return list[i].SubmittedAt.Before(list[j].SubmittedAt)
		}
	})
}

// --- Event administration ---

// handleCreateEvent handles POST /api/events (admin or coordinator).
func handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req struct {
		Title           string  `json:"title" validate:"required,max=300"`
		Description     string  `json:"description" validate:"max=16000"`
		Type            string  `json:"type" validate:"required,oneof=ce pd"`
		Category        string  `json:"category" validate:"required,oneof=learning ethics supervision teaching"`
		Modality        string  `json:"modality" validate:"required,oneof=in_person synchronous asynchronous"`
		StartDate       string  `json:"start_date" validate:"required"`
		EndDate         string  `json:"end_date" validate:"required"`
		CreditUnits     float64 `json:"credit_units" validate:"required,gt=0"`
		MaxParticipants int     `json:"max_participants" validate:"required,gt=0"`
		ProviderID      string  `json:"provider_id"`
		CoordinatorID   string  `json:"coordinator_id"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	start, err := time.Parse(time.RFC3339, req.StartDate)
	if err != nil {
		http.Error(w, "start_date must be RFC 3339", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, req.EndDate)
	if err != nil {
		http.Error(w, "end_date must be RFC 3339", http.StatusBadRequest)
		return
	}

	coordinatorID := req.CoordinatorID
	if sess.Role == "coordinator" {
		// Coordinators always create events under their own certification.
		coordinatorID = sess.CoordinatorID
	}

	ev, err := orchestrators.ExecuteCreateEvent(r.Context(), orchestrators.CreateEventInput{
		Title:           req.Title,
		Description:     req.Description,
		Type:            eventDomain.Type(req.Type),
		Category:        eventDomain.Category(req.Category),
		Modality:        eventDomain.Modality(req.Modality),
		StartDate:       start,
		EndDate:         end,
		CreditUnits:     req.CreditUnits,
		MaxParticipants: req.MaxParticipants,
		ProviderID:      req.ProviderID,
		CoordinatorID:   coordinatorID,
	}, orchestrators.CreateEventDeps{
		EventStore: stores.EventStore,
		GenerateID: generateID,
		Now:        timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEventView(ev))
}

// handleEventStatus handles POST /api/events/:id/status
func handleEventStatus(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireStaff(w, r); !ok {
		return
	}

	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ev, err := orchestrators.ExecuteAdvanceEvent(r.Context(), orchestrators.AdvanceEventInput{
		EventID: pathSegment(r, 2),
		Next:    eventDomain.Status(req.Status),
	}, orchestrators.AdvanceEventDeps{
		EventStore:       stores.EventStore,
		CoordinatorStore: stores.CoordinatorStore,
		Now:              timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventView(ev))
}

// handleEventComplete handles POST /api/events/:id/complete. Completion
// transitions the event and creates pending certificates for every
// confirmed registration.
func handleEventComplete(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireStaff(w, r); !ok {
		return
	}

	result, err := orchestrators.ExecuteCompleteEvent(r.Context(), orchestrators.CompleteEventInput{
		EventID: pathSegment(r, 2),
	}, orchestrators.CompleteEventDeps{
		EventStore:        stores.EventStore,
		RegistrationStore: stores.RegistrationStore,
		CertificateStore:  stores.CertificateStore,
		GenerateID:        generateID,
		Now:               timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"event_id":             result.Event.ID,
		"status":               string(result.Event.Status),
		"pending_certificates": result.PendingCertificates,
	})
}

// handleEventRoster handles GET /api/events/:id/roster
func handleEventRoster(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireStaff(w, r); !ok {
		return
	}

	roster, err := projections.GetEventRoster(r.Context(), pathSegment(r, 2), projections.EventRosterDeps{
		EventStore:        stores.EventStore,
		RegistrationStore: stores.RegistrationStore,
		AttendanceStore:   stores.AttendanceStore,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// --- Attendance verification ---

// handleAttendanceVerify handles POST /api/events/:id/attendance/verify
func handleAttendanceVerify(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	var req struct {
		ParticipantID string `json:"participant_id" validate:"required"`
		Verified      bool   `json:"verified"`
	}
	if err := strictDecode(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := orchestrators.ExecuteToggleAttendanceVerification(r.Context(), orchestrators.ToggleAttendanceVerificationInput{
		EventID:       pathSegment(r, 2),
		ParticipantID: req.ParticipantID,
		Verified:      req.Verified,
		ActorID:       sess.AccountID,
		ActorEmail:    sess.Email,
	}, orchestrators.ToggleAttendanceVerificationDeps{
		EventStore:      stores.EventStore,
		AttendanceStore: stores.AttendanceStore,
		AuditStore:      stores.AuditStore,
		Now:             timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"participant_id": req.ParticipantID,
		"verified":       req.Verified,
	})
}

// handleAttendanceBulkVerify handles POST /api/events/:id/attendance/bulk-verify
func handleAttendanceBulkVerify(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	result, err := orchestrators.ExecuteBulkVerifyAttendance(r.Context(), orchestrators.BulkVerifyAttendanceInput{
		EventID:    pathSegment(r, 2),
		ActorID:    sess.AccountID,
		ActorEmail: sess.Email,
	}, orchestrators.BulkVerifyAttendanceDeps{
		EventStore:      stores.EventStore,
		AttendanceStore: stores.AttendanceStore,
		AuditStore:      stores.AuditStore,
		Now:             timeNow,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// --- Certificates ---

// handleAdminCertificates handles GET /admin/certificates and the
// per-certificate POST actions issue/revoke plus GET eligibility.
// Routes: GET /admin/certificates, POST /admin/certificates/:id/issue,
// POST /admin/certificates/:id/revoke, GET /admin/certificates/:id/eligibility,
// POST /admin/certificates/bulk-issue
func handleAdminCertificates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	if r.Method == "GET" && pathSegment(r, 2) == "" {
		lp := listutil.ParseListParams(r.URL.Query(), certSortColumns, []string{"status"})
		certs, err := stores.CertificateStore.List(ctx, certificateStore.ListFilter{Status: lp.Filters["status"]})
		if err != nil {
			internalError(w, err)
			return
		}
		sortCertificates(certs, lp.SortParams)
		info, lo, hi := listutil.Window(lp.PageParams, len(certs))
		items := certs[lo:hi]
		if items == nil {
			items = []certificateDomain.Certificate{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "page_info": info})
		return
	}

	if r.Method == "POST" && pathSegment(r, 2) == "bulk-issue" {
		var req struct {
			CertificateIDs []string `json:"certificate_ids" validate:"required,min=1"`
		}
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		result := orchestrators.ExecuteBulkIssueCertificates(ctx, orchestrators.BulkIssueCertificatesInput{
			CertificateIDs: req.CertificateIDs,
			ActorID:        sess.AccountID,
			ActorEmail:     sess.Email,
		}, issueCertificateDeps())
		writeJSON(w, http.StatusOK, result)
		return
	}

	certID := pathSegment(r, 2)
	action := pathSegment(r, 3)
	if certID == "" || action == "" {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	switch {
	case r.Method == "GET" && action == "eligibility":
		eligibility, err := projections.GetCertificateEligibility(ctx, certID, timeNow(), projections.CertificateEligibilityDeps{
			EventStore:       stores.EventStore,
			CertificateStore: stores.CertificateStore,
			AttendanceStore:  stores.AttendanceStore,
			CoordinatorStore: stores.CoordinatorStore,
			QuizStore:        stores.QuizStore,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, eligibility)

	case r.Method == "POST" && action == "issue":
		cert, err := orchestrators.ExecuteIssueCertificate(ctx, orchestrators.IssueCertificateInput{
			CertificateID: certID,
			ActorID:       sess.AccountID,
			ActorEmail:    sess.Email,
		}, issueCertificateDeps())
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cert)

	case r.Method == "POST" && action == "revoke":
		var req struct {
			Reason string `json:"reason" validate:"required,max=2000"`
		}
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "reason is required", http.StatusBadRequest)
			return
		}
		err := orchestrators.ExecuteRevokeCertificate(ctx, orchestrators.RevokeCertificateInput{
			CertificateID: certID,
			Reason:        req.Reason,
			ActorID:       sess.AccountID,
			ActorEmail:    sess.Email,
		}, orchestrators.RevokeCertificateDeps{
			CertificateStore: stores.CertificateStore,
			AuditStore:       stores.AuditStore,
			Now:              timeNow,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})

	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

func issueCertificateDeps() orchestrators.IssueCertificateDeps {
	return orchestrators.IssueCertificateDeps{
		EventStore:       stores.EventStore,
		CertificateStore: stores.CertificateStore,
		CoordinatorStore: stores.CoordinatorStore,
		AttendanceStore:  stores.AttendanceStore,
		QuizStore:        stores.QuizStore,
		OutboxStore:      stores.OutboxStore,
		AuditStore:       stores.AuditStore,
		Now:              timeNow,
		GenerateID:       generateID,
	}
}

// --- Complaints and feedback administration ---

// handleAdminComplaints handles GET /admin/complaints and POST /admin/complaints/:id/status
func handleAdminComplaints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case "GET":
		lp := listutil.ParseListParams(r.URL.Query(), complaintSortColumns, []string{"status"})
		complaints, err := stores.ComplaintStore.ListOpen(ctx)
		if err != nil {
			internalError(w, err)
			return
		}
		if st := lp.Filters["status"]; st != "" {
			kept := complaints[:0]
			for _, c := range complaints {
				if string(c.Status) == st {
					kept = append(kept, c)
				}
			}
			complaints = kept
		}
		sortComplaints(complaints, lp.SortParams)
		info, lo, hi := listutil.Window(lp.PageParams, len(complaints))
		items := complaints[lo:hi]
		if items == nil {
			items = []complaintDomain.Complaint{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "page_info": info})

	case "POST":
		complaintID := pathSegment(r, 2)
		if complaintID == "" || pathSegment(r, 3) != "status" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		var req struct {
			Status      string `json:"status" validate:"required"`
			Notes       string `json:"notes" validate:"max=8000"`
			NAVNotified *bool  `json:"nav_notified"`
		}
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		c, err := orchestrators.ExecuteUpdateComplaint(ctx, orchestrators.UpdateComplaintInput{
			ComplaintID: complaintID,
			Next:        complaintDomain.Status(req.Status),
			Notes:       req.Notes,
			NAVNotified: req.NAVNotified,
			ActorID:     sess.AccountID,
			ActorEmail:  sess.Email,
		}, orchestrators.UpdateComplaintDeps{
			ComplaintStore: stores.ComplaintStore,
			AuditStore:     stores.AuditStore,
			Now:            timeNow,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// handleAdminFeedback handles GET /admin/feedback (unreviewed queue) and
// POST /admin/feedback/:id/review
func handleAdminFeedback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := requireStaff(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case "GET":
		if eventID := r.URL.Query().Get("event_id"); eventID != "" {
			responses, err := stores.FeedbackStore.ListByEvent(ctx, eventID)
			if err != nil {
				internalError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, responses)
			return
		}
		responses, err := stores.FeedbackStore.ListUnreviewed(ctx)
		if err != nil {
			internalError(w, err)
			return
		}
		if responses == nil {
			responses = []complaintDomain.FeedbackResponse{}
		}
		writeJSON(w, http.StatusOK, responses)

	case "POST":
		feedbackID := pathSegment(r, 2)
		if feedbackID == "" || pathSegment(r, 3) != "review" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}
		var req struct {
			Notes string `json:"notes" validate:"max=8000"`
		}
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}

		fb, err := orchestrators.ExecuteReviewFeedback(ctx, orchestrators.ReviewFeedbackInput{
			FeedbackID: feedbackID,
			Notes:      req.Notes,
			ActorID:    sess.AccountID,
		}, orchestrators.ReviewFeedbackDeps{
			FeedbackStore: stores.FeedbackStore,
			Now:           timeNow,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, fb)

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// --- Coordinator administration ---

// handleAdminCoordinators handles GET /admin/coordinators, POST
// /admin/coordinators (upsert), and the per-coordinator POST actions
// verify/toggle.
func handleAdminCoordinators(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := requireAdmin(w, r)
	if !ok {
		return
	}

	if r.Method == "GET" {
		certs, err := stores.CoordinatorStore.List(ctx)
		if err != nil {
			internalError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, certs)
		return
	}
	if r.Method != "POST" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	coordinatorID := pathSegment(r, 2)
	if coordinatorID == "" {
		var req struct {
			CoordinatorID        string `json:"coordinator_id" validate:"required"`
			CoordinatorName      string `json:"coordinator_name" validate:"required,max=200"`
			CoordinatorEmail     string `json:"coordinator_email" validate:"required,email"`
			CertificationNumber  string `json:"certification_number" validate:"required,max=64"`
			CertificationDate    string `json:"certification_date" validate:"required"`
			CertificationExpires string `json:"certification_expires" validate:"required"`
		}
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		certDate, err := time.Parse("2006-01-02", req.CertificationDate)
		if err != nil {
			http.Error(w, "certification_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		expires, err := time.Parse("2006-01-02", req.CertificationExpires)
		if err != nil {
			http.Error(w, "certification_expires must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}

		cert, err := orchestrators.ExecuteUpsertCoordinatorCertification(ctx, orchestrators.UpsertCoordinatorCertificationInput{
			CoordinatorID:        req.CoordinatorID,
			CoordinatorName:      req.CoordinatorName,
			CoordinatorEmail:     req.CoordinatorEmail,
			CertificationNumber:  req.CertificationNumber,
			CertificationDate:    certDate,
			CertificationExpires: expires,
		}, orchestrators.UpsertCoordinatorCertificationDeps{
			CoordinatorStore: stores.CoordinatorStore,
			GenerateID:       generateID,
			Now:              timeNow,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, cert)
		return
	}

	switch pathSegment(r, 3) {
	case "verify":
		cert, err := orchestrators.ExecuteVerifyCoordinatorCertification(ctx, orchestrators.VerifyCoordinatorCertificationInput{
			CoordinatorID: coordinatorID,
			ActorID:       sess.AccountID,
			ActorEmail:    sess.Email,
		}, orchestrators.VerifyCoordinatorCertificationDeps{
			CoordinatorStore: stores.CoordinatorStore,
			AuditStore:       stores.AuditStore,
			Now:              timeNow,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cert)

	case "toggle":
		var req struct {
			CanPublishEvents     bool `json:"can_publish_events"`
			CanIssueCertificates bool `json:"can_issue_certificates"`
		}
		if err := strictDecode(r, &req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		cert, err := orchestrators.ExecuteToggleCoordinatorOperations(ctx, orchestrators.ToggleCoordinatorOperationsInput{
			CoordinatorID:        coordinatorID,
			CanPublishEvents:     req.CanPublishEvents,
			CanIssueCertificates: req.CanIssueCertificates,
			ActorID:              sess.AccountID,
			ActorEmail:           sess.Email,
		}, orchestrators.ToggleCoordinatorOperationsDeps{
			CoordinatorStore: stores.CoordinatorStore,
			AuditStore:       stores.AuditStore,
			Now:              timeNow,
		})
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cert)

	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
	}
}

// --- Compliance dashboard ---

// handleAdminDashboard handles GET /admin/dashboard
func handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireStaff(w, r); !ok {
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	dashboard, err := projections.GetComplianceDashboard(r.Context(), timeNow(), projections.ComplianceDashboardDeps{
		CertificateStore: stores.CertificateStore,
		ComplaintStore:   stores.ComplaintStore,
		FeedbackStore:    stores.FeedbackStore,
		CoordinatorStore: stores.CoordinatorStore,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

// handleAdminPerf handles GET /admin/perf
func handleAdminPerf(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	window := 15 * time.Minute
	if n, err := strconv.Atoi(r.URL.Query().Get("minutes")); err == nil && n > 0 && n <= 24*60 {
		window = time.Duration(n) * time.Minute
	}
	writeJSON(w, http.StatusOK, perfCollector.Snapshot(timeNow().Add(-window), 20))
}
