package web

import "net/http"

// registerRoutes wires every endpoint onto the mux. Public endpoints
// serve participants without accounts; /admin endpoints require a
// session, enforced inside each handler.
func registerRoutes(mux *http.ServeMux) {
	// Authentication
	mux.HandleFunc("/api/login", handleLogin)
	mux.HandleFunc("/api/logout", handleLogout)

	// Events: exact path for list/create, subtree for per-event actions
	mux.HandleFunc("/api/events", handleEvents)
	mux.HandleFunc("/api/events/", handleEventSubtree)

	// Complaints (public submission)
	mux.HandleFunc("/api/complaints", handleComplaints)

	// Administration
	mux.HandleFunc("/admin/certificates", handleAdminCertificates)
	mux.HandleFunc("/admin/certificates/", handleAdminCertificates)
	mux.HandleFunc("/admin/complaints", handleAdminComplaints)
	mux.HandleFunc("/admin/complaints/", handleAdminComplaints)
	mux.HandleFunc("/admin/feedback", handleAdminFeedback)
	mux.HandleFunc("/admin/feedback/", handleAdminFeedback)
	mux.HandleFunc("/admin/coordinators", handleAdminCoordinators)
	mux.HandleFunc("/admin/coordinators/", handleAdminCoordinators)
	mux.HandleFunc("/admin/dashboard", handleAdminDashboard)
	mux.HandleFunc("/admin/outbox", handleAdminOutbox)
	mux.HandleFunc("/admin/outbox/", handleAdminOutbox)
	mux.HandleFunc("/admin/audit", handleAdminAudit)
	mux.HandleFunc("/admin/perf", handleAdminPerf)
}

// handleEventSubtree dispatches /api/events/:id and its nested actions.
func handleEventSubtree(w http.ResponseWriter, r *http.Request) {
	eventID := pathSegment(r, 2)
	if eventID == "" {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	switch pathSegment(r, 3) {
	case "":
		handleEventByID(w, r)
	case "register":
		handleRegister(w, r)
	case "checkin":
		handleCheckIn(w, r)
	case "checkout":
		handleCheckOut(w, r)
	case "quiz":
		if r.Method == "GET" {
			handleQuizQuestions(w, r)
			return
		}
		handleQuizSubmit(w, r)
	case "feedback":
		handleFeedbackSubmit(w, r)
	case "status":
		handleEventStatus(w, r)
	case "complete":
		handleEventComplete(w, r)
	case "roster":
		handleEventRoster(w, r)
	case "attendance":
		switch pathSegment(r, 4) {
		case "verify":
			handleAttendanceVerify(w, r)
		case "bulk-verify":
			handleAttendanceBulkVerify(w, r)
		default:
			http.Error(w, "invalid path", http.StatusBadRequest)
		}
	default:
		http.Error(w, "invalid path", http.StatusBadRequest)
	}
}
