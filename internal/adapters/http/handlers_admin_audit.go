package web

import (
	"net/http"
	"strconv"

	auditStore "aceplatform/internal/adapters/storage/audit"
	auditDomain "aceplatform/internal/domain/audit"
)

// handleAdminAudit handles GET /admin/audit. The trail is append-only;
// there are no write endpoints.
func handleAdminAudit(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireAdmin(w, r); !ok {
		return
	}
	if r.Method != "GET" {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	limit := 100
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 500 {
		limit = n
	}

	events, err := stores.AuditStore.List(r.Context(), auditStore.ListFilter{
		Category: r.URL.Query().Get("category"),
		Action:   r.URL.Query().Get("action"),
		Severity: r.URL.Query().Get("severity"),
		ActorID:  r.URL.Query().Get("actor_id"),
		Limit:    limit,
	})
	if err != nil {
		internalError(w, err)
		return
	}
	if events == nil {
		events = []auditDomain.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}
