package web

import (
	"net/http"
	"strconv"

	outboxStore "aceplatform/internal/adapters/storage/outbox"
	"aceplatform/internal/application/orchestrators"
	outboxDomain "aceplatform/internal/domain/outbox"
)

// handleAdminOutbox handles admin endpoints for managing outbox entries.
// Routes: GET /admin/outbox (list entries), POST /admin/outbox/:id/retry
// (manual retry), POST /admin/outbox/:id/abandon
func handleAdminOutbox(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := requireAdmin(w, r); !ok {
		return
	}

	switch r.Method {
	case "GET":
		limit := 50
		if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 && n <= 200 {
			limit = n
		}

		status := r.URL.Query().Get("status")
		if status == "all" {
			status = ""
		} else if status == "" {
			status = outboxDomain.StatusFailed
		}

		entries, err := stores.OutboxStore.List(ctx, outboxStore.ListFilter{
			Status:     status,
			NoticeType: r.URL.Query().Get("notice_type"),
			Limit:      limit,
		})
		if err != nil {
			internalError(w, err)
			return
		}
		if entries == nil {
			entries = []outboxDomain.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)

	case "POST":
		entryID := pathSegment(r, 2)
		action := pathSegment(r, 3)
		if entryID == "" || action == "" {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		processor := outboxProcessor
		if processor == nil {
			// No deliverers wired; abandon still works against the store.
			processor = orchestrators.NewOutboxProcessor(stores.OutboxStore, nil, timeNow)
		}

		switch action {
		case "retry":
			if err := processor.ProcessSingle(ctx, entryID); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "retry triggered"})

		case "abandon":
			if err := processor.AbandonEntry(ctx, entryID); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})

		default:
			http.Error(w, "unknown action", http.StatusBadRequest)
		}

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}
