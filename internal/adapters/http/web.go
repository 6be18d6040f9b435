package web

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"time"

	"aceplatform/internal/adapters/http/middleware"
	"aceplatform/internal/adapters/http/perf"
	accountStore "aceplatform/internal/adapters/storage/account"
	attendanceStore "aceplatform/internal/adapters/storage/attendance"
	auditStore "aceplatform/internal/adapters/storage/audit"
	certificateStore "aceplatform/internal/adapters/storage/certificate"
	complaintStore "aceplatform/internal/adapters/storage/complaint"
	coordinatorStore "aceplatform/internal/adapters/storage/coordinator"
	eventStore "aceplatform/internal/adapters/storage/event"
	outboxStore "aceplatform/internal/adapters/storage/outbox"
	quizStore "aceplatform/internal/adapters/storage/quiz"
	registrationStore "aceplatform/internal/adapters/storage/registration"
	"aceplatform/internal/application/orchestrators"
)

// Stores holds all storage dependencies.
type Stores struct {
	AccountStore      accountStore.Store
	EventStore        eventStore.Store
	RegistrationStore registrationStore.Store
	AttendanceStore   attendanceStore.Store
	CertificateStore  certificateStore.Store
	ComplaintStore    complaintStore.Store
	FeedbackStore     complaintStore.FeedbackStore
	CoordinatorStore  coordinatorStore.Store
	QuizStore         quizStore.Store
	OutboxStore       outboxStore.Store
	AuditStore        auditStore.Store
}

// loadCSRFKey reads the CSRF secret from ACE_CSRF_KEY (hex-encoded, 32 bytes).
// In production, the key MUST be set. In development, a random key is generated per startup.
func loadCSRFKey() []byte {
	if keyHex := os.Getenv("ACE_CSRF_KEY"); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			log.Fatal("ACE_CSRF_KEY must be 64 hex characters (32 bytes)")
		}
		return key
	}
	if os.Getenv("ACE_ENV") == "production" {
		log.Fatal("ACE_CSRF_KEY is required in production")
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		log.Fatalf("failed to generate CSRF key: %v", err)
	}
	log.Println("WARNING: using random CSRF key (sessions won't survive restart). Set ACE_CSRF_KEY for production.")
	return key
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global session store instance
var sessions *middleware.SessionStore

// RateLimitPerSecond controls the per-IP rate limit. Tests can increase this.
var RateLimitPerSecond = 10

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global outbox processor for manual retry endpoints (set by SetOutboxProcessor)
var outboxProcessor *orchestrators.OutboxProcessor

// SetOutboxProcessor wires the delivery processor used by the admin
// outbox endpoints.
func SetOutboxProcessor(p *orchestrators.OutboxProcessor) {
	outboxProcessor = p
}

// NewMux wires HTTP handlers for the app.
func NewMux(staticDir string, s *Stores, collector *perf.Collector) http.Handler {
	stores = s
	perfCollector = collector
	sessions = middleware.NewSessionStore()
	middleware.SecureCookies = os.Getenv("ACE_ENV") == "production"

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	registerRoutes(mux)

	// CSRF key: 32-byte hex-encoded secret from env var
	csrfKey := loadCSRFKey()

	// Rate limiter: configurable requests per second per IP
	limiter := middleware.NewRateLimiter(RateLimitPerSecond, time.Second)

	// Apply middleware: Timing -> RateLimit -> Auth -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(csrfKey),
		middleware.Auth(sessions),
		middleware.RateLimit(limiter),
		middleware.Timing(collector),
	)
}
