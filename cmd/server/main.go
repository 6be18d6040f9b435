package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	_ "modernc.org/sqlite"

	emailPkg "aceplatform/internal/adapters/email"
	web "aceplatform/internal/adapters/http"
	"aceplatform/internal/adapters/http/perf"
	"aceplatform/internal/adapters/storage"
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
	"aceplatform/internal/application/projections"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	dbPath := envOrDefault("ACE_DB_PATH", "ace.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Connection pool settings for WAL mode
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		log.Fatalf("database unreachable: %v", err)
	}
	if err := storage.InitDB(db); err != nil {
		log.Fatalf("failed to initialize schema: %v", err)
	}

	// Performance instrumentation: wrap DB with timing, create collector
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector)

	acctStore := accountStore.NewSQLiteStore(timedDB)
	obStore := outboxStore.NewSQLiteStore(timedDB)
	certStore := certificateStore.NewSQLiteStore(timedDB)
	compStore := complaintStore.NewSQLiteStore(timedDB)
	fbStore := complaintStore.NewFeedbackSQLiteStore(timedDB)
	coordStore := coordinatorStore.NewSQLiteStore(timedDB)
	stores := &web.Stores{
		AccountStore:      acctStore,
		EventStore:        eventStore.NewSQLiteStore(timedDB),
		RegistrationStore: registrationStore.NewSQLiteStore(timedDB),
		AttendanceStore:   attendanceStore.NewSQLiteStore(timedDB),
		CertificateStore:  certStore,
		ComplaintStore:    compStore,
		FeedbackStore:     fbStore,
		CoordinatorStore:  coordStore,
		QuizStore:         quizStore.NewSQLiteStore(timedDB),
		OutboxStore:       obStore,
		AuditStore:        auditStore.NewSQLiteStore(timedDB),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Seed the initial admin account so the console is reachable on a
	// fresh database.
	adminEmail := envOrDefault("ACE_ADMIN_EMAIL", "admin@localhost")
	adminPassword := envOrDefault("ACE_ADMIN_PASSWORD", "change-me-before-prod")
	seedDeps := orchestrators.SeedAdminDeps{
		AccountStore: acctStore,
		GenerateID:   newID,
		Now:          time.Now,
	}
	if err := orchestrators.ExecuteSeedAdmin(ctx, seedDeps, adminEmail, adminPassword); err != nil {
		log.Fatalf("failed to seed admin: %v", err)
	}

	// Configure email delivery
	resendKey := os.Getenv("ACE_RESEND_KEY")
	emailFrom := envOrDefault("ACE_RESEND_FROM", "ACE Provider <noreply@localhost>")
	var sender emailPkg.Sender
	if resendKey != "" {
		sender = emailPkg.NewResendSender(resendKey, emailFrom)
		log.Println("Email sender configured (Resend)")
	} else {
		sender = emailPkg.NewNoopSender()
		if os.Getenv("ACE_ENV") == "production" {
			log.Println("WARNING: ACE_RESEND_KEY is not set, email delivery is DISABLED in production")
		} else {
			log.Println("Email sender configured (noop, set ACE_RESEND_KEY for real delivery)")
		}
	}

	// Outbox delivery: background sweep plus manual retry endpoints.
	deliverer := orchestrators.NewEmailDeliverer(sender, emailFrom)
	processor := orchestrators.NewOutboxProcessor(obStore, deliverer.Deliverers(), time.Now)
	processor.StartBackgroundWorker(ctx, 1*time.Minute)
	web.SetOutboxProcessor(processor)

	// Daily compliance digest for the provider admin.
	digestDeps := orchestrators.ComplianceDigestDeps{
		Dashboard: projections.ComplianceDashboardDeps{
			CertificateStore: certStore,
			ComplaintStore:   compStore,
			FeedbackStore:    fbStore,
			CoordinatorStore: coordStore,
		},
		OutboxStore: obStore,
		Recipient:   envOrDefault("ACE_DIGEST_RECIPIENT", adminEmail),
		GenerateID:  newID,
		Now:         time.Now,
	}
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(envOrDefault("ACE_DIGEST_SCHEDULE", "0 6 * * *"), func() {
		if _, err := orchestrators.ExecuteEnqueueComplianceDigest(ctx, digestDeps); err != nil {
			log.Printf("compliance digest failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("failed to schedule compliance digest: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	mux := web.NewMux(envOrDefault("ACE_STATIC_DIR", "static"), stores, collector)

	addr := envOrDefault("ACE_ADDR", ":8080")
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("ACE engine %s starting on %s (env=%s)", version, addr, envOrDefault("ACE_ENV", "development"))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func newID() string {
	return uuid.New().String()
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
