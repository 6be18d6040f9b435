package storage

import (
	"database/sql"
	"fmt"
)

// InitDB initializes the database schema.
// PRE: db is a valid database connection
// POST: All tables are created, WAL mode enabled
func InitDB(db *sql.DB) error {
	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	// Enable foreign key enforcement
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS account (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		coordinator_id TEXT,
		created_at TEXT NOT NULL,
		failed_logins INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT
	);

	CREATE TABLE IF NOT EXISTS event (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		category TEXT NOT NULL,
		modality TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		credit_units REAL NOT NULL,
		max_participants INTEGER NOT NULL,
		current_participants INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		provider_id TEXT,
		coordinator_id TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS registration (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		participant_name TEXT NOT NULL,
		participant_email TEXT NOT NULL,
		credential TEXT NOT NULL,
		bacb_id TEXT,
		confirmation_code TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE (event_id, participant_email),
		FOREIGN KEY (event_id) REFERENCES event(id)
	);

	CREATE TABLE IF NOT EXISTS attendance_record (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		check_in_time TEXT NOT NULL,
		check_out_time TEXT,
		verified INTEGER NOT NULL DEFAULT 0,
		verified_by TEXT,
		verified_at TEXT,
		FOREIGN KEY (event_id) REFERENCES event(id)
	);

	CREATE TABLE IF NOT EXISTS certificate (
		id TEXT PRIMARY KEY,
		number TEXT,
		event_id TEXT NOT NULL,
		registration_id TEXT NOT NULL UNIQUE,
		participant_id TEXT NOT NULL,
		participant_name TEXT NOT NULL,
		participant_email TEXT NOT NULL DEFAULT '',
		participant_bacb_id TEXT,
		event_title TEXT NOT NULL DEFAULT '',
		event_date TEXT NOT NULL,
		instructor_name TEXT,
		credit_units REAL NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		issued_at TEXT,
		revoked_at TEXT,
		revocation_reason TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (event_id) REFERENCES event(id)
	);

	CREATE TABLE IF NOT EXISTS complaint (
		id TEXT PRIMARY KEY,
		event_id TEXT,
		submitter_name TEXT,
		submitter_email TEXT NOT NULL,
		body TEXT NOT NULL,
		status TEXT NOT NULL,
		submitted_at TEXT NOT NULL,
		response_due_date TEXT NOT NULL,
		resolved_at TEXT,
		resolution_notes TEXT,
		nav_escalation_notified INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS feedback_response (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		rating INTEGER NOT NULL,
		instructor_rating INTEGER,
		content_rating INTEGER,
		comments TEXT,
		would_recommend INTEGER NOT NULL DEFAULT 0,
		submitted_at TEXT NOT NULL,
		review_due_date TEXT NOT NULL,
		reviewed_at TEXT,
		review_notes TEXT,
		FOREIGN KEY (event_id) REFERENCES event(id)
	);

	CREATE TABLE IF NOT EXISTS coordinator_certification (
		id TEXT PRIMARY KEY,
		coordinator_id TEXT NOT NULL UNIQUE,
		coordinator_name TEXT NOT NULL,
		coordinator_email TEXT NOT NULL,
		certification_number TEXT NOT NULL,
		certification_date TEXT NOT NULL,
		certification_expires TEXT NOT NULL,
		verified INTEGER NOT NULL DEFAULT 0,
		verified_at TEXT,
		can_publish_events INTEGER NOT NULL DEFAULT 0,
		can_issue_certificates INTEGER NOT NULL DEFAULT 0,
		updated_at TEXT
	);

	CREATE TABLE IF NOT EXISTS quiz (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		passing_score_percent INTEGER NOT NULL,
		max_attempts INTEGER NOT NULL DEFAULT 0,
		time_limit_minutes INTEGER NOT NULL DEFAULT 0,
		shuffle_questions INTEGER NOT NULL DEFAULT 0,
		required_for_certificate INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		FOREIGN KEY (event_id) REFERENCES event(id)
	);

	CREATE TABLE IF NOT EXISTS quiz_question (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL,
		text TEXT NOT NULL,
		options TEXT NOT NULL DEFAULT '[]',
		correct_answers TEXT NOT NULL DEFAULT '[]',
		points INTEGER NOT NULL DEFAULT 1,
		order_index INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (quiz_id) REFERENCES quiz(id)
	);

	CREATE TABLE IF NOT EXISTS quiz_submission (
		id TEXT PRIMARY KEY,
		quiz_id TEXT NOT NULL,
		event_id TEXT NOT NULL,
		participant_id TEXT NOT NULL,
		attempt_number INTEGER NOT NULL,
		score INTEGER NOT NULL,
		total_questions INTEGER NOT NULL,
		score_percent INTEGER NOT NULL,
		passed INTEGER NOT NULL DEFAULT 0,
		submitted_at TEXT NOT NULL,
		FOREIGN KEY (quiz_id) REFERENCES quiz(id)
	);

	CREATE TABLE IF NOT EXISTS outbox (
		id TEXT PRIMARY KEY,
		notice_type TEXT NOT NULL,
		payload TEXT NOT NULL,
		recipient TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		attempts INTEGER NOT NULL DEFAULT 0,
		max_attempts INTEGER NOT NULL,
		last_attempted_at TEXT,
		created_at TEXT NOT NULL,
		external_id TEXT,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id TEXT PRIMARY KEY,
		timestamp TEXT NOT NULL,
		category TEXT NOT NULL,
		action TEXT NOT NULL,
		severity TEXT NOT NULL,
		actor_id TEXT,
		actor_email TEXT,
		resource_id TEXT,
		resource_type TEXT,
		description TEXT,
		metadata TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_registration_event ON registration(event_id);
	CREATE INDEX IF NOT EXISTS idx_attendance_event ON attendance_record(event_id);
	CREATE INDEX IF NOT EXISTS idx_attendance_participant ON attendance_record(event_id, participant_id);
	CREATE INDEX IF NOT EXISTS idx_certificate_event ON certificate(event_id);
	CREATE INDEX IF NOT EXISTS idx_certificate_status ON certificate(status);
	CREATE INDEX IF NOT EXISTS idx_complaint_status ON complaint(status);
	CREATE INDEX IF NOT EXISTS idx_quiz_submission_participant ON quiz_submission(quiz_id, participant_id);
	CREATE INDEX IF NOT EXISTS idx_outbox_status ON outbox(status);
	CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}
