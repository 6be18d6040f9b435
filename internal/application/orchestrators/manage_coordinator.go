package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"aceplatform/internal/domain/audit"
	"aceplatform/internal/domain/coordinator"
)

// UpsertCoordinatorCertificationInput carries a coordinator's BCBA
// certification details.
type UpsertCoordinatorCertificationInput struct {
	CoordinatorID        string
	CoordinatorName      string
	CoordinatorEmail     string
	CertificationNumber  string
	CertificationDate    time.Time
	CertificationExpires time.Time
}

// UpsertCoordinatorCertificationDeps holds dependencies for the upsert.
type UpsertCoordinatorCertificationDeps struct {
	CoordinatorStore CoordinatorStore
	GenerateID       func() string
	Now              func() time.Time
}

// ExecuteUpsertCoordinatorCertification records or refreshes a
// coordinator's certification. Refreshing clears the verified flag:
// new dates require a fresh admin attestation.
// POST: Certification saved, unverified
func ExecuteUpsertCoordinatorCertification(ctx context.Context, input UpsertCoordinatorCertificationInput, deps UpsertCoordinatorCertificationDeps) (coordinator.Certification, error) {
	cert, err := deps.CoordinatorStore.GetByCoordinatorID(ctx, input.CoordinatorID)
	if err != nil {
		cert = coordinator.Certification{
			ID:            deps.GenerateID(),
			CoordinatorID: input.CoordinatorID,
		}
	}

	cert.CoordinatorName = input.CoordinatorName
	cert.CoordinatorEmail = input.CoordinatorEmail
	cert.CertificationNumber = input.CertificationNumber
	cert.CertificationDate = input.CertificationDate
	cert.CertificationExpires = input.CertificationExpires
	cert.Verified = false
	cert.VerifiedAt = time.Time{}
	cert.UpdatedAt = deps.Now()

	if err := cert.Validate(); err != nil {
		return coordinator.Certification{}, err
	}
	if err := deps.CoordinatorStore.Save(ctx, cert); err != nil {
		return coordinator.Certification{}, err
	}

	slog.Info("coordinator_event", "event", "certification_recorded", "coordinator_id", cert.CoordinatorID, "expires", cert.CertificationExpires.Format("2006-01-02"))
	return cert, nil
}

// VerifyCoordinatorCertificationInput carries the admin attestation.
type VerifyCoordinatorCertificationInput struct {
	CoordinatorID string
	ActorID       string
	ActorEmail    string
}

// VerifyCoordinatorCertificationDeps holds dependencies for verification.
type VerifyCoordinatorCertificationDeps struct {
	CoordinatorStore CoordinatorStore
	AuditStore       AuditStore
	Now              func() time.Time
}

// ExecuteVerifyCoordinatorCertification records an admin's manual
// attestation that the certification details were checked against the
// BACB registry. Verification does not extend expiry: an expired
// certification stays blocked regardless.
// POST: Verified flag set and audited
func ExecuteVerifyCoordinatorCertification(ctx context.Context, input VerifyCoordinatorCertificationInput, deps VerifyCoordinatorCertificationDeps) (coordinator.Certification, error) {
	cert, err := deps.CoordinatorStore.GetByCoordinatorID(ctx, input.CoordinatorID)
	if err != nil {
		return coordinator.Certification{}, ErrCoordinatorUnknown
	}

	now := deps.Now()
	cert.Verified = true
	cert.VerifiedAt = now
	cert.UpdatedAt = now
	if err := deps.CoordinatorStore.Save(ctx, cert); err != nil {
		return coordinator.Certification{}, err
	}

	entry := audit.NewEvent(input.ActorID, input.ActorEmail, audit.CategoryCoordinator, audit.ActionVerify).
		WithResource("coordinator_certification", cert.ID).
		WithDescription(fmt.Sprintf("certification %s verified for %s", cert.CertificationNumber, cert.CoordinatorName))
	if err := deps.AuditStore.Save(ctx, entry); err != nil {
		slog.Error("coordinator_event", "event", "audit_write_failed", "coordinator_id", cert.CoordinatorID, "error", err.Error())
	}

	slog.Info("coordinator_event", "event", "certification_verified", "coordinator_id", cert.CoordinatorID)
	return cert, nil
}

// ToggleCoordinatorOperationsInput carries the admin capability grants.
type ToggleCoordinatorOperationsInput struct {
	CoordinatorID        string
	CanPublishEvents     bool
	CanIssueCertificates bool
	ActorID              string
	ActorEmail           string
}

// ToggleCoordinatorOperationsDeps holds dependencies for the toggle.
type ToggleCoordinatorOperationsDeps struct {
	CoordinatorStore CoordinatorStore
	AuditStore       AuditStore
	Now              func() time.Time
}

// ExecuteToggleCoordinatorOperations sets the stored capability grants.
// Only the stored flags change; effective capabilities still apply the
// expiry override at every gate evaluation, so granting a capability to
// an expired coordinator has no effect until they recertify.
// POST: Stored flags updated and audited
func ExecuteToggleCoordinatorOperations(ctx context.Context, input ToggleCoordinatorOperationsInput, deps ToggleCoordinatorOperationsDeps) (coordinator.Certification, error) {
	cert, err := deps.CoordinatorStore.GetByCoordinatorID(ctx, input.CoordinatorID)
	if err != nil {
		return coordinator.Certification{}, ErrCoordinatorUnknown
	}

	cert.CanPublishEvents = input.CanPublishEvents
	cert.CanIssueCertificates = input.CanIssueCertificates
	cert.UpdatedAt = deps.Now()
	if err := deps.CoordinatorStore.Save(ctx, cert); err != nil {
		return coordinator.Certification{}, err
	}

	entry := audit.NewEvent(input.ActorID, input.ActorEmail, audit.CategoryCoordinator, audit.ActionToggle).
		WithResource("coordinator_certification", cert.ID).
		WithDescription(fmt.Sprintf("operations set: publish=%t issue=%t", cert.CanPublishEvents, cert.CanIssueCertificates))
	if err := deps.AuditStore.Save(ctx, entry); err != nil {
		slog.Error("coordinator_event", "event", "audit_write_failed", "coordinator_id", cert.CoordinatorID, "error", err.Error())
	}

	slog.Info("coordinator_event", "event", "operations_toggled", "coordinator_id", cert.CoordinatorID, "publish", cert.CanPublishEvents, "issue", cert.CanIssueCertificates)
	return cert, nil
}
