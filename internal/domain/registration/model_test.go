package registration_test

import (
	"strings"
	"testing"

	"aceplatform/internal/domain/event"
	"aceplatform/internal/domain/registration"
)

// TestRegistration_Validate tests validation of Registration fields.
func TestRegistration_Validate(t *testing.T) {
	tests := []struct {
		name    string
		reg     registration.Registration
		wantErr bool
	}{
		{
			name: "valid registration",
			reg: registration.Registration{
				ID: "r1", EventID: "e1", ParticipantName: "Dana Reyes",
				ParticipantEmail: "dana@example.com", Credential: registration.CredentialBCBA,
				Status: registration.StatusConfirmed,
			},
			wantErr: false,
		},
		{
			name: "missing event",
			reg: registration.Registration{
				ID: "r2", ParticipantName: "Dana Reyes",
				ParticipantEmail: "dana@example.com", Credential: registration.CredentialBCBA,
				Status: registration.StatusPending,
			},
			wantErr: true,
		},
		{
			name: "bad email",
			reg: registration.Registration{
				ID: "r3", EventID: "e1", ParticipantName: "Dana Reyes",
				ParticipantEmail: "not-an-email", Credential: registration.CredentialRBT,
				Status: registration.StatusPending,
			},
			wantErr: true,
		},
		{
			name: "unknown credential",
			reg: registration.Registration{
				ID: "r4", EventID: "e1", ParticipantName: "Dana Reyes",
				ParticipantEmail: "dana@example.com", Credential: "phd",
				Status: registration.StatusPending,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Registration.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestCredentialAllowedFor tests the credential gating rule:
// pd events admit only rbt; ce events admit bcba/bcaba and never rbt.
func TestCredentialAllowedFor(t *testing.T) {
	tests := []struct {
		credential registration.Credential
		eventType  event.Type
		want       bool
	}{
		{registration.CredentialRBT, event.TypePD, true},
		{registration.CredentialBCBA, event.TypePD, false},
		{registration.CredentialBCaBA, event.TypePD, false},
		{registration.CredentialBCBA, event.TypeCE, true},
		{registration.CredentialBCaBA, event.TypeCE, true},
		{registration.CredentialRBT, event.TypeCE, false},
	}

	for _, tt := range tests {
		got := registration.CredentialAllowedFor(tt.credential, tt.eventType)
		if got != tt.want {
			t.Errorf("CredentialAllowedFor(%q, %q) = %v, want %v", tt.credential, tt.eventType, got, tt.want)
		}
	}
}

// TestNewConfirmationCode tests code length and alphabet.
func TestNewConfirmationCode(t *testing.T) {
	const alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		code := registration.NewConfirmationCode()
		if len(code) != 8 {
			t.Fatalf("code length = %d, want 8", len(code))
		}
		for _, c := range code {
			if !strings.ContainsRune(alphabet, c) {
				t.Fatalf("code %q contains character %q outside the alphabet", code, c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("expected distinct codes across 50 generations")
	}
}
