package attendance_test

import (
	"testing"
	"time"

	"aceplatform/internal/domain/attendance"
)

var sessionStart = time.Date(2025, 5, 1, 16, 0, 0, 0, time.UTC)

func closedRecord(offsetMin, durationMin int) attendance.Record {
	in := sessionStart.Add(time.Duration(offsetMin) * time.Minute)
	return attendance.Record{
		ID: "a1", EventID: "e1", ParticipantID: "p1",
		CheckInTime:  in,
		CheckOutTime: in.Add(time.Duration(durationMin) * time.Minute),
	}
}

// TestRecord_Validate tests raw record validation.
func TestRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rec     attendance.Record
		wantErr error
	}{
		{
			name:    "valid closed record",
			rec:     closedRecord(0, 60),
			wantErr: nil,
		},
		{
			name: "valid open record",
			rec: attendance.Record{
				ID: "a2", EventID: "e1", ParticipantID: "p1", CheckInTime: sessionStart,
			},
			wantErr: nil,
		},
		{
			name:    "missing participant",
			rec:     attendance.Record{ID: "a3", EventID: "e1", CheckInTime: sessionStart},
			wantErr: attendance.ErrMissingPartyOrRef,
		},
		{
			name:    "missing check-in",
			rec:     attendance.Record{ID: "a4", EventID: "e1", ParticipantID: "p1"},
			wantErr: attendance.ErrMissingCheckIn,
		},
		{
			name: "check-out before check-in",
			rec: attendance.Record{
				ID: "a5", EventID: "e1", ParticipantID: "p1",
				CheckInTime: sessionStart, CheckOutTime: sessionStart.Add(-time.Minute),
			},
			wantErr: attendance.ErrCheckOutBeforeIn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.rec.Validate(); err != tt.wantErr {
				t.Errorf("Record.Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// TestAggregate_Statuses tests status derivation for each branch:
// absent, checked_in, present, partial.
func TestAggregate_Statuses(t *testing.T) {
	const scheduled = 120

	open := attendance.Record{ID: "o1", EventID: "e1", ParticipantID: "p1", CheckInTime: sessionStart}

	tests := []struct {
		name        string
		records     []attendance.Record
		wantStatus  attendance.Status
		wantPct     int
		wantMinutes int
	}{
		{"no records", nil, attendance.StatusAbsent, 0, 0},
		{"open pair only", []attendance.Record{open}, attendance.StatusCheckedIn, 0, 0},
		{"full attendance", []attendance.Record{closedRecord(0, 120)}, attendance.StatusPresent, 100, 120},
		{"at the 80 percent threshold", []attendance.Record{closedRecord(0, 96)}, attendance.StatusPresent, 80, 96},
		{"below threshold", []attendance.Record{closedRecord(0, 60)}, attendance.StatusPartial, 50, 60},
		{"closed pairs plus an open pair", []attendance.Record{closedRecord(0, 60), open}, attendance.StatusCheckedIn, 50, 60},
		{"overstay capped at 100", []attendance.Record{closedRecord(0, 150)}, attendance.StatusPresent, 100, 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := attendance.Aggregate(tt.records, scheduled)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", got.Status, tt.wantStatus)
			}
			if got.Percentage != tt.wantPct {
				t.Errorf("percentage = %d, want %d", got.Percentage, tt.wantPct)
			}
			if got.DurationMinutes != tt.wantMinutes {
				t.Errorf("duration = %d, want %d", got.DurationMinutes, tt.wantMinutes)
			}
		})
	}
}

// TestAggregate_Monotonic tests that adding non-overlapping closed pairs
// never decreases the percentage.
func TestAggregate_Monotonic(t *testing.T) {
	const scheduled = 180
	var records []attendance.Record

	prev := 0
	for i := 0; i < 6; i++ {
		records = append(records, closedRecord(i*30, 25))
		got := attendance.Aggregate(records, scheduled)
		if got.Percentage < prev {
			t.Fatalf("percentage decreased from %d to %d after adding pair %d", prev, got.Percentage, i+1)
		}
		prev = got.Percentage
	}
}

// TestSummary_MeetsVerifyThreshold tests the bulk-verify floor.
func TestSummary_MeetsVerifyThreshold(t *testing.T) {
	if (attendance.Summary{Percentage: 79}).MeetsVerifyThreshold() {
		t.Error("79 percent should not meet the threshold")
	}
	if !(attendance.Summary{Percentage: 80}).MeetsVerifyThreshold() {
		t.Error("80 percent should meet the threshold")
	}
}
