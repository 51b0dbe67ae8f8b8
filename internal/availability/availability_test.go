package availability_test

import (
	"testing"
	"time"

	"github.com/expohall/expohall-api/internal/availability"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("bad test date %q", s)
	}
	return d
}

func at(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		t.Fatalf("bad test instant %q", s)
	}
	return d
}

func TestIsAvailable(t *testing.T) {
	end := day(t, "2025-12-03")

	tests := []struct {
		name string
		w    availability.Window
		at   string
		want bool
	}{
		{
			name: "before start date",
			w:    availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end},
			at:   "2025-11-30 12:00",
			want: false,
		},
		{
			name: "after end date",
			w:    availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end},
			at:   "2025-12-04 12:00",
			want: false,
		},
		{
			name: "no end date means single day",
			w:    availability.Window{StartDate: day(t, "2025-12-01")},
			at:   "2025-12-02 12:00",
			want: false,
		},
		{
			name: "within dates and no times is all day",
			w:    availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end},
			at:   "2025-12-02 03:00",
			want: true,
		},
		{
			name: "missing one clock bound is all day",
			w:    availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end, StartTime: "10:00"},
			at:   "2025-12-02 03:00",
			want: true,
		},
		{
			name: "inside opening hours",
			w:    availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end, StartTime: "10:00", EndTime: "18:00"},
			at:   "2025-12-02 12:00",
			want: true,
		},
		{
			name: "boundary minutes count",
			w:    availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end, StartTime: "10:00", EndTime: "18:00"},
			at:   "2025-12-02 18:00",
			want: true,
		},
		{
			name: "outside opening hours",
			w:    availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end, StartTime: "10:00", EndTime: "18:00"},
			at:   "2025-12-02 19:00",
			want: false,
		},
		{
			name: "overnight window before midnight",
			w:    availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end, StartTime: "22:00", EndTime: "02:00"},
			at:   "2025-12-02 23:00",
			want: true,
		},
		{
			name: "overnight window after midnight",
			w:    availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end, StartTime: "22:00", EndTime: "02:00"},
			at:   "2025-12-02 01:00",
			want: true,
		},
		{
			name: "overnight window midday gap",
			w:    availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end, StartTime: "22:00", EndTime: "02:00"},
			at:   "2025-12-02 12:00",
			want: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := availability.IsAvailable(tc.w, at(t, tc.at)); got != tc.want {
				t.Errorf("IsAvailable at %s = %v, want %v", tc.at, got, tc.want)
			}
		})
	}
}

func TestComputeSnapshot(t *testing.T) {
	end := day(t, "2025-12-03")

	t.Run("full hours", func(t *testing.T) {
		w := availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end, StartTime: "10:00", EndTime: "18:00"}
		snap := availability.ComputeSnapshot(w, at(t, "2025-11-28 12:00"))
		if snap.IsAvailableNow {
			t.Error("event should not be available before its start date")
		}
		if snap.AvailableHours != "10:00 - 18:00" {
			t.Errorf("AvailableHours = %q", snap.AvailableHours)
		}
		if snap.DaysUntilStart != 3 {
			t.Errorf("DaysUntilStart = %d, want 3", snap.DaysUntilStart)
		}
	})

	t.Run("half open hours", func(t *testing.T) {
		w := availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end, StartTime: "10:00"}
		snap := availability.ComputeSnapshot(w, at(t, "2025-12-01 12:00"))
		if snap.AvailableHours != "10:00 - --:--" {
			t.Errorf("AvailableHours = %q", snap.AvailableHours)
		}
	})

	t.Run("no time information", func(t *testing.T) {
		w := availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end}
		snap := availability.ComputeSnapshot(w, at(t, "2025-12-02 12:00"))
		if snap.AvailableHours != availability.NoTimeInfo {
			t.Errorf("AvailableHours = %q", snap.AvailableHours)
		}
		if !snap.IsAvailableNow {
			t.Error("event with no hours should be open all day within its dates")
		}
	})

	t.Run("started events count down past zero", func(t *testing.T) {
		w := availability.Window{StartDate: day(t, "2025-12-01"), EndDate: &end}
		snap := availability.ComputeSnapshot(w, at(t, "2025-12-03 09:00"))
		if snap.DaysUntilStart != -2 {
			t.Errorf("DaysUntilStart = %d, want -2", snap.DaysUntilStart)
		}
	})
}
