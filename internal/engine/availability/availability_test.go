package availability

import (
	"errors"
	"testing"

	"github.com/cogsched/cogsched/internal/domain"
)

func profileWith(commitments, breaks []string) domain.Profile {
	p := domain.DefaultProfile()
	p.DailyCommitments = commitments
	p.BreakPreferences = breaks
	return p
}

func TestBuild_OpenDay(t *testing.T) {
	day, err := Build("09:00", "22:00", profileWith(nil, nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(day.Free) != 1 {
		t.Fatalf("expected 1 free interval, got %d", len(day.Free))
	}
	if day.Free[0].Start != 540 || day.Free[0].End != 1320 {
		t.Errorf("free = %v, want [540,1320]", day.Free[0])
	}
}

func TestBuild_SubtractsCommitmentsAndBreaks(t *testing.T) {
	day, err := Build("09:00", "18:00", profileWith(
		[]string{"10:00-11:00 Lecture"},
		[]string{"13:00-14:00"},
	))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []domain.Interval{
		{Start: 540, End: 600},
		{Start: 660, End: 780},
		{Start: 840, End: 1080},
	}
	if len(day.Free) != len(want) {
		t.Fatalf("free = %v, want %v", day.Free, want)
	}
	for i := range want {
		if day.Free[i].Start != want[i].Start || day.Free[i].End != want[i].End {
			t.Errorf("free[%d] = %v, want %v", i, day.Free[i], want[i])
		}
	}
	if len(day.Commitments) != 1 || day.Commitments[0].Label != "Lecture" {
		t.Errorf("commitments = %v", day.Commitments)
	}
	if len(day.Breaks) != 1 || day.Breaks[0].Start != 780 {
		t.Errorf("breaks = %v", day.Breaks)
	}
}

func TestBuild_CommitmentOutsideWindowIgnored(t *testing.T) {
	day, err := Build("09:00", "12:00", profileWith([]string{"14:00-15:00 Seminar"}, nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(day.Commitments) != 0 {
		t.Errorf("out-of-window commitment should be dropped, got %v", day.Commitments)
	}
	if len(day.Free) != 1 || day.Free[0].Duration() != 180 {
		t.Errorf("free = %v", day.Free)
	}
}

func TestBuild_CommitmentClampedToWindow(t *testing.T) {
	day, err := Build("09:00", "12:00", profileWith([]string{"08:00-10:00 Standup"}, nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(day.Commitments) != 1 || day.Commitments[0].Start != 540 || day.Commitments[0].End != 600 {
		t.Errorf("commitments = %v, want [540,600]", day.Commitments)
	}
}

func TestBuild_OverlappingCommitmentsMerged_LastLabelWins(t *testing.T) {
	day, err := Build("09:00", "18:00", profileWith(
		[]string{"10:00-11:30 Algorithms", "11:00-12:00 Databases"}, nil))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(day.Commitments) != 1 {
		t.Fatalf("commitments = %v, want 1 merged", day.Commitments)
	}
	c := day.Commitments[0]
	if c.Start != 600 || c.End != 720 || c.Label != "Databases" {
		t.Errorf("merged commitment = %+v", c)
	}
}

func TestBuild_BreakOverlappingCommitmentTrimmed(t *testing.T) {
	day, err := Build("09:00", "18:00", profileWith(
		[]string{"12:00-13:00 Meeting"},
		[]string{"12:30-14:00"},
	))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(day.Breaks) != 1 || day.Breaks[0].Start != 780 || day.Breaks[0].End != 840 {
		t.Errorf("breaks = %v, want [[780,840]]", day.Breaks)
	}
}

func TestBuild_InvalidWindow(t *testing.T) {
	for _, tt := range [][2]string{{"22:00", "09:00"}, {"09:00", "09:00"}, {"9am", "17:00"}} {
		if _, err := Build(tt[0], tt[1], profileWith(nil, nil)); !errors.Is(err, domain.ErrInvalidWindow) {
			t.Errorf("Build(%s, %s): expected ErrInvalidWindow, got %v", tt[0], tt[1], err)
		}
	}
}

func TestBuild_NoFreeTime(t *testing.T) {
	_, err := Build("09:00", "11:00", profileWith([]string{"08:00-12:00 Conference"}, nil))
	if !errors.Is(err, domain.ErrNoFreeTime) {
		t.Errorf("expected ErrNoFreeTime, got %v", err)
	}
}

func TestBuild_MalformedCommitmentNamed(t *testing.T) {
	_, err := Build("09:00", "18:00", profileWith([]string{"lunchtime"}, nil))
	if err == nil {
		t.Fatal("malformed commitment should fail")
	}
	if !errors.Is(err, domain.ErrInvalidWindow) {
		t.Errorf("expected wrapped ErrInvalidWindow, got %v", err)
	}
}
