package engine

import (
	"testing"
	"time"
)

func TestPlanTime(t *testing.T) {
	tests := []struct {
		name   string
		limits Limits
		ply    int
		want   timePlan
	}{
		{
			name:   "no control",
			limits: Limits{Depth: 8},
			want:   timePlan{},
		},
		{
			name:   "infinite",
			limits: Limits{Control: Infinite{}, MoveOverhead: 50 * time.Millisecond},
			want:   timePlan{},
		},
		{
			name:   "movetime minus overhead",
			limits: Limits{Control: MoveTime{D: 100 * time.Millisecond}, MoveOverhead: 30 * time.Millisecond},
			want:   timePlan{soft: 70 * time.Millisecond, hard: 70 * time.Millisecond},
		},
		{
			name:   "movetime below overhead",
			limits: Limits{Control: MoveTime{D: 10 * time.Millisecond}, MoveOverhead: 30 * time.Millisecond},
			want:   timePlan{soft: time.Millisecond, hard: time.Millisecond},
		},
		{
			name:   "incremental middlegame",
			limits: Limits{Control: Incremental{Remaining: 35 * time.Second}},
			ply:    40,
			want:   timePlan{soft: 700 * time.Millisecond, hard: 2100 * time.Millisecond},
		},
		{
			name:   "incremental opening",
			limits: Limits{Control: Incremental{Remaining: 35 * time.Second}},
			ply:    0,
			want:   timePlan{soft: 595 * time.Millisecond, hard: 2100 * time.Millisecond},
		},
		{
			name:   "incremental with overhead",
			limits: Limits{Control: Incremental{Remaining: 35 * time.Second}, MoveOverhead: 100 * time.Millisecond},
			ply:    40,
			want:   timePlan{soft: 600 * time.Millisecond, hard: 2 * time.Second},
		},
		{
			name:   "incremental counts half the increment",
			limits: Limits{Control: Incremental{Remaining: 35 * time.Second, Increment: 2 * time.Second}},
			ply:    40,
			want:   timePlan{soft: 1400 * time.Millisecond, hard: 4200 * time.Millisecond},
		},
		{
			name:   "tournament",
			limits: Limits{Control: Tournament{Remaining: 40 * time.Second, MovesToGo: 40}},
			ply:    40,
			want:   timePlan{soft: 700 * time.Millisecond, hard: 2 * time.Second},
		},
		{
			name:   "tournament last move before control",
			limits: Limits{Control: Tournament{Remaining: 10 * time.Second, MovesToGo: 1}},
			ply:    40,
			want:   timePlan{soft: 7 * time.Second, hard: 7500 * time.Millisecond},
		},
		{
			name:   "tournament zero moves to go",
			limits: Limits{Control: Tournament{Remaining: 10 * time.Second}},
			ply:    40,
			want:   timePlan{soft: 7 * time.Second, hard: 7500 * time.Millisecond},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := planTime(tc.limits, tc.ply); got != tc.want {
				t.Errorf("planTime = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestPlanTimeNeverExceedsClock(t *testing.T) {
	for _, remaining := range []time.Duration{50 * time.Millisecond, time.Second, 10 * time.Second, 5 * time.Minute} {
		for _, c := range []TimeControl{
			Incremental{Remaining: remaining},
			Incremental{Remaining: remaining, Increment: remaining / 10},
			Tournament{Remaining: remaining, MovesToGo: 3},
		} {
			plan := planTime(Limits{Control: c, MoveOverhead: 10 * time.Millisecond}, 30)
			if plan.soft > plan.hard {
				t.Errorf("%v: soft %v > hard %v", c, plan.soft, plan.hard)
			}
			if plan.hard > remaining*3/4 && plan.hard > minThinkTime {
				t.Errorf("%v: hard %v exceeds three quarters of the clock", c, plan.hard)
			}
			if plan.soft < minThinkTime {
				t.Errorf("%v: soft %v below minimum", c, plan.soft)
			}
		}
	}
}

func TestTimeControlString(t *testing.T) {
	tests := []struct {
		c    TimeControl
		want string
	}{
		{Infinite{}, "infinite"},
		{MoveTime{D: 250 * time.Millisecond}, "movetime 250ms"},
		{Incremental{Remaining: time.Minute, Increment: time.Second}, "incremental 1m0s+1s"},
		{Tournament{Remaining: 90 * time.Second, MovesToGo: 20}, "tournament 1m30s+0s/20"},
	}
	for _, tc := range tests {
		if got := tc.c.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}
