package engine

import (
	"fmt"
	"time"
)

// TimeControl is how much thinking time a search may use. It is one of
// Infinite, MoveTime, Incremental or Tournament.
type TimeControl interface {
	isTimeControl()
	fmt.Stringer
}

// Infinite searches until stopped.
type Infinite struct{}

// MoveTime spends exactly D on the move.
type MoveTime struct {
	D time.Duration
}

// Incremental is sudden death with an optional per-move increment.
type Incremental struct {
	Remaining time.Duration
	Increment time.Duration
}

// Tournament has MovesToGo moves left until the next time control.
type Tournament struct {
	Remaining time.Duration
	Increment time.Duration
	MovesToGo int
}

func (Infinite) isTimeControl()    {}
func (MoveTime) isTimeControl()    {}
func (Incremental) isTimeControl() {}
func (Tournament) isTimeControl()  {}

func (Infinite) String() string { return "infinite" }
func (c MoveTime) String() string {
	return fmt.Sprintf("movetime %v", c.D)
}
func (c Incremental) String() string {
	return fmt.Sprintf("incremental %v+%v", c.Remaining, c.Increment)
}
func (c Tournament) String() string {
	return fmt.Sprintf("tournament %v+%v/%d", c.Remaining, c.Increment, c.MovesToGo)
}

// Limits bounds one search. Zero Depth and Nodes mean no limit, and a nil
// Control means no clock at all.
type Limits struct {
	Depth int
	// Nodes is approximate. Each worker polls the shared count every
	// 2048 nodes, so a search on N threads can overrun by about N*2048.
	Nodes        uint64
	Control      TimeControl
	MoveOverhead time.Duration
}

// timePlan holds the iteration budget (soft) and the hard deadline. Zero
// means unbounded.
type timePlan struct {
	soft time.Duration
	hard time.Duration
}

const (
	minThinkTime = time.Millisecond
	movesHorizon = 35
)

// planTime turns limits into a time plan. ply is the game ply of the root,
// used to save a little time in the opening.
func planTime(limits Limits, ply int) timePlan {
	overhead := limits.MoveOverhead
	var plan timePlan

	switch c := limits.Control.(type) {
	case nil, Infinite:
		return timePlan{}

	case MoveTime:
		d := max(c.D-overhead, minThinkTime)
		return timePlan{soft: d, hard: d}

	case Incremental:
		ideal := c.Remaining/movesHorizon + c.Increment/2
		plan.soft = ideal * 7 / 10
		plan.hard = min(ideal*21/10, c.Remaining/2)

	case Tournament:
		ideal := c.Remaining/time.Duration(max(c.MovesToGo, 1)) + c.Increment/2
		plan.soft = ideal * 7 / 10
		plan.hard = min(ideal*2, c.Remaining*3/4)
	}

	if ply < 16 {
		plan.soft = plan.soft * 85 / 100
	}
	plan.soft = max(plan.soft-overhead, minThinkTime)
	plan.hard = max(plan.hard-overhead, minThinkTime)
	plan.soft = min(plan.soft, plan.hard)
	return plan
}
