package tasks

import "colonyd/internal/sim/worldview"

// MovementProfile names a terrain-cost assumption set for path estimation.
type MovementProfile int

const (
	// ProfileDefault weights swamp heavier than plains.
	ProfileDefault MovementProfile = iota
	// ProfileRoadsOneToOne treats plains and swamp as uniform cost, for
	// bodies with enough move parts that terrain does not slow them.
	ProfileRoadsOneToOne
)

// MovementGoal is a deferred request to relocate an agent. It is produced
// during the act phase and consumed by the movement phase of the same
// tick; it is never persisted.
type MovementGoal struct {
	Pos         worldview.Position
	Range       int
	Profile     MovementProfile
	AvoidAgents bool
}

type ResultKind int

const (
	// Complete: remove the front entry and release its reservation.
	Complete ResultKind = iota
	// StillWorking: leave the queue untouched; re-execute next tick.
	StillWorking
	// RequestMove: leave the queue untouched and buffer a movement goal.
	RequestMove
	// AddTaskToFront: keep the front entry, insert a new one before it.
	AddTaskToFront
	// CompleteAddTaskToFront: complete the front entry and insert a new
	// one at the front (interrupt-and-resume).
	CompleteAddTaskToFront
	// CompleteAddTaskToBack: complete the front entry and queue a
	// follow-up at the back.
	CompleteAddTaskToBack
	// DestroyAgent: remove the agent entirely, releasing every queued
	// reservation.
	DestroyAgent
)

// Result is the outcome of executing one queue entry for one tick.
type Result struct {
	Kind ResultKind
	Goal MovementGoal // RequestMove
	Next Entry        // AddTaskToFront / CompleteAdd* variants
}

func Completed() Result {
	return Result{Kind: Complete}
}

func Working() Result {
	return Result{Kind: StillWorking}
}

func MoveMeTo(goal MovementGoal) Result {
	return Result{Kind: RequestMove, Goal: goal}
}

func PushFront(next Entry) Result {
	return Result{Kind: AddTaskToFront, Next: next}
}

func CompletePushFront(next Entry) Result {
	return Result{Kind: CompleteAddTaskToFront, Next: next}
}

func CompletePushBack(next Entry) Result {
	return Result{Kind: CompleteAddTaskToBack, Next: next}
}

func Destroyed() Result {
	return Result{Kind: DestroyAgent}
}
