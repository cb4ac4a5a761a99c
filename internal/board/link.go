package board

import (
	"context"
	"fmt"
)

// LinkState is the state of the two-click link gesture. It is one of
// LinkOff, AwaitingBlocker or AwaitingDependent.
type LinkState interface {
	linkState()
	String() string
}

// LinkOff means clicks go to the host's focus handler.
type LinkOff struct{}

// AwaitingBlocker waits for the first click, which picks the blocker.
type AwaitingBlocker struct{}

// AwaitingDependent holds the chosen blocker and waits for the dependent.
type AwaitingDependent struct {
	SourceID string
}

func (LinkOff) linkState()           {}
func (AwaitingBlocker) linkState()   {}
func (AwaitingDependent) linkState() {}

func (LinkOff) String() string         { return "off" }
func (AwaitingBlocker) String() string { return "awaiting blocker" }
func (s AwaitingDependent) String() string {
	return fmt.Sprintf("awaiting dependent of %s", s.SourceID)
}

// LinkOutcome describes what a click did while routed through link mode.
type LinkOutcome int

// LinkOutcomeForward and related constants enumerate click results.
const (
	// LinkOutcomeForward means link mode is off; the click belongs to focus.
	LinkOutcomeForward LinkOutcome = iota
	LinkOutcomeSourceSelected
	LinkOutcomeIgnored
	LinkOutcomeAlreadyLinked
	LinkOutcomeRejectedCycle
	LinkOutcomeLinked
)

// String returns a short label for status lines and logs.
func (o LinkOutcome) String() string {
	switch o {
	case LinkOutcomeForward:
		return "forward"
	case LinkOutcomeSourceSelected:
		return "blocker selected"
	case LinkOutcomeIgnored:
		return "ignored"
	case LinkOutcomeAlreadyLinked:
		return "already linked"
	case LinkOutcomeRejectedCycle:
		return "rejected: would create cycle"
	case LinkOutcomeLinked:
		return "linked"
	default:
		return "unknown"
	}
}

// LinkController drives the blocker-then-dependent link gesture.
type LinkController struct {
	intents      Intents
	rejectCycles bool
	state        LinkState
}

// NewLinkController builds a controller in LinkOff. With rejectCycles set,
// edges that would close a dependency cycle are refused.
func NewLinkController(intents Intents, rejectCycles bool) *LinkController {
	return &LinkController{
		intents:      intents,
		rejectCycles: rejectCycles,
		state:        LinkOff{},
	}
}

// State returns the current gesture state.
func (l *LinkController) State() LinkState {
	return l.state
}

// Active reports whether link mode is on.
func (l *LinkController) Active() bool {
	_, off := l.state.(LinkOff)
	return !off
}

// PendingBlocker returns the selected blocker while awaiting the dependent.
func (l *LinkController) PendingBlocker() (string, bool) {
	s, ok := l.state.(AwaitingDependent)
	if !ok {
		return "", false
	}
	return s.SourceID, true
}

// Toggle turns link mode on from LinkOff and off from any other state.
func (l *LinkController) Toggle() {
	if l.Active() {
		l.state = LinkOff{}
		return
	}
	l.state = AwaitingBlocker{}
}

// Reset leaves link mode and drops any pending selection.
func (l *LinkController) Reset() {
	l.state = LinkOff{}
}

// Click feeds one task click through the gesture. c is the current
// collection; it is consulted for idempotency and cycle checks.
func (l *LinkController) Click(ctx context.Context, c *Collection, taskID string) (LinkOutcome, error) {
	switch s := l.state.(type) {
	case AwaitingBlocker:
		l.state = AwaitingDependent{SourceID: taskID}
		return LinkOutcomeSourceSelected, nil
	case AwaitingDependent:
		if taskID == s.SourceID {
			return LinkOutcomeIgnored, nil
		}
		if dependent, ok := c.Get(taskID); ok && dependent.DependsOn(s.SourceID) {
			l.state = LinkOff{}
			return LinkOutcomeAlreadyLinked, nil
		}
		if l.rejectCycles && WouldCreateCycle(c, taskID, s.SourceID) {
			return LinkOutcomeRejectedCycle, nil
		}
		if err := l.intents.LinkTasks(ctx, taskID, s.SourceID); err != nil {
			return LinkOutcomeIgnored, fmt.Errorf("link %s blocked by %s: %w", taskID, s.SourceID, err)
		}
		l.state = LinkOff{}
		return LinkOutcomeLinked, nil
	default:
		return LinkOutcomeForward, nil
	}
}
