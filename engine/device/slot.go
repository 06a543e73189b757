package device

import "fmt"

// SlotState is the lifecycle state of one frame slot.
type SlotState int

const (
	// SlotIdle slots have no work in flight and may begin recording.
	SlotIdle SlotState = iota
	// SlotRecording slots have an open command buffer.
	SlotRecording
	// SlotSubmitted slots have work in flight until their fence signals.
	SlotSubmitted
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotRecording:
		return "recording"
	case SlotSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("SlotState(%d)", int(s))
	}
}

// frameSlot is one of the N frames in flight.
type frameSlot struct {
	index     int
	state     SlotState
	cmd       CommandBuffer
	acquire   Semaphore
	release   Semaphore
	fence     Fence
	graveyard graveyard
}

// transition moves the slot to next, panicking on any edge outside
// Idle -> Recording -> Submitted -> Idle.
func (s *frameSlot) transition(next SlotState) {
	legal := (s.state == SlotIdle && next == SlotRecording) ||
		(s.state == SlotRecording && next == SlotSubmitted) ||
		(s.state == SlotSubmitted && next == SlotIdle)
	if !legal {
		panic(fmt.Sprintf("device: illegal frame slot %d transition %s -> %s", s.index, s.state, next))
	}
	s.state = next
}
