package types

import "fmt"

// Slot is a position in the execution timeline: a period counter plus the
// thread the slot belongs to. Slots order first by period, then by thread.
type Slot struct {
	Period uint64 `json:"period" yaml:"period"`
	Thread uint8  `json:"thread" yaml:"thread"`
}

// NewSlot builds a slot from a period and thread.
func NewSlot(period uint64, thread uint8) Slot {
	return Slot{Period: period, Thread: thread}
}

// Compare orders slots by (period, thread). It returns -1, 0 or 1.
func (s Slot) Compare(other Slot) int {
	switch {
	case s.Period < other.Period:
		return -1
	case s.Period > other.Period:
		return 1
	case s.Thread < other.Thread:
		return -1
	case s.Thread > other.Thread:
		return 1
	default:
		return 0
	}
}

// Less reports whether s orders strictly before other.
func (s Slot) Less(other Slot) bool {
	return s.Compare(other) < 0
}

func (s Slot) String() string {
	return fmt.Sprintf("(period: %d, thread: %d)", s.Period, s.Thread)
}
