package deque

// End identifies which end of the deque an operation touched.
type End int

const (
	// Front is the head end of the deque
	Front End = iota
	// Back is the tail end of the deque
	Back
)

// String returns the string representation of End
func (e End) String() string {
	switch e {
	case Front:
		return "front"
	case Back:
		return "back"
	default:
		return "unknown"
	}
}

// EventSink receives synchronous notifications about deque mutations.
// Implementations must be concurrency-safe and fast: callbacks run on the
// mutating goroutine, outside the deque lock, and must not call back into
// the deque.
type EventSink interface {
	// OnPush is called after an element was inserted at end
	OnPush(end End)

	// OnPop is called after an element was removed from end
	OnPop(end End)

	// OnClose is called once when the deque transitions to closed
	OnClose()

	// OnClear is called after Clear dropped removed elements
	OnClear(removed int)
}

// NopSink is an EventSink that ignores all events.
type NopSink struct{}

func (NopSink) OnPush(End)  {}
func (NopSink) OnPop(End)   {}
func (NopSink) OnClose()    {}
func (NopSink) OnClear(int) {}
