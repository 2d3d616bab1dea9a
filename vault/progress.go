package vault

// EventKind identifies the step a progress event reports.
type EventKind uint8

const (
	EventEncrypt EventKind = iota
	EventDecrypt
	EventWrite
	EventRead
)

func (k EventKind) String() string {
	switch k {
	case EventEncrypt:
		return "encrypt"
	case EventDecrypt:
		return "decrypt"
	case EventWrite:
		return "write"
	case EventRead:
		return "read"
	default:
		return "unknown"
	}
}

// Event is emitted once per record for each step of a bulk operation.
// Index is zero based.
type Event struct {
	Kind    EventKind
	Service string
	Index   int
	Total   int
}

// Progress receives events from Save and Load. Rendering is entirely up to
// the implementation.
type Progress interface {
	OnProgress(Event)
}

// ProgressFunc adapts a function to Progress.
type ProgressFunc func(Event)

func (f ProgressFunc) OnProgress(e Event) { f(e) }

type noProgress struct{}

func (noProgress) OnProgress(Event) {}
