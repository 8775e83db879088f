package client

// An Event identifies the event type when installing or running a
// Handler. Install event handlers in a Client to observe request
// executions.
type Event int

const (
	// BeforeExecution identifies the event that occurs before the first
	// hop of a request is sent.
	//
	// When Client fires BeforeExecution, only the execution's descriptor,
	// chain and start time are set.
	BeforeExecution Event = iota
	// BeforeHop identifies the event that occurs before each individual
	// exchange, including the first one and every redirect hop.
	//
	// The execution's Request field holds the descriptor that will be sent
	// to the chain's current URL.
	BeforeHop
	// AfterHop identifies the event that occurs after each exchange,
	// whether it produced a response or an error.
	//
	// When Client fires AfterHop exactly one of the execution's Raw and
	// Err fields is set.
	AfterHop
	// AfterRedirect identifies the event that occurs after the client has
	// decided to follow a redirect and moved the chain to the new URL.
	AfterRedirect
	// AfterDecode identifies the event that occurs after the terminal
	// response body was decoded and the result built.
	AfterDecode
	// AfterExecution identifies the event that occurs once the execution
	// reached Done or Failed, right before completion is delivered.
	AfterExecution
	// eventSentinel provides the total number of events typed as an
	// Event.
	eventSentinel

	numEvents = int(eventSentinel)
)

var eventNames = []string{
	"BeforeExecution",
	"BeforeHop",
	"AfterHop",
	"AfterRedirect",
	"AfterDecode",
	"AfterExecution",
}

// Events returns all events in the order in which they can occur.
func Events() []Event {
	return []Event{
		BeforeExecution,
		BeforeHop,
		AfterHop,
		AfterRedirect,
		AfterDecode,
		AfterExecution,
	}
}

// Name returns the name of the event, or "Unknown" for a value outside
// the defined events.
func (evt Event) Name() string {
	if !evt.valid() {
		return "Unknown"
	}
	return eventNames[int(evt)]
}

func (evt Event) valid() bool {
	return evt >= 0 && int(evt) < numEvents
}

// String returns the name of the event.
func (evt Event) String() string {
	return evt.Name()
}
