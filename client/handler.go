package client

import "strconv"

// A HandlerGroup is a group of event handler chains which can be
// installed in a Client.
type HandlerGroup struct {
	handlers [][]Handler
}

// PushBack adds an event handler to the back of the event handler chain
// for a specific event type.
func (g *HandlerGroup) PushBack(evt Event, h Handler) {
	if h == nil {
		panic("httpget: nil handler")
	}
	if !evt.valid() {
		panic("httpget: unknown event " + strconv.Itoa(int(evt)))
	}

	if g.handlers == nil {
		g.handlers = make([][]Handler, numEvents)
	}

	g.handlers[evt] = append(g.handlers[evt], h)
}

// Append adds every handler of other to the back of the matching chains
// of g, keeping their order.
func (g *HandlerGroup) Append(other *HandlerGroup) {
	if other == nil {
		return
	}
	for i, chain := range other.handlers {
		for _, h := range chain {
			g.PushBack(Event(i), h)
		}
	}
}

func (g *HandlerGroup) run(evt Event, e *Execution) {
	if g == nil {
		return
	}
	i := int(evt)
	if i >= 0 && i < len(g.handlers) {
		for _, h := range g.handlers[i] {
			h.Handle(evt, e)
		}
	}
}

// A Handler handles the occurrence of an event during a request
// execution.
type Handler interface {
	Handle(Event, *Execution)
}

// The HandlerFunc type is an adapter to allow the use of ordinary
// functions as event handlers.
type HandlerFunc func(Event, *Execution)

// Handle calls f(evt, e).
func (f HandlerFunc) Handle(evt Event, e *Execution) {
	f(evt, e)
}
