package server

import "fmt"

// State is the position of a connection in its single request/response cycle.
// Every connection ends in Closed, whether or not a response was sent.
type State int

const (
	AwaitingRequestLine State = iota
	AwaitingHeadersEnd
	Dispatched
	ResponseSent
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingRequestLine:
		return "AWAITING_REQUEST_LINE"
	case AwaitingHeadersEnd:
		return "AWAITING_HEADERS_END"
	case Dispatched:
		return "DISPATCHED"
	case ResponseSent:
		return "RESPONSE_SENT"
	case Closed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
