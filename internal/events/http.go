package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when a request is routed to an endpoint. The context
// carries the request ID.
type HTTPStart struct {
	Endpoint string
	Request  *http.Request
}

// HTTPFinish is emitted after the response has been written.
type HTTPFinish struct {
	Endpoint string
	Request  *http.Request
	Status   int
	Duration time.Duration
}
