package protocol

// Frame is the websocket framing between a remote bridge and the gateway.
// Exactly one of Request, Response or Control is set.
type Frame struct {
	ID       uint64    `json:"id,omitempty"`
	Request  *Request  `json:"request,omitempty"`
	Response *Response `json:"response,omitempty"`
	Control  *Control  `json:"control,omitempty"`
}
