package domain

// Notification is a raw buffer delivered by the transport's notify channel.
// It is not retained past dispatch.
type Notification struct {
	Value []byte
}

// WriteRequest is one chunk submitted to the transport.
// ID correlates the request with exactly one Ack.
type WriteRequest struct {
	ID   string
	Data []byte
}

// Ack terminates exactly one WriteRequest.
// A nil Err means the transport reported DidWrite, anything else DidFailToWrite.
type Ack struct {
	ID  string
	Err error
}

// Failed returns true if the write did not complete successfully.
func (a Ack) Failed() bool {
	return a.Err != nil
}
