// Package checksum extracts the one-byte checksum the hub sends back while
// a program is being loaded.
package checksum

import "github.com/bft-labs/hubterm/internal/domain"

// Applies reports whether buf is a checksum reply: the runtime is loading
// and the buffer is exactly one byte long.
func Applies(state domain.RuntimeState, buf []byte) bool {
	return state == domain.RuntimeLoading && len(buf) == 1
}

// Extract returns the checksum carried by buf. The boolean is false when
// the buffer must be handled as text instead.
func Extract(state domain.RuntimeState, buf []byte) (uint8, bool) {
	if !Applies(state, buf) {
		return 0, false
	}
	return buf[0], true
}
