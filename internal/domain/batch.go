package domain

// Batch is user input accumulated for one transmission.
// A batch is consumed as a whole by the transmitter; its chunks are never
// interleaved with the chunks of another batch.
type Batch struct {
	// Text is the concatenation of the outbound requests in arrival order.
	Text string
}

// Empty returns true if the batch carries no data.
func (b Batch) Empty() bool {
	return len(b.Text) == 0
}

// Len returns the encoded length of the batch in bytes.
func (b Batch) Len() int {
	return len(b.Text)
}

// Chunks encodes the batch and splits it into consecutive slices of at most
// size bytes. The last chunk holds the remainder.
func (b Batch) Chunks(size int) [][]byte {
	data := []byte(b.Text)
	if len(data) == 0 {
		return nil
	}
	if size <= 0 {
		return [][]byte{data}
	}

	chunks := make([][]byte, 0, (len(data)+size-1)/size)
	for i := 0; i < len(data); i += size {
		end := i + size
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[i:end:end])
	}
	return chunks
}
