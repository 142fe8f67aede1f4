package ports

import "context"

// DataSource is the terminal output stream handed to presentations.
type DataSource interface {
	// Subscribe attaches a new consumer. The returned function detaches it
	// and closes the channel. Consumers never affect each other; a consumer
	// that falls behind loses fragments instead of stalling the stream.
	Subscribe(buffer int) (<-chan string, func())
}

// Presentation displays terminal output.
type Presentation interface {
	// SetDataSource is called once when the output stream is created.
	SetDataSource(src DataSource)
}

// Sender accepts user input from a presentation.
type Sender interface {
	Send(ctx context.Context, text string) error
}
