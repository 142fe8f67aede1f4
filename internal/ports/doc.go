// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [Transport]: BLE UART (or wired UART) write/notify channel
//   - [StatusSink]: one-way runtime status and checksum reporting
//   - [RuntimeStateReader]: read-only view of the hub runtime state
//   - [StatusRecorder]: persistence and forwarding of runtime snapshots
//   - [Presentation] and [DataSource]: the terminal view
//   - [Sender]: submission of user input
//   - [Logger]: Structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for dependency injection
//
// The application layer (internal/app) depends only on these interfaces.
// Infrastructure adapters (internal/adapters) implement them with BlueZ,
// serial ports, websockets, files and zerolog.
package ports
