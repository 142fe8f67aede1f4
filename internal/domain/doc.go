// Package domain contains the core entities and value objects of the
// terminal bridge.
//
// This package is the innermost layer. It has no dependencies on transports,
// presentation or logging and only describes the data flowing through the
// bridge.
//
// # Entities
//
//   - [Notification]: a raw inbound buffer delivered by the transport
//   - [WriteRequest] and [Ack]: one outbound chunk and its terminal completion
//   - [Batch]: user input accumulated for transmission, split into chunks
//   - [Status] and [RuntimeState]: hub runtime reporting
//   - [StatusRecord]: a snapshot of the runtime monitor
package domain
