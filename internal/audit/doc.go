// Package audit implements async event dispatching for credential and
// challenge outcomes.
//
// # Components
//
//   - [Sink] is implemented by NoOpSink, ChannelSink, JSONWriterSink and SlogSink.
//   - [Dispatcher] is a buffered relay with drop-if-full or block-if-full semantics.
//   - [Event] is the structured record, identified by a ULID.
//
// # Architecture boundaries
//
// This package owns buffering and sink delivery. Which events to emit is
// decided by the Engine.
//
// # What this package must NOT do
//
//   - Filter events based on business logic.
//   - Import credgate or any sibling internal package.
//   - Record challenge codes, passwords or tokens.
package audit
