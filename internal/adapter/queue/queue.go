// Package queue adapts payauth-platform's MessageQueue port onto Redis
// Streams, the transport the Outbox Relay publishes to and the
// Authorization Worker consumes from.
package queue
