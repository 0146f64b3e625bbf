// Package domain contains core concepts of the chat system.
// This file defines the authenticated Identity attached to a connection.
// No runtime, network, or UI logic should be added here.
package domain

// Identity is derived once at connection authentication and is immutable
// for the connection's lifetime. Username is the routing key: it must be
// unique among connected sessions at any instant.
type Identity struct {
	ID       string
	Username string
}
