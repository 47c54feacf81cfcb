/*
Package randx generates the opaque identifiers handed out by the server.

Connection handles and transcript entry IDs are UUID v4 strings.
*/
package randx

import (
	"strings"

	"github.com/google/uuid"
)

// ConnectionID generates the opaque handle for a newly accepted transport session.
func ConnectionID() string {
	return uuid.NewString()
}

// EntryID generates a unique identifier for a transcript entry.
func EntryID() string {
	return uuid.NewString()
}

// Short returns the first block of a UUID-shaped id, for compact log fields.
func Short(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}
