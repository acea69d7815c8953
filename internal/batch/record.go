package batch

import "time"

// Record is one mutator command line enqueued by a session, carrying
// enough context for the tick loop to check permission, format the
// audit line and know who submitted it. Query commands (DOC?, PERM?,
// LOG?, DISCONNECT) never reach the queue — the transport layer answers
// them directly.
type Record struct {
	SessionID string
	User      string
	Line      string
	Enqueued  time.Time
}
