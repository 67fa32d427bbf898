/*
store.go - Persistence contract for audit messages

PURPOSE:
  Defines the interface between the audit service and its storage.
  Implementations must honor two properties:

  APPEND-ONLY:
    Messages are never updated or deleted. No Update/Delete methods
    exist on the interface.

  ATOMIC BATCHES:
    Append persists all messages of a call or none. The service relies
    on this for its all-or-nothing ingestion guarantee.

IMPLEMENTATIONS:
  - audit/store: In-memory, for tests and development
  - store/sqlite: Production SQLite with WAL mode

SEE ALSO:
  - service.go: The only consumer of this interface
*/
package audit

import "context"

// Store persists audit messages. Append-only: no update, no delete.
type Store interface {
	// Append persists the batch atomically: all messages or none.
	Append(ctx context.Context, messages []Message) error

	// Query returns messages matching the filter, most recent first,
	// capped at filter.Limit.
	Query(ctx context.Context, filter Filter) ([]Message, error)
}
