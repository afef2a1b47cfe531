/*
Package store defines the persistence interfaces for the billing engine.

PURPOSE:
  The domain targets a hierarchical, path-addressed document store (a
  Firebase-RTDB-like backend in production). This package pins down that
  contract so the finance layer never sees a concrete database:

  Store:     point read/write/merge/append/delete + live subscriptions,
             addressed by slash-delimited paths
  BlobStore: attachment storage for receipts (upload/delete only)

DOCUMENT MODEL:
  A path holds either one JSON document or children, never both. Writing a
  document at a path clears its subtree. Reading an interior path assembles
  the subtree into one JSON object keyed by child segment - this is what
  lets the ledger adapter fetch "users/{uid}/expenses" and receive every
  month bucket in one call.

SUBSCRIPTIONS:
  Subscribe(path, fn) delivers the FULL value at path on every change at or
  under it (and when an ancestor overwrite touches it) - a snapshot, never a
  diff. Consumers are expected to recompute from scratch on each delivery;
  the aggregation pipeline is built around exactly that.

ERRORS:
  All persistence failures surface as billing.ErrStoreUnavailable wraps.
  A missing document is NOT an error: Get returns (nil, nil).

IMPLEMENTATIONS:
  - store/memory: in-memory, for tests and dev
  - store/sqlite: SQLite documents table, for production

SEE ALSO:
  - finance: the only consumer of these interfaces
*/
package store

import (
	"context"
	"encoding/json"
	"io"
	"strings"
)

// =============================================================================
// STORE - Path-addressed document persistence
// =============================================================================

type Store interface {
	// Get returns the document at path, or the assembled subtree object for
	// an interior path. (nil, nil) when nothing exists there.
	Get(ctx context.Context, path string) (json.RawMessage, error)

	// Set overwrites the document at path, clearing any subtree below it.
	Set(ctx context.Context, path string, value any) error

	// Update merges fields into the document at path (created when absent).
	Update(ctx context.Context, path string, fields map[string]any) error

	// Push appends value under path with a generated child id and returns
	// the id.
	Push(ctx context.Context, path string, value any) (string, error)

	// Delete removes the document at path and everything below it. Deleting
	// a missing path is a no-op.
	Delete(ctx context.Context, path string) error

	// Subscribe registers fn for changes at or under path. fn receives the
	// full current value at path. The returned cancel function detaches the
	// subscription; it is safe to call more than once.
	Subscribe(path string, fn func(json.RawMessage)) (cancel func())
}

// =============================================================================
// BLOB STORE - Receipt attachments
// =============================================================================

// BlobRef locates an uploaded attachment.
type BlobRef struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// BlobStore holds binary attachments. It carries none of the core's logic;
// only expense receipts pass through it.
type BlobStore interface {
	Upload(ctx context.Context, name string, r io.Reader) (BlobRef, error)
	Delete(ctx context.Context, path string) error
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// Join assembles a slash-delimited path from segments.
func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

// Split returns the path's segments.
func Split(path string) []string {
	return strings.Split(path, "/")
}

// IsAncestor reports whether a is b or a strict ancestor of b.
func IsAncestor(a, b string) bool {
	return a == b || strings.HasPrefix(b, a+"/")
}
