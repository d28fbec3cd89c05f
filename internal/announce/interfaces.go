package announce

import (
	"context"
	"time"
)

// Fetcher retrieves the raw HTML of the source page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor parses a source document into records.
type Extractor interface {
	Extract(html []byte, baseURL string) ([]Record, error)
}

// RecordStore persists announcement records keyed by their identity triple.
// Insert reports false when the record already exists; the store must
// enforce identity uniqueness itself (constraint or check-and-set) so that
// concurrent runs cannot double-insert.
type RecordStore interface {
	Exists(ctx context.Context, id Identity) (bool, error)
	Insert(ctx context.Context, rec Record) (bool, error)
}

// Saver performs the deduplicating batch save.
type Saver interface {
	SaveNew(ctx context.Context, records []Record) (SaveResult, error)
}

// RecipientSource lists normalized subscriber addresses in a stable order.
type RecipientSource interface {
	ListAll(ctx context.Context) ([]string, error)
}

// RecipientStore manages the subscriber list. Add and Remove report whether
// anything changed.
type RecipientStore interface {
	RecipientSource
	Add(ctx context.Context, email string) (bool, error)
	Remove(ctx context.Context, email string) (bool, error)
}

// RunStore persists run history rows.
type RunStore interface {
	RecordRun(ctx context.Context, run RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}

// Sender delivers one message to a set of recipients in a single transport
// call. The text body must be readable without the HTML alternative.
type Sender interface {
	Send(ctx context.Context, to []string, subject, text, html string) error
}

// Publisher pushes new-announcement events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// SnapshotStore archives raw fetched documents and returns a URI.
type SnapshotStore interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Hasher computes digests for identity uniqueness enforcement.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
