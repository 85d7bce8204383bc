package index

// FileIndex defines the interface for vault file indexing operations.
// Consumers that only need a subset (the attachment resolver needs Resolve
// alone) should declare their own narrow interface; this one documents the
// full contract.
type FileIndex interface {
	UpsertFile(row FileRow) error
	DeleteFile(path string) error
	Resolve(name, sourcePath string) (string, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies FileIndex at compile time.
var _ FileIndex = (*DB)(nil)
