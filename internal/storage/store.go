package storage

// Store is a flat key/value space with the same semantics the widget gets
// from browser localStorage: JSON-encoded records, last write wins, a missing
// key is simply absent. Records are overwritten rather than removed during
// normal operation.
type Store interface {
	// Get returns the raw record for key, or false if none exists.
	Get(key string) ([]byte, bool)

	// Set stores the record, replacing any previous value.
	Set(key string, value []byte)

	// Delete removes the record if present.
	Delete(key string)
}
