// Package ports defines the interfaces (contracts) that adapters must implement.
// These are the boundaries of the hexagonal architecture. Domain logic depends
// only on these interfaces, never on concrete implementations.
package ports

// KeyValueStore is the host's persistent key-value storage. It survives
// restarts. The bbolt adapter scopes each store to a profile bucket; values are
// opaque bytes (the domain encodes JSON).
//
// Atomicity: a single Set call is transactional, so all keys it writes become
// visible together and a crash mid-write cannot corrupt previously committed
// data. There is no transaction spanning a Get and a later Set; callers that
// read-modify-write must serialize among themselves.
type KeyValueStore interface {
	// Get returns the stored values for the requested keys. Missing keys are
	// absent from the result map (not an error).
	Get(keys ...string) (map[string][]byte, error)

	// Set writes all given keys in one transaction. A nil value deletes
	// the key.
	Set(values map[string][]byte) error
}
