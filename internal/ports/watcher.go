package ports

// Watcher monitors a single file (the daemon config) for changes. The adapter
// (fsnotify) watches the parent directory so editors that replace the file via
// rename are still observed.
type Watcher interface {
	// WatchFile starts monitoring path. onChange is called with the absolute
	// path after each debounced write, create, rename, or remove. The callback
	// may be invoked from any goroutine.
	WatchFile(path string, onChange func(filePath string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}
