package ports

// Watcher monitors a set of source files and reports when one changes.
// Only one Watch call should be active at a time.
type Watcher interface {
	// Watch starts monitoring files. onChange is called with the absolute path
	// of each changed file and may be invoked from any goroutine. Returns an
	// error if a file's directory doesn't exist or cannot be watched.
	Watch(files []string, onChange func(filePath string)) error

	// Stop ends monitoring and releases all resources. After Stop returns,
	// no further onChange calls will fire. Safe to call multiple times.
	Stop() error
}
