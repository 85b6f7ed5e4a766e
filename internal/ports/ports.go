// Package ports declares the boundary interfaces (spec component C9) that
// let the run driver stay decoupled from concrete transports, filesystems,
// and logging backends — the redesign flag "tagged sink/logger interfaces,
// discoverer standalone" made concrete.
package ports

import "context"

// Severity is a log level, matching the six severities named in spec
// §4.9/§6.4.
type Severity int

const (
	Error Severity = iota
	Warning
	Info
	Verbose1
	Verbose2
	Verbose3
)

// Logger is the run driver's only way to emit diagnostics. Concrete
// implementations (internal/logging) decide format and destination.
type Logger interface {
	Log(sev Severity, msg string, fields map[string]any)
}

// MboxLocation identifies one discovered mbox file: a human-readable label
// (the mail account/folder it belongs to) and its filesystem path.
type MboxLocation struct {
	Label string
	Path  string
}

// Discoverer enumerates candidate mbox files ahead of a run, standalone
// from the parser itself (spec §9's redesign note).
type Discoverer interface {
	Discover(ctx context.Context) ([]MboxLocation, error)
}

// Uploader is the remote callback sink's transport: it pushes one file's
// bytes to the remote endpoint described in spec §6.4.
type Uploader interface {
	// Available performs the protocol's health check (check=HELLO,
	// expecting a bare "READY" body) before a run commits to uploading.
	Available(ctx context.Context) bool
	// ListRemote lists the filenames the remote end already holds for
	// dir, via the protocol's get_filelist operation.
	ListRemote(ctx context.Context, dir string) ([]string, error)
	Upload(ctx context.Context, name string, data []byte) error
	// SyncFileList tells the remote end which filenames currently exist
	// locally under dir, so it can report which ones it no longer needs
	// kept (the protocol's sync_filelist/sync_dirlist operation).
	SyncFileList(ctx context.Context, dir string, names []string) ([]string, error)
}
