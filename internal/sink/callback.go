package sink

import (
	"context"

	"github.com/nmartinon/mboxzilla-go/internal/ports"
)

// Callback uploads each message through an ports.Uploader, optionally
// gated by a Preflight predicate — the Go equivalent of the original's
// Set_Callback_Eml_Preprocess/Set_Callback_Eml_Process pair, except the
// preflight decides whether to upload at all rather than whether to keep
// processing.
type Callback struct {
	Uploader  ports.Uploader
	Preflight func(e Entry) bool
}

func (c *Callback) Write(e Entry) error {
	if c.Preflight != nil && !c.Preflight(e) {
		return nil
	}
	return c.Uploader.Upload(context.Background(), e.Name, e.Raw)
}

func (c *Callback) Close() error { return nil }
