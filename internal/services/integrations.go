// Package services holds the optional outbound integrations a run may use:
// chat notification, object-storage upload, and remote file transfer. Each is
// an independent nullable handle on the Integrations struct, constructed once
// at process start and passed to the Bot explicitly; nothing here is looked
// up ambiently.
package services

import "context"

// Notifier posts a short message to a chat channel.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// Uploader stores a blob under a key in object storage.
type Uploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// Transfer copies a local file to a remote host.
type Transfer interface {
	Send(ctx context.Context, localPath, remotePath string) error
}

// Integrations bundles the configured integration handles. Any field may be
// nil; callers check before use.
type Integrations struct {
	Slack    Notifier
	Storage  Uploader
	Transfer Transfer
}

// Empty reports whether no integration is configured.
func (i *Integrations) Empty() bool {
	return i == nil || (i.Slack == nil && i.Storage == nil && i.Transfer == nil)
}
