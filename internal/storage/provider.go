// Package storage builds the configured StorageProvider.
package storage

import "clipforge/internal/ports"

// Provider is the storage contract used by the pipeline and the acquirer.
type Provider = ports.StorageProvider
