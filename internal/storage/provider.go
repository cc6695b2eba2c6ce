package storage

import "github.com/akibsystems/showgeki2-sub002/internal/ports"

// Provider is the storage contract used across ingress and worker.
// It is an alias to ports.StorageProvider to keep call-sites simple.
type Provider = ports.StorageProvider
