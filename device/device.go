// Package device owns the per-installation identity: a stable device id
// generated once and persisted, plus a human-readable label describing the
// runtime. Both are stamped onto every outbound request as Device-ID and
// Device-Name headers.
package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/identikit/identikit/storage"
)

const deviceIDKey = "device_id"

// Record is the immutable identity of this installation.
type Record struct {
	DeviceID    string
	DeviceLabel string
}

// Identity lazily creates and caches the device record. Safe for concurrent
// use; only this type writes the device_id storage key.
type Identity struct {
	backend storage.Backend
	label   string

	mu     sync.Mutex
	cached string
}

// New builds an Identity backed by the given store. label overrides the
// generated runtime description when non-empty.
func New(backend storage.Backend, label string) *Identity {
	if label == "" {
		label = runtimeLabel()
	}
	return &Identity{backend: backend, label: label}
}

// GetOrCreate returns the persisted device record, synthesizing and storing a
// fresh id on first use. Repeated calls within one installation always return
// the same id.
func (i *Identity) GetOrCreate(ctx context.Context) (Record, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cached != "" {
		return Record{DeviceID: i.cached, DeviceLabel: i.label}, nil
	}

	id, err := i.backend.Get(ctx, deviceIDKey)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Record{}, err
	}

	if id == "" {
		id = generateID()
		if err := i.backend.Set(ctx, deviceIDKey, id); err != nil {
			return Record{}, err
		}
	}

	i.cached = id
	return Record{DeviceID: id, DeviceLabel: i.label}, nil
}

// Label reports the runtime description without touching storage.
func (i *Identity) Label() string {
	return i.label
}

// generateID combines a monotonic timestamp with a random suffix so ids sort
// roughly by installation time while staying unguessable.
func generateID() string {
	suffix := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("device-%d-%s", time.Now().UnixMilli(), suffix)
}

func runtimeLabel() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown-host"
	}
	return fmt.Sprintf("%s (%s/%s go%s)", host, runtime.GOOS, runtime.GOARCH,
		strings.TrimPrefix(runtime.Version(), "go"))
}
