package device_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/identikit/identikit/device"
	"github.com/identikit/identikit/storage"
)

func TestGetOrCreateIsIdempotent(t *testing.T) {
	backend := storage.NewMemoryBackend()
	id := device.New(backend, "")

	first, err := id.GetOrCreate(context.Background())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(first.DeviceID, "device-"))

	second, err := id.GetOrCreate(context.Background())
	require.NoError(t, err)
	require.Equal(t, first.DeviceID, second.DeviceID)
}

func TestGetOrCreateReusesPersistedID(t *testing.T) {
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(context.Background(), "device_id", "device-42-abc"))

	rec, err := device.New(backend, "").GetOrCreate(context.Background())
	require.NoError(t, err)
	require.Equal(t, "device-42-abc", rec.DeviceID)
}

func TestSeparateInstallationsGetDistinctIDs(t *testing.T) {
	a, err := device.New(storage.NewMemoryBackend(), "").GetOrCreate(context.Background())
	require.NoError(t, err)
	b, err := device.New(storage.NewMemoryBackend(), "").GetOrCreate(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, a.DeviceID, b.DeviceID)
}

func TestLabelOverrideAndDefault(t *testing.T) {
	require.Equal(t, "kiosk-7", device.New(storage.NewMemoryBackend(), "kiosk-7").Label())
	require.NotEmpty(t, device.New(storage.NewMemoryBackend(), "").Label())
}
