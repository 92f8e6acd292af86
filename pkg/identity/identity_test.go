package identity_test

import (
	"path/filepath"
	"testing"

	"github.com/benmeehan/location-agent/pkg/file"
	"github.com/benmeehan/location-agent/pkg/identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDeviceInfo_GeneratesAndPersistsID tests first boot without an identity file.
func TestDeviceInfo_GeneratesAndPersistsID(t *testing.T) {
	fs := file.NewFileService()
	path := filepath.Join(t.TempDir(), "device.json")

	first := identity.NewDeviceInfo(path, fs)
	require.NoError(t, first.LoadDeviceInfo())

	id := first.GetDeviceID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	second := identity.NewDeviceInfo(path, fs)
	require.NoError(t, second.LoadDeviceInfo())
	assert.Equal(t, id, second.GetDeviceID())
}

// TestDeviceInfo_KeepsExistingIdentity tests that a provisioned identity is used as-is.
func TestDeviceInfo_KeepsExistingIdentity(t *testing.T) {
	fs := file.NewFileService()
	path := filepath.Join(t.TempDir(), "device.json")
	require.NoError(t, fs.WriteJsonFile(path, identity.Identity{ID: "tracker-7", Name: "Van 7"}))

	info := identity.NewDeviceInfo(path, fs)
	require.NoError(t, info.LoadDeviceInfo())

	assert.Equal(t, "tracker-7", info.GetDeviceID())
	assert.Equal(t, "Van 7", info.GetDeviceIdentity().Name)
}
