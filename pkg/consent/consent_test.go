package consent_test

import (
	"path/filepath"
	"testing"

	"github.com/benmeehan/location-agent/pkg/consent"
	"github.com/benmeehan/location-agent/pkg/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*consent.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "consent.json")
	store := consent.NewStore(path, file.NewFileService())
	require.NoError(t, store.Load())
	return store, path
}

// TestStore_DefaultsToNotGranted tests that a device without a record has no consent.
func TestStore_DefaultsToNotGranted(t *testing.T) {
	store, _ := newTestStore(t)
	assert.False(t, store.Status().Granted)
}

// TestStore_GrantPersists tests that a grant survives a reload.
func TestStore_GrantPersists(t *testing.T) {
	store, path := newTestStore(t)

	record, err := store.Grant("  Ana Quispe ", "fleet vehicle tracking")
	require.NoError(t, err)
	assert.True(t, record.Granted)
	assert.Equal(t, "Ana Quispe", record.GrantedBy)
	assert.False(t, record.GrantedAt.IsZero())

	reloaded := consent.NewStore(path, file.NewFileService())
	require.NoError(t, reloaded.Load())
	assert.Equal(t, record.GrantedBy, reloaded.Status().GrantedBy)
	assert.True(t, reloaded.Status().Granted)
	assert.True(t, record.GrantedAt.Equal(reloaded.Status().GrantedAt))
}

// TestStore_GrantValidation tests the required fields of a grant.
func TestStore_GrantValidation(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Grant(" ", "fleet vehicle tracking")
	assert.ErrorIs(t, err, consent.ErrGrantorRequired)

	_, err = store.Grant("Ana Quispe", "")
	assert.ErrorIs(t, err, consent.ErrPurposeRequired)

	assert.False(t, store.Status().Granted)
}

// TestStore_Revoke tests that revoking keeps the audit trail.
func TestStore_Revoke(t *testing.T) {
	store, path := newTestStore(t)
	_, err := store.Grant("Ana Quispe", "fleet vehicle tracking")
	require.NoError(t, err)

	record, err := store.Revoke()
	require.NoError(t, err)
	assert.False(t, record.Granted)
	assert.Equal(t, "Ana Quispe", record.GrantedBy)
	assert.False(t, record.RevokedAt.IsZero())

	reloaded := consent.NewStore(path, file.NewFileService())
	require.NoError(t, reloaded.Load())
	assert.False(t, reloaded.Status().Granted)
}
