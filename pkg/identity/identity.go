package identity

import (
	"errors"
	"os"
	"sync"

	"github.com/benmeehan/location-agent/pkg/file"
	"github.com/google/uuid"
)

// Identity holds the device's unique identifier and display name.
type Identity struct {
	ID   string `json:"device_id,omitempty"`
	Name string `json:"device_name,omitempty"`
}

// DeviceInfoInterface defines methods for managing device identity.
type DeviceInfoInterface interface {
	LoadDeviceInfo() error
	GetDeviceID() string
	GetDeviceIdentity() Identity
}

// DeviceInfo keeps the identity file for this device.
type DeviceInfo struct {
	deviceInfoFile string
	fileOps        file.FileOperations

	mu       sync.RWMutex
	identity Identity
}

// NewDeviceInfo initializes a new DeviceInfo instance.
func NewDeviceInfo(filePath string, fileOps file.FileOperations) *DeviceInfo {
	return &DeviceInfo{
		deviceInfoFile: filePath,
		fileOps:        fileOps,
	}
}

// LoadDeviceInfo reads the identity file. A device without one is assigned a
// random ID which is written back so it stays stable across restarts.
func (d *DeviceInfo) LoadDeviceInfo() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var id Identity
	err := d.fileOps.ReadJsonFile(d.deviceInfoFile, &id)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	if id.ID == "" {
		id.ID = uuid.NewString()
		if err := d.fileOps.WriteJsonFile(d.deviceInfoFile, id); err != nil {
			return err
		}
	}

	d.identity = id
	return nil
}

// GetDeviceIdentity returns a copy of the current identity.
func (d *DeviceInfo) GetDeviceIdentity() Identity {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.identity
}

// GetDeviceID returns the current device ID.
func (d *DeviceInfo) GetDeviceID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.identity.ID
}
