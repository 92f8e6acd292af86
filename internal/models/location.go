package models

import (
	"time"

	"github.com/benmeehan/location-agent/pkg/location"
)

// Location is the message published for each accepted sampling session.
type Location struct {
	DeviceID         string            `json:"device_id"`
	Timestamp        time.Time         `json:"timestamp"`
	CapturedAt       time.Time         `json:"captured_at"`
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	Accuracy         float64           `json:"accuracy"`
	Source           string            `json:"source"`
	Address          *location.Address `json:"address,omitempty"`
	ConsentGrantedAt time.Time         `json:"consent_granted_at"`
}
