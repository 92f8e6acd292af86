package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/benmeehan/location-agent/pkg/file"
)

// SupportedSchema is the range of config schema versions this agent reads.
const SupportedSchema = "^1.0"

// Config represents the structure of the configuration file.
type Config struct {
	SchemaVersion string `yaml:"schema_version"` // Version of this file's layout

	MQTT struct {
		Broker         string        `yaml:"broker"`          // MQTT broker address
		ClientID       string        `yaml:"client_id"`       // MQTT client ID prefix
		CACertificate  string        `yaml:"ca_certificate"`  // Path to the CA certificate, empty for plain TCP
		PublishTimeout time.Duration `yaml:"publish_timeout"` // Wait for broker acknowledgement
	} `yaml:"mqtt"`

	Identity struct {
		DeviceFile string `yaml:"device_file"` // Path to the device identity file
	} `yaml:"identity"`

	Consent struct {
		File    string `yaml:"file"`    // Path to the consent record
		Purpose string `yaml:"purpose"` // Shown to the operator when consent is requested
	} `yaml:"consent"`

	Services struct {
		Location struct {
			Topic             string        `yaml:"topic"`              // MQTT topic for location service
			Enabled           bool          `yaml:"enabled"`            // Enable/disable location service
			Interval          time.Duration `yaml:"interval"`           // Time between sampling sessions
			QOS               int           `yaml:"qos"`                // MQTT QoS level for location messages
			SensorBased       bool          `yaml:"sensor_based"`       // Use the GPS receiver instead of network geolocation
			MapsAPIKey        string        `yaml:"maps_api_key"`       // Google Maps API key
			GPSDeviceBaudRate int           `yaml:"gps_baud_rate"`      // Baud rate for the GPS receiver
			GPSDevicePort     string        `yaml:"gps_device_port"`    // Serial port of the GPS receiver
			UERE              float64       `yaml:"uere"`               // Meters per unit of HDOP
			PollInterval      time.Duration `yaml:"poll_interval"`      // Network geolocation poll interval
			ModemIndex        int           `yaml:"modem_index"`        // mmcli modem index for cell towers
			Deadline          time.Duration `yaml:"deadline"`           // Budget for one sampling session
			PerFixTimeout     time.Duration `yaml:"per_fix_timeout"`    // Wait ceiling for each fix
			GoodEnoughMeters  float64       `yaml:"good_enough_meters"` // Stop early at or below this accuracy
			ReverseGeocode    bool          `yaml:"reverse_geocode"`    // Attach an address to each message
		} `yaml:"location_service"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file, validates
// it and fills in defaults.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	if err := fileClient.ReadYamlFile(filename, &config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks the schema version and required fields, and applies defaults.
func (c *Config) Validate() error {
	if c.SchemaVersion == "" {
		return errors.New("schema_version is required")
	}
	version, err := semver.NewVersion(c.SchemaVersion)
	if err != nil {
		return fmt.Errorf("invalid schema_version %q: %w", c.SchemaVersion, err)
	}
	constraint, err := semver.NewConstraint(SupportedSchema)
	if err != nil {
		return err
	}
	if !constraint.Check(version) {
		return fmt.Errorf("schema_version %s is not supported, want %s", version, SupportedSchema)
	}

	if c.Consent.File == "" {
		return errors.New("consent.file is required")
	}
	if c.Consent.Purpose == "" {
		return errors.New("consent.purpose is required")
	}
	if c.MQTT.PublishTimeout <= 0 {
		c.MQTT.PublishTimeout = 5 * time.Second
	}

	loc := &c.Services.Location
	if !loc.Enabled {
		return nil
	}
	if loc.Topic == "" {
		return errors.New("services.location_service.topic is required")
	}
	if loc.QOS < 0 || loc.QOS > 2 {
		return fmt.Errorf("services.location_service.qos must be 0, 1 or 2, got %d", loc.QOS)
	}
	if loc.SensorBased && loc.GPSDevicePort == "" {
		return errors.New("services.location_service.gps_device_port is required for sensor_based")
	}
	if (!loc.SensorBased || loc.ReverseGeocode) && loc.MapsAPIKey == "" {
		return errors.New("services.location_service.maps_api_key is required")
	}

	if loc.Interval <= 0 {
		loc.Interval = time.Minute
	}
	if loc.GPSDeviceBaudRate <= 0 {
		loc.GPSDeviceBaudRate = 9600
	}
	if loc.PollInterval <= 0 {
		loc.PollInterval = 5 * time.Second
	}
	if loc.Deadline <= 0 {
		loc.Deadline = 10 * time.Second
	}
	if loc.PerFixTimeout <= 0 {
		loc.PerFixTimeout = 15 * time.Second
	}
	if loc.GoodEnoughMeters <= 0 {
		loc.GoodEnoughMeters = 20
	}
	return nil
}
