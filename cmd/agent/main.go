package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/location-agent/internal/services"
	"github.com/benmeehan/location-agent/internal/utils"
	"github.com/benmeehan/location-agent/pkg/consent"
	"github.com/benmeehan/location-agent/pkg/file"
	"github.com/benmeehan/location-agent/pkg/identity"
	"github.com/benmeehan/location-agent/pkg/location"
	"github.com/benmeehan/location-agent/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the agent configuration")
	flag.Parse()

	// Set up structured logging with JSON output
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "location-agent").Logger()

	fileClient := file.NewFileService()

	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	consentStore := consent.NewStore(config.Consent.File, fileClient)
	if err := consentStore.Load(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load consent record")
	}

	deviceInfo := identity.NewDeviceInfo(config.Identity.DeviceFile, fileClient)
	if err := deviceInfo.LoadDeviceInfo(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to load device information")
	}

	// Generate a unique MQTT Client ID by appending a UUID
	clientID := config.MQTT.ClientID + "-" + uuid.NewString()
	logger.Info().Str("client_id", clientID).Str("device_id", deviceInfo.GetDeviceID()).Msg("Starting agent")

	mqttClient := mqtt.NewMqttService(fileClient)
	if err := mqttClient.Initialize(config.MQTT.Broker, clientID, config.MQTT.CACertificate); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
	}

	serviceRegistry := services.NewServiceRegistry(logger)

	if config.Services.Location.Enabled {
		locationService, err := buildLocationService(config, deviceInfo, mqttClient, consentStore, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to set up location service")
		}
		serviceRegistry.RegisterService("location", locationService)
	}

	if err := serviceRegistry.StartServices(); err != nil {
		mqttClient.Disconnect(250)
		logger.Fatal().Err(err).Msg("Failed to start services")
	}
	logger.Info().Int("services", serviceRegistry.Len()).Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	serviceRegistry.StopServices()
	mqttClient.Disconnect(250)
}

func buildLocationService(config *utils.Config, deviceInfo identity.DeviceInfoInterface, mqttClient mqtt.MQTTClient,
	consentStore *consent.Store, logger zerolog.Logger) (*services.LocationService, error) {
	cfg := config.Services.Location
	locLogger := logger.With().Str("service", "location").Logger()

	var mapsClient *maps.Client
	if cfg.MapsAPIKey != "" {
		var err error
		mapsClient, err = location.NewGeolocationClient(cfg.MapsAPIKey)
		if err != nil {
			return nil, err
		}
	}

	var watcher location.Watcher
	if cfg.SensorBased {
		watcher = location.NewNMEAWatcher(cfg.GPSDevicePort, cfg.GPSDeviceBaudRate, cfg.UERE, location.SerialPortOpener, locLogger)
	} else {
		scanner := location.NetworkScanner{ModemIndex: cfg.ModemIndex}
		watcher = location.NewGeolocationWatcher(mapsClient, scanner, cfg.PollInterval, locLogger)
	}

	sampler := location.NewSampler(
		consent.NewGate(consentStore, watcher),
		location.RealClock(),
		location.SamplerConfig{
			Deadline:         cfg.Deadline,
			GoodEnoughMeters: cfg.GoodEnoughMeters,
			PerFixTimeout:    cfg.PerFixTimeout,
		},
		locLogger,
	)

	var geocoder services.AddressLookup
	if cfg.ReverseGeocode {
		geocoder = location.NewReverseGeocoder(mapsClient, 0)
	}

	return services.NewLocationService(
		cfg.Topic,
		cfg.Interval,
		cfg.QOS,
		config.MQTT.PublishTimeout,
		deviceInfo,
		mqttClient,
		sampler,
		geocoder,
		consentStore,
		locLogger,
	), nil
}
