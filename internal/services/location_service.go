package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/benmeehan/location-agent/internal/models"
	"github.com/benmeehan/location-agent/pkg/consent"
	"github.com/benmeehan/location-agent/pkg/identity"
	"github.com/benmeehan/location-agent/pkg/location"
	"github.com/benmeehan/location-agent/pkg/mqtt"
	"github.com/rs/zerolog"
)

var (
	// ErrConsentRequired is returned when location collection has not been agreed to.
	ErrConsentRequired = errors.New("location consent has not been granted")
	// ErrConsentRevoked is returned for a cycle skipped because consent was withdrawn.
	ErrConsentRevoked = errors.New("location consent was revoked")
)

// LocationSampler produces one best-effort fix per call.
type LocationSampler interface {
	AcquireBestEffortLocation(ctx context.Context) (location.PositionSample, error)
}

// AddressLookup resolves a fix to an address.
type AddressLookup interface {
	Lookup(ctx context.Context, sample location.PositionSample) (location.Address, error)
}

// LocationService periodically samples the device location and publishes it
// to an MQTT broker. It only runs while consent is granted.
type LocationService struct {
	// Configuration fields
	topic          string
	interval       time.Duration
	qos            int
	publishTimeout time.Duration

	// Dependencies
	deviceInfo identity.DeviceInfoInterface
	mqttClient mqtt.MQTTClient
	sampler    LocationSampler
	geocoder   AddressLookup
	consent    consent.Checker
	logger     zerolog.Logger

	// Internal state management
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewLocationService creates a new LocationService. geocoder may be nil.
func NewLocationService(topic string, interval time.Duration, qos int, publishTimeout time.Duration,
	deviceInfo identity.DeviceInfoInterface, mqttClient mqtt.MQTTClient, sampler LocationSampler,
	geocoder AddressLookup, consentChecker consent.Checker, logger zerolog.Logger) *LocationService {
	return &LocationService{
		topic:          topic,
		interval:       interval,
		qos:            qos,
		publishTimeout: publishTimeout,
		deviceInfo:     deviceInfo,
		mqttClient:     mqttClient,
		sampler:        sampler,
		geocoder:       geocoder,
		consent:        consentChecker,
		logger:         logger,
	}
}

// Start begins periodic sampling. The first session runs immediately.
func (l *LocationService) Start() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		l.logger.Warn().Msg("LocationService is already running")
		return errors.New("location service is already running")
	}

	record := l.consent.Status()
	if !record.Granted {
		l.logger.Error().Msg("Location collection requires consent; run `consent grant` first")
		return ErrConsentRequired
	}

	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.running = true

	l.wg.Add(1)
	go l.run(l.ctx)

	l.logger.Warn().
		Str("purpose", record.Purpose).
		Str("granted_by", record.GrantedBy).
		Time("granted_at", record.GrantedAt).
		Str("topic", l.topic).
		Dur("interval", l.interval).
		Msg("Location collection is active")
	return nil
}

// Stop cancels any session in progress and waits for the loop to exit.
func (l *LocationService) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		l.logger.Warn().Msg("LocationService is not running")
		return errors.New("location service is not running")
	}
	l.cancel()
	l.running = false
	l.mu.Unlock()

	l.wg.Wait()
	l.logger.Info().Msg("Location collection stopped")
	return nil
}

func (l *LocationService) run(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		if err := l.PublishCurrentLocation(ctx); err != nil && ctx.Err() == nil {
			l.logger.Debug().Err(err).Msg("Location cycle produced no message")
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

// PublishCurrentLocation runs one sampling session and publishes the result.
func (l *LocationService) PublishCurrentLocation(ctx context.Context) error {
	record := l.consent.Status()
	if !record.Granted {
		l.logger.Warn().Msg("Location consent revoked, skipping collection")
		return ErrConsentRevoked
	}

	sample, err := l.sampler.AcquireBestEffortLocation(ctx)
	if err != nil {
		l.logSamplingFailure(err)
		return err
	}

	message := models.Location{
		DeviceID:         l.deviceInfo.GetDeviceID(),
		Timestamp:        time.Now().UTC(),
		CapturedAt:       sample.CapturedAt,
		Latitude:         sample.Latitude,
		Longitude:        sample.Longitude,
		Accuracy:         sample.AccuracyMeters,
		Source:           sample.Source,
		ConsentGrantedAt: record.GrantedAt,
	}

	if l.geocoder != nil {
		addr, err := l.geocoder.Lookup(ctx, sample)
		if err != nil {
			l.logger.Warn().Err(err).Msg("Reverse geocoding failed, publishing without address")
		} else {
			message.Address = &addr
		}
	}

	payload, err := json.Marshal(message)
	if err != nil {
		l.logger.Error().Err(err).Msg("Failed to serialize location message")
		return err
	}

	if err := mqtt.PublishAndWait(l.mqttClient, l.topic, byte(l.qos), payload, l.publishTimeout); err != nil {
		l.logger.Error().
			Err(err).
			Str("topic", l.topic).
			Msg("Failed to publish location message to MQTT")
		return err
	}

	l.logger.Info().
		Float64("accuracy_m", message.Accuracy).
		Str("source", message.Source).
		Str("topic", l.topic).
		Msg("Location published")
	return nil
}

func (l *LocationService) logSamplingFailure(err error) {
	var signalErr *location.SignalError
	switch {
	case errors.Is(err, context.Canceled):
		return
	case errors.Is(err, location.ErrNoLocationCapability):
		l.logger.Error().Err(err).Msg("This device has no location source")
	case errors.As(err, &signalErr) && signalErr.PermissionDenied():
		l.logger.Warn().Err(err).Msg("Location access was denied")
	default:
		l.logger.Warn().Err(err).Msg("No location signal, will try again next cycle")
	}
}
