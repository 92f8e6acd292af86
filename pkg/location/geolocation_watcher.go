package location

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
	"googlemaps.github.io/maps"
)

const geolocationSource = "network"

// GeolocationClient is the part of the Maps client used for network geolocation.
type GeolocationClient interface {
	Geolocate(ctx context.Context, r *maps.GeolocationRequest) (*maps.GeolocationResult, error)
}

// GeolocationWatcher polls the Google Maps Geolocation API with the nearby
// Wi-Fi and cell environment and reports each answer as a fix.
type GeolocationWatcher struct {
	client   GeolocationClient
	scanner  SignalScanner
	interval time.Duration
	logger   zerolog.Logger
	watches  cmap.ConcurrentMap[string, context.CancelFunc]
}

// NewGeolocationClient creates a Maps client for the given API key.
func NewGeolocationClient(apiKey string) (*maps.Client, error) {
	return maps.NewClient(maps.WithAPIKey(apiKey))
}

// NewGeolocationWatcher creates a watcher polling every interval.
func NewGeolocationWatcher(client GeolocationClient, scanner SignalScanner, interval time.Duration, logger zerolog.Logger) *GeolocationWatcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	return &GeolocationWatcher{
		client:   client,
		scanner:  scanner,
		interval: interval,
		logger:   logger,
		watches:  cmap.New[context.CancelFunc](),
	}
}

// StartWatch begins polling. The first request is sent immediately.
func (g *GeolocationWatcher) StartWatch(opts WatchOptions, onSample func(PositionSample), onError func(error)) (WatchID, error) {
	ctx, cancel := context.WithCancel(context.Background())
	id := WatchID(uuid.NewString())
	g.watches.Set(string(id), cancel)

	go g.run(ctx, opts, onSample, onError)

	g.logger.Debug().Str("watch_id", string(id)).Dur("interval", g.interval).Msg("Network geolocation watch started")
	return id, nil
}

// CancelWatch stops polling. A callback already in flight may still complete.
func (g *GeolocationWatcher) CancelWatch(id WatchID) {
	cancel, ok := g.watches.Pop(string(id))
	if !ok {
		return
	}
	cancel()
	g.logger.Debug().Str("watch_id", string(id)).Msg("Network geolocation watch cancelled")
}

// ActiveWatches returns the number of open watches.
func (g *GeolocationWatcher) ActiveWatches() int {
	return g.watches.Count()
}

func (g *GeolocationWatcher) run(ctx context.Context, opts WatchOptions, onSample func(PositionSample), onError func(error)) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		sample, err := g.poll(ctx, opts)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			onError(err)
		} else {
			onSample(sample)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (g *GeolocationWatcher) poll(ctx context.Context, opts WatchOptions) (PositionSample, error) {
	if opts.PerFixTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.PerFixTimeout)
		defer cancel()
	}

	req := &maps.GeolocationRequest{ConsiderIP: true}

	if g.scanner != nil {
		wifiAPs, err := g.scanner.WiFiAccessPoints(ctx)
		if err != nil {
			g.logger.Debug().Err(err).Msg("Wi-Fi scan unavailable")
		}
		req.WiFiAccessPoints = wifiAPs

		cellTowers, err := g.scanner.CellTowers(ctx)
		if err != nil {
			g.logger.Debug().Err(err).Msg("Cell tower scan unavailable")
		}
		req.CellTowers = cellTowers
	}

	resp, err := g.client.Geolocate(ctx, req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return PositionSample{}, ErrFixTimeout
		}
		return PositionSample{}, fmt.Errorf("%w: %v", ErrPositionUnavailable, err)
	}

	return PositionSample{
		Latitude:       resp.Location.Lat,
		Longitude:      resp.Location.Lng,
		AccuracyMeters: resp.Accuracy,
		CapturedAt:     time.Now(),
		Source:         geolocationSource,
	}, nil
}
