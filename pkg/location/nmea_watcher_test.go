package location_test

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/benmeehan/location-agent/pkg/location"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ggaHDOP09      = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47"
	ggaHDOP40      = "$GPGGA,123520,4807.038,N,01131.000,E,1,08,4.0,545.4,M,46.9,M,,*40"
	ggaNoFix       = "$GPGGA,123521,,,,,0,00,,,M,,M,,*60"
	ggaMultiGNSS   = "$GNGGA,123522,4807.100,N,01131.100,E,1,10,2.0,545.4,M,46.9,M,,*58"
	ggaBadChecksum = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*00"
)

// pipeOpener hands out the read end of a pipe so tests can script the receiver.
func pipeOpener(r *io.PipeReader) location.PortOpener {
	return func(name string, baudRate int) (io.ReadCloser, error) {
		return r, nil
	}
}

func collect(t *testing.T) (chan location.PositionSample, chan error, func(location.PositionSample), func(error)) {
	t.Helper()
	samples := make(chan location.PositionSample, 8)
	errs := make(chan error, 8)
	return samples, errs,
		func(s location.PositionSample) { samples <- s },
		func(err error) { errs <- err }
}

// TestNMEAWatcher_DeliversGGAFixes tests that valid GGA sentences become samples.
func TestNMEAWatcher_DeliversGGAFixes(t *testing.T) {
	r, w := io.Pipe()
	watcher := location.NewNMEAWatcher("/dev/ttyUSB0", 9600, 0, pipeOpener(r), zerolog.Nop())
	samples, errs, onSample, onError := collect(t)

	id, err := watcher.StartWatch(location.WatchOptions{HighAccuracy: true}, onSample, onError)
	require.NoError(t, err)
	assert.Equal(t, 1, watcher.ActiveWatches())

	go func() {
		for _, line := range []string{"garbage", ggaBadChecksum, ggaNoFix, ggaHDOP40, "$GPRMC,bad", ggaHDOP09} {
			if _, err := io.WriteString(w, line+"\r\n"); err != nil {
				return
			}
		}
	}()

	first := receiveSample(t, samples)
	assert.InDelta(t, 20.0, first.AccuracyMeters, 1e-9)
	assert.InDelta(t, 48.1173, first.Latitude, 1e-4)
	assert.InDelta(t, 11.5167, first.Longitude, 1e-4)
	assert.Equal(t, "gps", first.Source)

	second := receiveSample(t, samples)
	assert.InDelta(t, 4.5, second.AccuracyMeters, 1e-9)

	watcher.CancelWatch(id)
	assert.Equal(t, 0, watcher.ActiveWatches())
	assert.Empty(t, errs)
}

// TestNMEAWatcher_UERE tests the HDOP scaling factor.
func TestNMEAWatcher_UERE(t *testing.T) {
	r, w := io.Pipe()
	watcher := location.NewNMEAWatcher("/dev/ttyUSB0", 9600, 3, pipeOpener(r), zerolog.Nop())
	samples, _, onSample, onError := collect(t)

	id, err := watcher.StartWatch(location.WatchOptions{}, onSample, onError)
	require.NoError(t, err)
	defer watcher.CancelWatch(id)

	go io.WriteString(w, ggaMultiGNSS+"\r\n")

	sample := receiveSample(t, samples)
	assert.InDelta(t, 6.0, sample.AccuracyMeters, 1e-9)
}

// TestNMEAWatcher_PerFixTimeout tests that a silent receiver reports ErrFixTimeout.
func TestNMEAWatcher_PerFixTimeout(t *testing.T) {
	r, _ := io.Pipe()
	watcher := location.NewNMEAWatcher("/dev/ttyUSB0", 9600, 0, pipeOpener(r), zerolog.Nop())
	_, errs, onSample, onError := collect(t)

	id, err := watcher.StartWatch(location.WatchOptions{PerFixTimeout: 20 * time.Millisecond}, onSample, onError)
	require.NoError(t, err)
	defer watcher.CancelWatch(id)

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, location.ErrFixTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a fix timeout")
	}
}

// TestNMEAWatcher_ReadFailure tests that a closed receiver stream reports ErrPositionUnavailable.
func TestNMEAWatcher_ReadFailure(t *testing.T) {
	r, w := io.Pipe()
	watcher := location.NewNMEAWatcher("/dev/ttyUSB0", 9600, 0, pipeOpener(r), zerolog.Nop())
	_, errs, onSample, onError := collect(t)

	id, err := watcher.StartWatch(location.WatchOptions{}, onSample, onError)
	require.NoError(t, err)
	defer watcher.CancelWatch(id)

	w.CloseWithError(errors.New("device unplugged"))

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, location.ErrPositionUnavailable)
		assert.Contains(t, err.Error(), "device unplugged")
	case <-time.After(2 * time.Second):
		t.Fatal("expected a read error")
	}
}

// TestNMEAWatcher_OpenFailure tests that an unavailable port fails StartWatch.
func TestNMEAWatcher_OpenFailure(t *testing.T) {
	opener := func(name string, baudRate int) (io.ReadCloser, error) {
		return nil, errors.New("no such device")
	}
	watcher := location.NewNMEAWatcher("/dev/ttyUSB9", 9600, 0, opener, zerolog.Nop())

	_, err := watcher.StartWatch(location.WatchOptions{}, func(location.PositionSample) {}, func(error) {})

	assert.ErrorIs(t, err, location.ErrPositionUnavailable)
	assert.Equal(t, 0, watcher.ActiveWatches())
}

// TestNMEAWatcher_WithSampler tests the watcher driving a full sampling session.
func TestNMEAWatcher_WithSampler(t *testing.T) {
	r, w := io.Pipe()
	// 15m per HDOP unit: 30m for the first fix, 13.5m for the second.
	watcher := location.NewNMEAWatcher("/dev/ttyUSB0", 9600, 15, pipeOpener(r), zerolog.Nop())
	sampler := location.NewSampler(watcher, nil, location.DefaultSamplerConfig(), zerolog.Nop())

	session, err := sampler.Begin()
	require.NoError(t, err)

	go func() {
		io.WriteString(w, ggaMultiGNSS+"\r\n")
		io.WriteString(w, ggaHDOP09+"\r\n")
	}()

	select {
	case <-session.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not settle")
	}

	best, ok := session.Best()
	require.True(t, ok)
	assert.InDelta(t, 13.5, best.AccuracyMeters, 1e-9)
	assert.Equal(t, 2, session.Received())
	assert.Equal(t, location.StateResolved, session.State())
	assert.Equal(t, 0, watcher.ActiveWatches())
}

func receiveSample(t *testing.T, samples chan location.PositionSample) location.PositionSample {
	t.Helper()
	select {
	case s := <-samples:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a sample")
		return location.PositionSample{}
	}
}
