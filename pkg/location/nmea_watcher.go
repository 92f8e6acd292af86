package location

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map/v2"
	"github.com/rs/zerolog"
	"github.com/tarm/serial"
)

const (
	// DefaultUERE is the user equivalent range error used to turn HDOP into meters.
	DefaultUERE = 5.0

	nmeaSource = "gps"
)

// PortOpener opens the serial device a GPS receiver is attached to.
type PortOpener func(name string, baudRate int) (io.ReadCloser, error)

// SerialPortOpener opens a real serial port.
func SerialPortOpener(name string, baudRate int) (io.ReadCloser, error) {
	return serial.OpenPort(&serial.Config{Name: name, Baud: baudRate})
}

// NMEAWatcher streams fixes from a GPS receiver that speaks NMEA 0183.
type NMEAWatcher struct {
	port     string  // Serial port to which the GPS device is connected
	baudRate int     // Baud rate for the serial communication
	uere     float64 // Meters per unit of HDOP

	open    PortOpener
	logger  zerolog.Logger
	watches cmap.ConcurrentMap[string, *nmeaWatch]
}

type nmeaWatch struct {
	stop     chan struct{}
	stopOnce sync.Once
	port     io.ReadCloser
}

// NewNMEAWatcher creates a watcher for the given port. A nil opener uses SerialPortOpener
// and a non-positive uere uses DefaultUERE.
func NewNMEAWatcher(port string, baudRate int, uere float64, open PortOpener, logger zerolog.Logger) *NMEAWatcher {
	if open == nil {
		open = SerialPortOpener
	}
	if uere <= 0 {
		uere = DefaultUERE
	}

	return &NMEAWatcher{
		port:     port,
		baudRate: baudRate,
		uere:     uere,
		open:     open,
		logger:   logger,
		watches:  cmap.New[*nmeaWatch](),
	}
}

// StartWatch opens the port and delivers every valid GGA fix until cancelled.
// The receiver streams live data, so MaxCacheAge has nothing to filter.
func (d *NMEAWatcher) StartWatch(opts WatchOptions, onSample func(PositionSample), onError func(error)) (WatchID, error) {
	port, err := d.open(d.port, d.baudRate)
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %v", ErrPositionUnavailable, d.port, err)
	}

	id := WatchID(uuid.NewString())
	w := &nmeaWatch{
		stop: make(chan struct{}),
		port: port,
	}
	d.watches.Set(string(id), w)

	go d.run(w, opts, onSample, onError)

	d.logger.Debug().Str("port", d.port).Str("watch_id", string(id)).Msg("GPS watch started")
	return id, nil
}

// CancelWatch stops the watch and closes the port. A callback already in
// flight may still complete.
func (d *NMEAWatcher) CancelWatch(id WatchID) {
	w, ok := d.watches.Pop(string(id))
	if !ok {
		return
	}
	w.close()
	d.logger.Debug().Str("watch_id", string(id)).Msg("GPS watch cancelled")
}

// ActiveWatches returns the number of open watches.
func (d *NMEAWatcher) ActiveWatches() int {
	return d.watches.Count()
}

func (w *nmeaWatch) close() {
	w.stopOnce.Do(func() {
		close(w.stop)
		w.port.Close()
	})
}

func (w *nmeaWatch) stopped() bool {
	select {
	case <-w.stop:
		return true
	default:
		return false
	}
}

func (d *NMEAWatcher) run(w *nmeaWatch, opts WatchOptions, onSample func(PositionSample), onError func(error)) {
	lines := make(chan string)
	readErr := make(chan error, 1)

	go func() {
		scanner := bufio.NewScanner(w.port)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-w.stop:
				return
			}
		}
		if err := scanner.Err(); err != nil {
			readErr <- err
			return
		}
		readErr <- io.EOF
	}()

	var fixTimeout <-chan time.Time
	var fixTimer *time.Timer
	if opts.PerFixTimeout > 0 {
		fixTimer = time.NewTimer(opts.PerFixTimeout)
		defer fixTimer.Stop()
		fixTimeout = fixTimer.C
	}

	for {
		select {
		case <-w.stop:
			return

		case line := <-lines:
			sample, ok := d.parseFix(line)
			if !ok || w.stopped() {
				continue
			}
			if fixTimer != nil {
				fixTimer.Reset(opts.PerFixTimeout)
			}
			onSample(sample)

		case <-fixTimeout:
			if w.stopped() {
				return
			}
			onError(ErrFixTimeout)
			fixTimer.Reset(opts.PerFixTimeout)

		case err := <-readErr:
			if w.stopped() {
				return
			}
			onError(fmt.Errorf("%w: read %s: %v", ErrPositionUnavailable, d.port, err))
			return
		}
	}
}

// parseFix turns a GGA sentence into a sample. Other sentences, corrupt
// lines and fixes without a position are skipped.
func (d *NMEAWatcher) parseFix(line string) (PositionSample, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") {
		return PositionSample{}, false
	}

	sentence, err := nmea.Parse(line)
	if err != nil {
		d.logger.Debug().Err(err).Str("line", line).Msg("Skipping unparsable NMEA sentence")
		return PositionSample{}, false
	}

	gga, ok := sentence.(nmea.GGA)
	if !ok || gga.FixQuality == nmea.Invalid || gga.HDOP <= 0 {
		return PositionSample{}, false
	}

	return PositionSample{
		Latitude:       gga.Latitude,
		Longitude:      gga.Longitude,
		AccuracyMeters: gga.HDOP * d.uere,
		CapturedAt:     time.Now(),
		Source:         nmeaSource,
	}, true
}
