// Package capture sequences one waveform acquisition: stop the instrument,
// wait for it to report ready, configure the waveform source, query the
// calibration preamble and the binary sample block, convert, and store.
//
// The pipeline is strictly sequential. The instrument link is a synchronous
// single-outstanding-request transport, so no two captures may run
// concurrently against the same link; callers serialize capture requests
// through one Controller.
//
// Instead of a fixed settle sleep after :STOP, the controller polls the
// trigger status until the instrument reports stopped or a deadline lapses.
// A lapsed deadline fails the capture rather than risking a read of a
// still-moving acquisition.
package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/wavecap/internal/preamble"
	"github.com/roach88/wavecap/internal/scpi"
	"github.com/roach88/wavecap/internal/tmc"
	"github.com/roach88/wavecap/internal/wave"
	"github.com/roach88/wavecap/internal/wavestore"
)

// Instrument commands used by the capture sequence.
const (
	cmdStop          = ":STOP"
	queryTriggerStat = ":TRIG:STAT?"
	cmdWaveSource    = ":WAV:SOUR CHAN%d"
	cmdWaveMode      = ":WAV:MODE NORM"
	cmdWaveFormat    = ":WAV:FORM BYTE"
	queryPreamble    = ":WAV:PRE?"
	queryWaveData    = ":WAV:DATA?"

	// triggerStopped is the trigger status reply meaning acquisition has
	// stopped and the sample memory is stable.
	triggerStopped = "STOP"
)

// Default ready-poll parameters.
const (
	DefaultReadyPollInterval = 20 * time.Millisecond
	DefaultReadyTimeout      = 2 * time.Second
)

// CaptureJournal records completed captures. Satisfied by *journal.Journal.
// Journal failures are logged, never fatal: a capture that reached the
// journal step has already succeeded.
type CaptureJournal interface {
	RecordCapture(ctx context.Context, w *wave.Waveform) error
}

// Options configures a Controller. The zero value is usable.
type Options struct {
	// Journal, if non-nil, receives a record of every completed capture.
	Journal CaptureJournal

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now defaults to time.Now. Tests inject a deterministic clock.
	Now func() time.Time

	// IDs defaults to UUIDv7Generator.
	IDs IDGenerator

	// Describe labels a new capture. Defaults to "CH<n> capture".
	Describe func(channel int) string

	// ReadyPollInterval and ReadyTimeout bound the post-stop status poll.
	ReadyPollInterval time.Duration
	ReadyTimeout      time.Duration
}

// Controller owns the capture sequence for one instrument link.
type Controller struct {
	link  scpi.Link
	store *wavestore.Store
	opts  Options
}

// New creates a Controller writing into store over link.
func New(link scpi.Link, store *wavestore.Store, opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.IDs == nil {
		opts.IDs = UUIDv7Generator{}
	}
	if opts.Describe == nil {
		opts.Describe = func(channel int) string {
			return fmt.Sprintf("CH%d capture", channel)
		}
	}
	if opts.ReadyPollInterval <= 0 {
		opts.ReadyPollInterval = DefaultReadyPollInterval
	}
	if opts.ReadyTimeout <= 0 {
		opts.ReadyTimeout = DefaultReadyTimeout
	}
	return &Controller{link: link, store: store, opts: opts}
}

// Store returns the waveform store this controller writes into.
func (c *Controller) Store() *wavestore.Store {
	return c.store
}

// Capture acquires one waveform from the given 1-based channel, inserts it
// into the store, and returns it.
//
// On any failure Capture returns a nil waveform and a *Error; the store and
// journal are left unchanged. A capture never returns a partially populated
// waveform.
func (c *Controller) Capture(ctx context.Context, channel int) (*wave.Waveform, error) {
	log := c.opts.Logger.With("channel", channel)

	if channel < 1 {
		return nil, newError(ErrCodeInvalidChannel, channel,
			fmt.Sprintf("channel must be >= 1, got %d", channel), nil)
	}
	if !c.link.IsConnected() {
		return nil, newError(ErrCodeLinkUnavailable, channel, "instrument link is not connected", nil)
	}

	// Stop acquisition and wait for the instrument to confirm.
	if err := c.link.SendCommand(cmdStop); err != nil {
		return nil, newError(ErrCodeConfigFailed, channel, "stop command failed", err)
	}
	if err := c.waitReady(ctx); err != nil {
		return nil, err
	}

	// Configure waveform readout: source channel, normal mode, byte format.
	for _, cmd := range []string{
		fmt.Sprintf(cmdWaveSource, channel),
		cmdWaveMode,
		cmdWaveFormat,
	} {
		if err := c.link.SendCommand(cmd); err != nil {
			return nil, newError(ErrCodeConfigFailed, channel,
				fmt.Sprintf("configuration command %q failed", cmd), err)
		}
	}

	// Calibration preamble. The parser is total; an empty reply only costs
	// us the per-field defaults, so it is logged rather than fatal.
	preambleReply, err := c.link.SendQuery(queryPreamble)
	if err != nil {
		log.Warn("preamble query failed, using calibration defaults", "error", err)
		preambleReply = ""
	}
	if strings.TrimSpace(preambleReply) == "" {
		log.Warn("instrument returned an empty calibration preamble")
	}
	rec := preamble.Parse(preambleReply)

	// Binary sample block. Zero payload bytes fail the capture.
	block, err := c.link.SendBinaryQuery(queryWaveData)
	if err != nil {
		return nil, newError(ErrCodeEmptyPayload, channel, "waveform data query failed", err)
	}
	payload, decodeErr := tmc.Decode(block)
	if len(payload) == 0 {
		return nil, newError(ErrCodeEmptyPayload, channel, "waveform block decoded to zero bytes", decodeErr)
	}

	// The payload aliases the link's read buffer; copy before retaining.
	raw := make([]byte, len(payload))
	copy(raw, payload)

	volts, times := wave.Convert(raw, rec)

	w := &wave.Waveform{
		ID:          c.opts.IDs.Generate(),
		Channel:     channel,
		CapturedAt:  c.opts.Now(),
		Raw:         raw,
		Volts:       volts,
		Times:       times,
		Calibration: rec,
	}
	w.SetDescription(c.opts.Describe(channel))

	c.store.Insert(w)
	log.Info("capture complete", "id", w.ID, "samples", w.Samples())

	if c.opts.Journal != nil {
		if err := c.opts.Journal.RecordCapture(ctx, w); err != nil {
			log.Warn("journal write failed", "id", w.ID, "error", err)
		}
	}
	return w, nil
}

// waitReady polls the trigger status until the instrument reports stopped,
// the deadline lapses, or ctx is cancelled.
func (c *Controller) waitReady(ctx context.Context) error {
	deadline := time.NewTimer(c.opts.ReadyTimeout)
	defer deadline.Stop()

	for {
		status, err := c.link.SendQuery(queryTriggerStat)
		if err != nil {
			return newError(ErrCodeNotReady, 0, "trigger status query failed", err)
		}
		if strings.TrimSpace(status) == triggerStopped {
			return nil
		}

		select {
		case <-ctx.Done():
			return newError(ErrCodeNotReady, 0, "capture cancelled while waiting for instrument", ctx.Err())
		case <-deadline.C:
			return newError(ErrCodeNotReady, 0,
				fmt.Sprintf("instrument did not stop within %s (last status %q)", c.opts.ReadyTimeout, status), nil)
		case <-time.After(c.opts.ReadyPollInterval):
		}
	}
}
