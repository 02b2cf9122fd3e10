package capture

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wavecap/internal/testutil"
	"github.com/roach88/wavecap/internal/wave"
	"github.com/roach88/wavecap/internal/wavestore"
)

var captureStart = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// rampLink scripts a healthy instrument returning four ramp samples.
func rampLink() *testutil.FakeLink {
	link := testutil.NewFakeLink()
	link.Replies[":TRIG:STAT?"] = "STOP"
	link.Replies[":WAV:PRE?"] = "0,0,4,1,1e-6,0,0,0.001,0,128"
	link.Binary[":WAV:DATA?"] = append([]byte("#9000000004"), 128, 129, 130, 131)
	return link
}

func newTestController(link *testutil.FakeLink, store *wavestore.Store) *Controller {
	return New(link, store, Options{
		Logger:            quietLogger(),
		Now:               testutil.NewClock(captureStart, time.Second).Now,
		IDs:               NewFixedGenerator("id-1", "id-2", "id-3"),
		ReadyPollInterval: time.Millisecond,
		ReadyTimeout:      100 * time.Millisecond,
	})
}

func TestCapture_EndToEnd(t *testing.T) {
	link := rampLink()
	store := wavestore.New(10)
	c := newTestController(link, store)

	w, err := c.Capture(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, w)

	assert.Equal(t, "id-1", w.ID)
	assert.Equal(t, 1, w.Channel)
	assert.True(t, w.CapturedAt.Equal(captureStart))
	assert.Equal(t, []byte{128, 129, 130, 131}, w.Raw)
	assert.Equal(t, "CH1 capture", w.Description)

	require.Len(t, w.Volts, 4)
	require.Len(t, w.Times, 4)
	for i, want := range []float64{0.000, 0.001, 0.002, 0.003} {
		assert.InDelta(t, want, w.Volts[i], 1e-9, "volts[%d]", i)
	}
	for i, want := range []float64{0, 1e-6, 2e-6, 3e-6} {
		assert.InDelta(t, want, w.Times[i], 1e-15, "times[%d]", i)
	}

	require.Equal(t, 1, store.Len())
	assert.Same(t, w, store.List()[0])
}

func TestCapture_CommandSequence(t *testing.T) {
	link := rampLink()
	c := newTestController(link, wavestore.New(10))

	_, err := c.Capture(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, []string{
		":STOP",
		":TRIG:STAT?",
		":WAV:SOUR CHAN3",
		":WAV:MODE NORM",
		":WAV:FORM BYTE",
		":WAV:PRE?",
		":WAV:DATA?",
	}, link.Sent())
}

func TestCapture_InvalidChannel(t *testing.T) {
	link := rampLink()
	c := newTestController(link, wavestore.New(10))

	w, err := c.Capture(context.Background(), 0)
	assert.Nil(t, w)
	assert.Equal(t, ErrCodeInvalidChannel, CodeOf(err))
	assert.Empty(t, link.Sent(), "nothing sent for an invalid channel")
}

func TestCapture_LinkUnavailable(t *testing.T) {
	link := rampLink()
	link.Connected = false
	c := newTestController(link, wavestore.New(10))

	w, err := c.Capture(context.Background(), 1)
	assert.Nil(t, w)
	assert.Equal(t, ErrCodeLinkUnavailable, CodeOf(err))
	assert.Empty(t, link.Sent(), "capture aborts before any command is sent")
}

func TestCapture_WaitsThroughRunningStates(t *testing.T) {
	link := rampLink()
	link.ReplySeq[":TRIG:STAT?"] = []string{"RUN", "RUN", "STOP"}
	c := newTestController(link, wavestore.New(10))

	w, err := c.Capture(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, w)
}

func TestCapture_ReadyTimeout(t *testing.T) {
	link := rampLink()
	link.Replies[":TRIG:STAT?"] = "RUN"
	store := wavestore.New(10)
	c := newTestController(link, store)

	w, err := c.Capture(context.Background(), 1)
	assert.Nil(t, w)
	assert.Equal(t, ErrCodeNotReady, CodeOf(err))
	assert.Zero(t, store.Len(), "store untouched on failure")
}

func TestCapture_CancelledWhileWaiting(t *testing.T) {
	link := rampLink()
	link.Replies[":TRIG:STAT?"] = "RUN"
	c := newTestController(link, wavestore.New(10))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w, err := c.Capture(ctx, 1)
	assert.Nil(t, w)
	assert.Equal(t, ErrCodeNotReady, CodeOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCapture_ConfigCommandFailure(t *testing.T) {
	link := rampLink()
	link.Fail[":WAV:MODE NORM"] = errors.New("instrument nak")
	store := wavestore.New(10)
	c := newTestController(link, store)

	w, err := c.Capture(context.Background(), 1)
	assert.Nil(t, w)
	assert.Equal(t, ErrCodeConfigFailed, CodeOf(err))
	assert.Zero(t, store.Len())
}

func TestCapture_EmptyPreambleUsesDefaults(t *testing.T) {
	link := rampLink()
	link.Replies[":WAV:PRE?"] = ""
	c := newTestController(link, wavestore.New(10))

	w, err := c.Capture(context.Background(), 1)
	require.NoError(t, err, "empty preamble is not fatal")
	// Default yreference=127, yincrement=0.001: code 128 is one step up.
	assert.InDelta(t, 0.001, w.Volts[0], 1e-9)
}

func TestCapture_MalformedBlockFails(t *testing.T) {
	link := rampLink()
	link.Binary[":WAV:DATA?"] = []byte("garbage reply here")
	store := wavestore.New(10)
	c := newTestController(link, store)

	w, err := c.Capture(context.Background(), 1)
	assert.Nil(t, w)
	assert.Equal(t, ErrCodeEmptyPayload, CodeOf(err))
	assert.Zero(t, store.Len())
}

func TestCapture_SuccessiveCapturesGetIncreasingTimes(t *testing.T) {
	link := rampLink()
	store := wavestore.New(10)
	c := newTestController(link, store)

	w1, err := c.Capture(context.Background(), 1)
	require.NoError(t, err)
	w2, err := c.Capture(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, w2.CapturedAt.After(w1.CapturedAt))
	assert.Equal(t, 2, store.Len())
}

// recordingJournal captures journal calls; failingJournal always errors.
type recordingJournal struct{ got []*wave.Waveform }

func (r *recordingJournal) RecordCapture(_ context.Context, w *wave.Waveform) error {
	r.got = append(r.got, w)
	return nil
}

type failingJournal struct{}

func (failingJournal) RecordCapture(context.Context, *wave.Waveform) error {
	return errors.New("disk full")
}

func TestCapture_WritesJournal(t *testing.T) {
	link := rampLink()
	rec := &recordingJournal{}
	c := New(link, wavestore.New(10), Options{
		Logger:  quietLogger(),
		Journal: rec,
		Now:     testutil.NewClock(captureStart, time.Second).Now,
		IDs:     NewFixedGenerator("id-1"),
	})

	w, err := c.Capture(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, rec.got, 1)
	assert.Same(t, w, rec.got[0])
}

func TestCapture_JournalFailureIsNotFatal(t *testing.T) {
	link := rampLink()
	store := wavestore.New(10)
	c := New(link, store, Options{
		Logger:  quietLogger(),
		Journal: failingJournal{},
		Now:     testutil.NewClock(captureStart, time.Second).Now,
		IDs:     NewFixedGenerator("id-1"),
	})

	w, err := c.Capture(context.Background(), 1)
	require.NoError(t, err, "journal failure does not fail the capture")
	assert.NotNil(t, w)
	assert.Equal(t, 1, store.Len())
}
