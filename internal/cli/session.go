package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/roach88/wavecap/internal/capture"
	"github.com/roach88/wavecap/internal/config"
	"github.com/roach88/wavecap/internal/journal"
	"github.com/roach88/wavecap/internal/scpi"
	"github.com/roach88/wavecap/internal/wavestore"
)

// session bundles everything a connected command needs: configuration, the
// instrument link, the in-memory store, the controller, and the journal.
type session struct {
	cfg     *config.Config
	link    scpi.Link
	store   *wavestore.Store
	ctrl    *capture.Controller
	journal *journal.Journal // nil when disabled
}

// setupLogging configures the process-wide logger from the verbose flag.
func setupLogging(opts *RootOptions) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// sessionOptions customizes controller wiring per command.
type sessionOptions struct {
	describe func(channel int) string
}

// openSession loads configuration, connects the instrument, and wires the
// capture controller. Callers must Close the session.
func openSession(opts *RootOptions, sessOpts sessionOptions) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}

	link, err := connect(cfg)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to connect to instrument", err)
	}
	if idn, idErr := scpi.Identify(link); idErr == nil {
		slog.Debug("instrument identified", "idn", idn)
	}

	var jnl *journal.Journal
	if cfg.Journal.Path != "" {
		jnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			link.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
		}
	}

	store := wavestore.New(cfg.Store.Capacity)
	ctrl := capture.New(link, store, capture.Options{
		Journal:           journalOrNil(jnl),
		Logger:            slog.Default(),
		Describe:          sessOpts.describe,
		ReadyPollInterval: cfg.Capture.ReadyPollInterval.Std(),
		ReadyTimeout:      cfg.Capture.ReadyTimeout.Std(),
	})

	return &session{cfg: cfg, link: link, store: store, ctrl: ctrl, journal: jnl}, nil
}

// journalOrNil avoids storing a typed-nil *journal.Journal in the
// controller's interface field.
func journalOrNil(j *journal.Journal) capture.CaptureJournal {
	if j == nil {
		return nil
	}
	return j
}

// connect opens the configured transport.
func connect(cfg *config.Config) (scpi.Link, error) {
	switch cfg.Instrument.Transport {
	case "tcp":
		return scpi.DialTCP(cfg.Instrument.Address)
	case "serial":
		return scpi.OpenSerial(cfg.Instrument.Address, cfg.Instrument.Baud)
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Instrument.Transport)
	}
}

// Close releases the link and the journal.
func (s *session) Close() {
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			slog.Error("error closing journal", "error", err)
		}
	}
	if err := s.link.Close(); err != nil {
		slog.Error("error closing instrument link", "error", err)
	}
}
