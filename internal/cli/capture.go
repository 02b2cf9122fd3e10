package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/wavecap/internal/export"
	"github.com/roach88/wavecap/internal/wave"
)

// CaptureOptions holds flags for the capture command.
type CaptureOptions struct {
	*RootOptions
	Channel      int
	Count        int
	Out          string
	ExportDir    string
	ExportFormat string
	Description  string
}

// capturedInfo is the per-capture payload for command output.
type capturedInfo struct {
	ID         string `json:"id"`
	Channel    int    `json:"channel"`
	Samples    int    `json:"samples"`
	CapturedAt string `json:"captured_at"`
	ExportPath string `json:"export_path,omitempty"`
}

// captureResult is the capture command's output payload.
type captureResult struct {
	Captures []capturedInfo `json:"captures"`
	Memory   string         `json:"memory_status"`
}

func (r captureResult) String() string {
	var b strings.Builder
	for _, c := range r.Captures {
		fmt.Fprintf(&b, "captured %s: CH%d, %d samples at %s\n", c.ID, c.Channel, c.Samples, c.CapturedAt)
		if c.ExportPath != "" {
			fmt.Fprintf(&b, "  exported to %s\n", c.ExportPath)
		}
	}
	b.WriteString(r.Memory)
	return strings.TrimRight(b.String(), "\n")
}

// NewCaptureCommand creates the capture command.
func NewCaptureCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CaptureOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture waveforms from the instrument",
		Long: `Capture one or more waveforms from the configured instrument.

Each capture stops acquisition, waits for the instrument to report a stable
trigger state, reads the calibration preamble and the binary sample block,
and converts raw codes to voltage/time. Every capture is exported: --out
names the destination for a single capture, --export-dir overrides the
configured export directory for any count.

Example:
  wavecap capture --channel 1 --out ch1.csv
  wavecap capture --channel 2 --count 5 --export-dir ./waves --export-format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Channel, "channel", "c", 1, "source channel (1-based)")
	cmd.Flags().IntVarP(&opts.Count, "count", "n", 1, "number of captures to take")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "export path for a single capture")
	cmd.Flags().StringVar(&opts.ExportDir, "export-dir", "", "directory to export every capture into")
	cmd.Flags().StringVar(&opts.ExportFormat, "export-format", "", "export format (csv|json|matlab|raw|annotated)")
	cmd.Flags().StringVarP(&opts.Description, "description", "d", "", "label stored with each capture")

	return cmd
}

func runCapture(ctx context.Context, opts *CaptureOptions, cmd *cobra.Command) error {
	setupLogging(opts.RootOptions)

	if opts.Count < 1 {
		return NewExitError(ExitCommandError, fmt.Sprintf("count must be >= 1, got %d", opts.Count))
	}
	if opts.Out != "" && opts.Count > 1 {
		return NewExitError(ExitCommandError, "--out only applies to a single capture; use --export-dir with --count")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	sessOpts := sessionOptions{}
	if opts.Description != "" {
		sessOpts.describe = func(int) string { return opts.Description }
	}
	sess, err := openSession(opts.RootOptions, sessOpts)
	if err != nil {
		return err
	}
	defer sess.Close()

	formatName := opts.ExportFormat
	if formatName == "" {
		formatName = sess.cfg.Export.Format
	}
	exportFormat, err := export.ParseFormat(formatName)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid export format", err)
	}

	result := captureResult{}
	for i := 0; i < opts.Count; i++ {
		w, err := sess.ctrl.Capture(ctx, opts.Channel)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("capture %d/%d failed", i+1, opts.Count), err)
		}

		info := capturedInfo{
			ID:         w.ID,
			Channel:    w.Channel,
			Samples:    w.Samples(),
			CapturedAt: w.CapturedAt.UTC().Format(time.RFC3339),
		}

		path := exportPath(opts, sess.cfg.Export.Dir, w, exportFormat)
		n, err := export.Write(w, path, exportFormat)
		if err != nil {
			return WrapExitError(ExitFailure, fmt.Sprintf("export to %s failed", path), err)
		}
		info.ExportPath = path
		if sess.journal != nil {
			if jerr := sess.journal.RecordExport(ctx, w.ID, path, string(exportFormat), n, time.Now().UTC()); jerr != nil {
				slog.Warn("journal export write failed", "id", w.ID, "error", jerr)
			}
		}
		result.Captures = append(result.Captures, info)
	}
	result.Memory = sess.store.MemoryStatus()

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return formatter.Success(result)
}

// exportPath decides where a capture is written. --out names the file
// directly; otherwise the capture lands in --export-dir or the configured
// export directory under a generated name.
func exportPath(opts *CaptureOptions, defaultDir string, w *wave.Waveform, f export.Format) string {
	if opts.Out != "" {
		return opts.Out
	}
	dir := opts.ExportDir
	if dir == "" {
		dir = defaultDir
	}
	name := fmt.Sprintf("ch%d_%s%s", w.Channel, w.ID, f.Ext())
	return filepath.Join(dir, name)
}
