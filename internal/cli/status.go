package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/wavecap/internal/scpi"
)

// statusResult is the status command's output payload.
type statusResult struct {
	Transport string `json:"transport"`
	Address   string `json:"address"`
	Connected bool   `json:"connected"`
	Identity  string `json:"identity,omitempty"`
	Journal   string `json:"journal,omitempty"`
}

func (r statusResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Instrument: %s (%s)\n", r.Address, r.Transport)
	fmt.Fprintf(&b, "Connected: %t\n", r.Connected)
	if r.Identity != "" {
		fmt.Fprintf(&b, "Identity: %s\n", r.Identity)
	}
	if r.Journal != "" {
		fmt.Fprintf(&b, "Journal: %s\n", r.Journal)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show instrument connection and identity",
		Long: `Connect to the configured instrument, query its *IDN? identity string,
and report the connection state.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	setupLogging(opts)

	sess, err := openSession(opts, sessionOptions{})
	if err != nil {
		return err
	}
	defer sess.Close()

	result := statusResult{
		Transport: sess.cfg.Instrument.Transport,
		Address:   sess.cfg.Instrument.Address,
		Connected: sess.link.IsConnected(),
		Journal:   sess.cfg.Journal.Path,
	}
	if result.Connected {
		idn, err := scpi.Identify(sess.link)
		if err != nil {
			return WrapExitError(ExitFailure, "identity query failed", err)
		}
		result.Identity = idn
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	return formatter.Success(result)
}
