package commands

import (
	"fmt"
	"time"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/internal/cli/output"
	"github.com/spf13/cobra"
)

var (
	pingCount    int
	pingInterval time.Duration
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the daemon answers on its command socket",
	Long: `Send ping commands over one connection and report round-trip times.

Examples:
  animbridgectl ping
  animbridgectl ping -c 5 --port 9877`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	pingCmd.Flags().IntVarP(&pingCount, "count", "c", 1, "Number of pings")
	pingCmd.Flags().DurationVarP(&pingInterval, "interval", "i", time.Second, "Delay between pings")
}

// PingResult is one round trip.
type PingResult struct {
	Seq int           `json:"seq" yaml:"seq"`
	RTT time.Duration `json:"rtt_ns" yaml:"rtt_ns"`
}

// PingResults renders as a table.
type PingResults []PingResult

// Headers implements TableRenderer.
func (pr PingResults) Headers() []string { return []string{"SEQ", "RTT"} }

// Rows implements TableRenderer.
func (pr PingResults) Rows() [][]string {
	rows := make([][]string, 0, len(pr))
	for _, r := range pr {
		rows = append(rows, []string{fmt.Sprintf("%d", r.Seq), output.FormatDuration(r.RTT)})
	}
	return rows
}

func runPing(cmd *cobra.Command, args []string) error {
	if pingCount < 1 {
		return fmt.Errorf("--count must be at least 1")
	}

	ctx := cmd.Context()
	client, err := cmdutil.Dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	results := make(PingResults, 0, pingCount)
	for i := 1; i <= pingCount; i++ {
		if i > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pingInterval):
			}
		}
		rtt, err := client.Ping(ctx)
		if err != nil {
			return fmt.Errorf("ping %d: %w", i, err)
		}
		results = append(results, PingResult{Seq: i, RTT: rtt})
	}

	return cmdutil.PrintOutput(cmd.OutOrStdout(), results, false, "", results)
}
