package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/marmos91/animbridge/internal/cli/output"
	"github.com/marmos91/animbridge/pkg/apiclient"
	"github.com/spf13/cobra"
)

var (
	statusOutput  string
	statusPidFile string
	statusAPIPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Display the current status of the animbridge daemon.

Checks the PID file, then asks the HTTP API for the readiness probe and the
host snapshot: bound command port, queue depth, sessions and blend state.

Examples:
  # Check status (uses default settings)
  animbridge status

  # Check status with custom API port
  animbridge status --api-port 9080

  # Output as JSON
  animbridge status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusPidFile, "pid-file", "", "Path to PID file (default: $XDG_STATE_HOME/animbridge/animbridge.pid)")
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 9877, "API server port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// DaemonStatus is what `animbridge status` reports.
type DaemonStatus struct {
	Running    bool      `json:"running" yaml:"running"`
	PID        int       `json:"pid,omitempty" yaml:"pid,omitempty"`
	Ready      bool      `json:"ready" yaml:"ready"`
	Message    string    `json:"message" yaml:"message"`
	StartedAt  time.Time `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	Uptime     string    `json:"uptime,omitempty" yaml:"uptime,omitempty"`
	BoundPort  int       `json:"bound_port,omitempty" yaml:"bound_port,omitempty"`
	QueueDepth int       `json:"queue_depth" yaml:"queue_depth"`
	Sessions   int       `json:"active_sessions" yaml:"active_sessions"`
	Blend      string    `json:"blend,omitempty" yaml:"blend,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	pidPath := statusPidFile
	if pidPath == "" {
		pidPath = GetDefaultPidFile()
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
	defer cancel()

	status := collectStatus(ctx, pidPath, apiclient.New(fmt.Sprintf("http://127.0.0.1:%d", statusAPIPort)))

	printer := output.NewPrinter(cmd.OutOrStdout(), format, true)
	if format != output.FormatTable {
		return printer.Print(status)
	}
	printStatusTable(printer, status)
	return nil
}

// collectStatus combines the PID file with the API view. The API also
// answers for daemons started in the foreground without a PID file.
func collectStatus(ctx context.Context, pidPath string, client *apiclient.Client) DaemonStatus {
	status := DaemonStatus{Message: "Daemon is not running"}

	if pid, running := isProcessRunning(pidPath); running {
		status.Running = true
		status.PID = pid
	}

	if _, err := client.Live(ctx); err != nil {
		if status.Running {
			status.Message = "Daemon process exists but the API is not answering"
		}
		return status
	}
	status.Running = true

	st, err := client.Status(ctx)
	if err != nil {
		status.Message = fmt.Sprintf("Daemon is running but status failed: %v", err)
		return status
	}

	status.Ready = st.Ready
	status.StartedAt = st.StartedAt
	status.Uptime = st.Uptime
	status.BoundPort = st.BoundPort
	status.QueueDepth = st.QueueDepth
	status.Sessions = st.ActiveSessions
	status.Blend = st.Blend.State
	if st.Ready {
		status.Message = fmt.Sprintf("Daemon is accepting commands on port %d", st.BoundPort)
	} else {
		status.Message = "Daemon is running but the command listener is not bound"
	}
	return status
}

func printStatusTable(p *output.Printer, status DaemonStatus) {
	p.Printf("\nanimbridge Daemon Status\n========================\n\n")

	if !status.Running {
		p.Error("  Status:     ○ Stopped")
		p.Printf("\n  %s\n\n", status.Message)
		return
	}

	if status.Ready {
		p.Success("  Status:     ● Running")
	} else {
		p.Warning("  Status:     ● Running (not ready)")
	}
	if status.PID > 0 {
		p.Printf("  PID:        %d\n", status.PID)
	}
	if !status.StartedAt.IsZero() {
		p.Printf("  Started:    %s\n", output.FormatTime(status.StartedAt))
	}
	if status.Uptime != "" {
		p.Printf("  Uptime:     %s\n", output.FormatUptime(status.Uptime))
	}
	if status.BoundPort > 0 {
		p.Printf("  Port:       %d\n", status.BoundPort)
	}
	p.Printf("  Queue:      %d pending\n", status.QueueDepth)
	p.Printf("  Sessions:   %d\n", status.Sessions)
	if status.Blend != "" {
		p.Printf("  Blend:      %s\n", status.Blend)
	}
	p.Printf("\n  %s\n\n", status.Message)
}

// stderrf writes a diagnostic line that should not pollute structured output.
func stderrf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format, args...)
}
