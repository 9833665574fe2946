package commands

import (
	"fmt"
	"strings"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/internal/cli/output"
	"github.com/marmos91/animbridge/pkg/host"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/spf13/cobra"
)

var statusSocket bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and scene status",
	Long: `Show the daemon's status snapshot from its HTTP API: bound port, queue,
last scheduler drain, scene, blend session and registered handlers.

With --socket, or when the API is unreachable, get_status is sent over the
command socket instead.

Examples:
  animbridgectl status
  animbridgectl status --socket
  animbridgectl status -o yaml`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusSocket, "socket", false, "Query over the command socket instead of the API")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if !statusSocket {
		client, err := cmdutil.GetAPIClient()
		if err == nil {
			st, apiErr := client.Status(ctx)
			if apiErr == nil {
				return cmdutil.PrintResource(w, st, statusKeyValues(st))
			}
			err = apiErr
		}
		if cmdutil.Flags.Verbose {
			fmt.Fprintf(cmd.ErrOrStderr(), "API unavailable (%v), using the command socket\n", err)
		}
	}

	return cmdutil.RunCommand(ctx, w, protocol.NewCommand(protocol.TypeGetStatus, nil))
}

func statusKeyValues(st *host.Status) output.KeyValues {
	var kv output.KeyValues
	kv.Add("Version", st.Version)
	kv.Add("Ready", output.YesNo(st.Ready))
	kv.Add("Port", fmt.Sprintf("%d", st.BoundPort))
	kv.Add("Uptime", output.FormatUptime(st.Uptime))
	kv.Add("Sessions", fmt.Sprintf("%d", st.ActiveSessions))
	kv.Add("Queue depth", fmt.Sprintf("%d", st.QueueDepth))
	kv.Add("Last drain", fmt.Sprintf("%d run, %d heavy, %d deferred in %.1fms (%s)",
		st.LastDrain.Executed, st.LastDrain.Heavy, st.LastDrain.Deferred, st.LastDrain.ElapsedMs,
		cmdutil.EmptyOr(st.LastDrain.Reason, "-")))
	kv.Add("Armatures", cmdutil.EmptyOr(strings.Join(st.Scene.Armatures, ", "), "-"))
	kv.Add("Active", cmdutil.EmptyOr(st.Scene.ActiveArmature, "-"))
	kv.Add("Mode", st.Scene.Mode)
	kv.Add("Frame", fmt.Sprintf("%g", st.Scene.Frame))
	kv.Add("Auto key", output.YesNo(st.Scene.AutoKey))
	kv.Add("Action", cmdutil.EmptyOr(st.Scene.CurrentAction, "-"))
	kv.Add("Loaded actions", fmt.Sprintf("%d", st.Scene.LoadedActions))
	kv.Add("Blend", blendSummary(st.Blend))
	if st.Mailbox != nil {
		kv.Add("Mailbox", fmt.Sprintf("%s (%s, %s), %d consumed",
			st.Mailbox.Dir, st.Mailbox.Layout, st.Mailbox.Order, st.Mailbox.Consumed))
	} else {
		kv.Add("Mailbox", "disabled")
	}

	handlers := make([]string, 0, len(st.Handlers))
	for _, h := range st.Handlers {
		name := h.Type
		if h.Heavy {
			name += "*"
		}
		handlers = append(handlers, name)
	}
	kv.Add("Handlers", strings.Join(handlers, ", ")+" (* heavy)")
	return kv
}

func blendSummary(b host.BlendStatus) string {
	if b.Target == "" {
		return cmdutil.EmptyOr(b.State, "-")
	}
	s := fmt.Sprintf("%s toward %s at %.2f", b.State, b.Target, b.Factor)
	if b.Mirror {
		s += " (mirrored)"
	}
	return s
}
