package mailbox

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/pkg/mailbox"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/spf13/cobra"
)

var (
	enqueueName   string
	enqueueMirror bool
	enqueueMode   string
	enqueueParams []string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <animation|pose|command> <id-or-type>",
	Short: "Write a request file",
	Long: `Write a pending request the daemon will execute on its next poll.

animation and pose take a catalog id. command takes a command type; its
payload comes from repeated --param key=value flags, where value is parsed
as JSON when possible (numbers, booleans, arrays) and as a string otherwise.

Examples:
  animbridgectl mailbox enqueue animation walk-cycle --mode INSERT
  animbridgectl mailbox enqueue pose fist --mirror
  animbridgectl mailbox enqueue command blend_pose --param blend_factor=0.5`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{mailbox.KindAnimation, mailbox.KindPose, "command"},
	RunE:      runEnqueue,
}

func init() {
	f := enqueueCmd.Flags()
	f.StringVar(&enqueueName, "name", "", "Display name")
	f.BoolVar(&enqueueMirror, "mirror", false, "Mirror left/right bones")
	f.StringVar(&enqueueMode, "mode", protocol.ApplyModeNew, "Apply mode for animations (NEW|INSERT)")
	f.StringArrayVar(&enqueueParams, "param", nil, "Command payload entry key=value (repeatable)")
}

func buildRequest(kind, target string) (mailbox.Request, error) {
	switch kind {
	case mailbox.KindAnimation:
		opts := protocol.DefaultApplyOptions()
		opts.ApplyMode = strings.ToUpper(enqueueMode)
		opts.Mirror = enqueueMirror
		if opts.ApplyMode != protocol.ApplyModeNew && opts.ApplyMode != protocol.ApplyModeInsert {
			return mailbox.Request{}, fmt.Errorf("invalid --mode %q (use NEW or INSERT)", enqueueMode)
		}
		return mailbox.NewAnimationRequest(target, enqueueName, opts), nil

	case mailbox.KindPose:
		return mailbox.NewPoseRequest(target, enqueueName, enqueueMirror), nil

	case "command":
		params, err := parseParams(enqueueParams)
		if err != nil {
			return mailbox.Request{}, err
		}
		return mailbox.Request{
			Status:     mailbox.StatusPending,
			Command:    target,
			TargetName: enqueueName,
			Params:     params,
		}, nil
	}
	return mailbox.Request{}, fmt.Errorf("unknown request kind %q (use animation, pose or command)", kind)
}

// parseParams turns key=value pairs into a payload map.
func parseParams(pairs []string) (map[string]any, error) {
	params := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, raw, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		if s, isString := v.(string); isString && strings.Contains(s, ",") && !strings.HasPrefix(raw, `"`) {
			v = toAny(cmdutil.ParseCommaSeparatedList(s))
		}
		params[key] = v
	}
	return params, nil
}

func toAny(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(args[0], args[1])
	if err != nil {
		return err
	}

	cfg, err := cmdutil.MailboxConfig()
	if err != nil {
		return err
	}
	writer, err := mailbox.NewWriter(cfg)
	if err != nil {
		return err
	}
	path, err := writer.Enqueue(req)
	if err != nil {
		return err
	}

	return cmdutil.PrintResource(cmd.OutOrStdout(), req, [][2]string{
		{"File", path},
		{"Layout", string(cfg.Layout)},
		{"Command", req.ToCommand().Type},
		{"Target", cmdutil.EmptyOr(req.TargetID, "-")},
	})
}
