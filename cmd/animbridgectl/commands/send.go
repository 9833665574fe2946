package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/spf13/cobra"
)

var (
	sendDataFile string
	sendSchema   bool
)

var sendCmd = &cobra.Command{
	Use:   "send <type> [json-payload]",
	Short: "Send a raw command",
	Long: `Send any command type with a JSON object payload and print the response.

The payload is the request object without "type". It can be given inline,
read from a file with --data, or from stdin with --data -.

Examples:
  animbridgectl send get_status
  animbridgectl send select_bones '{"bone_names":["Hand.L"],"mirror":true}'
  animbridgectl send apply_animation --data request.json
  animbridgectl send blend_pose --schema`,
	Args: cobra.RangeArgs(1, 2),
	ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return knownTypes(), cobra.ShellCompDirectiveNoFileComp
	},
	RunE: runSend,
}

func init() {
	sendCmd.Flags().StringVarP(&sendDataFile, "data", "d", "", "Read the payload from a file (- for stdin)")
	sendCmd.Flags().BoolVar(&sendSchema, "schema", false, "Print the JSON schema of the payload instead of sending")
}

func knownTypes() []string {
	types := append([]string{protocol.TypePing, protocol.TypeGetStatus, protocol.TypeGetArmatureInfo}, protocol.PayloadTypes()...)
	slices.Sort(types)
	return slices.Compact(types)
}

func runSend(cmd *cobra.Command, args []string) error {
	typ := args[0]

	if sendSchema {
		schema := protocol.PayloadSchema(typ)
		if schema == nil {
			return fmt.Errorf("%s takes no payload (known types: %s)", typ, strings.Join(knownTypes(), ", "))
		}
		data, err := json.MarshalIndent(schema, "", "  ")
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	raw, err := payloadSource(cmd.InOrStdin(), args)
	if err != nil {
		return err
	}
	payload, err := parsePayload(raw)
	if err != nil {
		return err
	}

	return cmdutil.RunCommand(cmd.Context(), cmd.OutOrStdout(), protocol.NewCommand(typ, payload))
}

func payloadSource(stdin io.Reader, args []string) ([]byte, error) {
	switch {
	case sendDataFile != "" && len(args) > 1:
		return nil, fmt.Errorf("pass the payload inline or with --data, not both")
	case sendDataFile == "-":
		return io.ReadAll(stdin)
	case sendDataFile != "":
		return os.ReadFile(sendDataFile)
	case len(args) > 1:
		return []byte(args[1]), nil
	}
	return nil, nil
}

// parsePayload decodes a JSON object. Numbers stay float64, as the daemon
// would see them on the wire. A "type" key is rejected: it is the argument.
func parsePayload(raw []byte) (map[string]any, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	if _, ok := payload["type"]; ok {
		return nil, fmt.Errorf("payload must not contain \"type\"; pass it as the first argument")
	}
	return payload, nil
}
