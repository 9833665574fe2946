// Package cmdutil provides shared utilities for animbridgectl commands.
package cmdutil

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/animbridge/internal/cli/output"
	"github.com/marmos91/animbridge/internal/cli/prompt"
	"github.com/marmos91/animbridge/pkg/apiclient"
	"github.com/marmos91/animbridge/pkg/config"
	"github.com/marmos91/animbridge/pkg/mailbox"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/marmos91/animbridge/pkg/transport"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values. Zero values mean "take it from
// the daemon configuration".
type GlobalFlags struct {
	ConfigFile string
	Host       string
	Port       int
	APIURL     string
	Output     string
	Timeout    time.Duration
	NoColor    bool
	Verbose    bool
}

var loadedConfig *config.Config

// Config returns the daemon configuration the CLI should talk to. A missing
// file yields defaults plus ANIMLIB_* overrides.
func Config() (*config.Config, error) {
	if loadedConfig != nil {
		return loadedConfig, nil
	}
	cfg, err := config.Load(Flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	loadedConfig = cfg
	return cfg, nil
}

// ResetConfig drops the cached configuration so the next Config call
// reloads it.
func ResetConfig() {
	loadedConfig = nil
}

// CommandAddress resolves the daemon's command socket. Explicit flags win,
// then the port file the daemon wrote after port retry, then configuration.
func CommandAddress() (string, error) {
	cfg, err := Config()
	if err != nil {
		return "", err
	}

	host := cfg.Socket.Host
	if Flags.Host != "" {
		host = Flags.Host
	}

	port := cfg.Socket.Port
	switch {
	case Flags.Port != 0:
		port = Flags.Port
	case cfg.Socket.PortFile != "":
		if p, err := ReadPortFile(cfg.Socket.PortFile); err == nil {
			port = p
		}
	}
	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// ReadPortFile parses a port written by the daemon.
func ReadPortFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	port, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port in %s", path)
	}
	return port, nil
}

// Dial connects to the command socket.
func Dial(ctx context.Context) (*transport.Client, error) {
	addr, err := CommandAddress()
	if err != nil {
		return nil, err
	}
	client, err := transport.Dial(ctx, addr, Flags.Timeout)
	if err != nil {
		return nil, fmt.Errorf("%w\n\nIs the daemon running? Check with 'animbridge status'", err)
	}
	return client, nil
}

// SendCommand dials, sends one command and returns its response. A
// response with status "error" is returned as is; only transport failures
// produce an error.
func SendCommand(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	client, err := Dial(ctx)
	if err != nil {
		return protocol.Response{}, err
	}
	defer func() { _ = client.Close() }()

	if Flags.Verbose {
		line, _ := protocol.EncodeCommand(cmd)
		fmt.Fprintf(os.Stderr, "> %s", line)
	}
	return client.Send(ctx, cmd)
}

// RunCommand sends cmd and prints the response. An error response is
// printed and returned as an error so the process exits non-zero.
func RunCommand(ctx context.Context, w io.Writer, cmd protocol.Command) error {
	resp, err := SendCommand(ctx, cmd)
	if err != nil {
		return err
	}
	if err := PrintResponse(w, resp); err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("%s failed: %s", cmd.Type, resp.Message)
	}
	return nil
}

// PrintResponse renders a protocol response. Tables show the message and
// one row per data key.
func PrintResponse(w io.Writer, resp protocol.Response) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, resp)
	case output.FormatYAML:
		return output.PrintYAML(w, resp)
	}

	printer := output.NewPrinter(w, format, !IsColorDisabled())
	if resp.OK() {
		printer.Success(EmptyOr(resp.Message, "ok"))
	} else {
		printer.Error(EmptyOr(resp.Message, "error"))
	}
	if len(resp.Data) == 0 {
		return nil
	}
	return output.PrintKeyValues(w, DataKeyValues(resp.Data))
}

// DataKeyValues flattens response data into sorted key/value rows.
func DataKeyValues(data map[string]any) output.KeyValues {
	var kv output.KeyValues
	for _, k := range slices.Sorted(maps.Keys(data)) {
		kv.Add(k, formatValue(data[k]))
	}
	return kv
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return EmptyOr(x, "-")
	case bool:
		return output.YesNo(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, formatValue(e))
		}
		return EmptyOr(strings.Join(parts, ", "), "-")
	case []string:
		return EmptyOr(strings.Join(x, ", "), "-")
	default:
		return fmt.Sprint(x)
	}
}

// GetAPIClient returns a client for the daemon's HTTP API.
func GetAPIClient() (*apiclient.Client, error) {
	if Flags.APIURL != "" {
		return apiclient.New(Flags.APIURL).WithTimeout(Flags.Timeout), nil
	}
	cfg, err := Config()
	if err != nil {
		return nil, err
	}
	if !cfg.API.IsEnabled() {
		return nil, fmt.Errorf("the daemon API is disabled in configuration; pass --api-url to override")
	}
	url := fmt.Sprintf("http://%s", net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port)))
	return apiclient.New(url).WithTimeout(Flags.Timeout), nil
}

// MailboxConfig returns the mailbox layout the daemon consumes.
func MailboxConfig() (mailbox.Config, error) {
	cfg, err := Config()
	if err != nil {
		return mailbox.Config{}, err
	}
	return cfg.MailboxConfig(), nil
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	return Flags.NoColor
}

// PrintOutput prints data in the selected format. In table format it shows
// emptyMsg when isEmpty, otherwise the table.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, table output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, table)
	}
}

// PrintResource prints a single resource: key/values in table format.
func PrintResource(w io.Writer, data any, kv output.KeyValues) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		return output.PrintKeyValues(w, kv)
	}
}

// PrintSuccess prints a success message in table format only.
func PrintSuccess(w io.Writer, msg string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	output.NewPrinter(w, format, !IsColorDisabled()).Success(msg)
}

// ParseCommaSeparatedList parses "a, b,,c" into trimmed non-empty items.
func ParseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// EmptyOr returns value, or fallback when value is empty.
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// HandleAbort turns a Ctrl+C at a prompt into a clean exit.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
