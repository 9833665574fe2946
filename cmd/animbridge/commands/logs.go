package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/marmos91/animbridge/internal/logger"
	"github.com/marmos91/animbridge/pkg/config"
	"github.com/spf13/cobra"
)

var (
	logsFollow bool
	logsLines  int
	logsSince  string
	logsFile   string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Tail daemon logs",
	Long: `Display and optionally follow the animbridge daemon logs.

Reads logging.output when it is a file path. Otherwise reads the daemon log
file that 'animbridge start' redirects output to in background mode.

Examples:
  # Show last 100 lines (default)
  animbridge logs

  # Follow logs in real-time
  animbridge logs -f

  # Show logs since a specific time
  animbridge logs --since "2026-01-15T10:00:00Z"`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 100, "Number of lines to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show logs since timestamp (RFC3339 format)")
	logsCmd.Flags().StringVar(&logsFile, "log-file", "", "Log file to read (overrides configuration)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	path, err := resolveLogFile()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s\nThe daemon may not have started yet or is logging elsewhere", path)
	}

	var since time.Time
	if logsSince != "" {
		since, err = time.Parse(time.RFC3339, logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since format (use RFC3339): %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if logsFollow {
		return followLogs(out, path, logsLines, since)
	}
	return showLogs(out, path, logsLines, since)
}

func resolveLogFile() (string, error) {
	if logsFile != "" {
		return logsFile, nil
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	switch cfg.Logging.Output {
	case "stdout", "stderr", "":
		return GetDefaultLogFile(), nil
	default:
		return cfg.Logging.Output, nil
	}
}

// showLogs writes the last n lines of path, skipping lines stamped before
// since.
func showLogs(w io.Writer, path string, n int, since time.Time) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Ring of the last n lines.
	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !since.IsZero() {
			if ts := extractTimestamp(line); !ts.IsZero() && ts.Before(since) {
				continue
			}
		}
		if n <= 0 {
			continue
		}
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading log file: %w", err)
	}

	for _, line := range ring {
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}

// followLogs prints the tail of path, then new lines as they are written
// until interrupted.
func followLogs(w io.Writer, path string, n int, since time.Time) error {
	if err := showLogs(w, path, n, since); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(path); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek to end of log file: %w", err)
	}
	reader := bufio.NewReader(file)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stderrf("Following %s (Ctrl+C to stop)...\n", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Write) {
				for {
					line, err := reader.ReadString('\n')
					if err != nil {
						break
					}
					_, _ = fmt.Fprint(w, line)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// extractTimestamp finds the time of a log line written by either handler:
// a JSON "time" field or the text handler's "[2006-01-02 15:04:05]" prefix.
func extractTimestamp(line string) time.Time {
	if strings.HasPrefix(line, "{") {
		var rec struct {
			Time time.Time `json:"time"`
		}
		if err := json.Unmarshal([]byte(line), &rec); err == nil {
			return rec.Time
		}
		return time.Time{}
	}

	const layout = logger.TextTimeLayout
	if len(line) > len(layout)+1 && line[0] == '[' {
		if t, err := time.ParseInLocation(layout, line[1:len(layout)+1], time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
