//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/animbridge/pkg/mailbox"
	"github.com/marmos91/animbridge/pkg/protocol"
	"github.com/marmos91/animbridge/test/e2e/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCommandDelivery drives one daemon through both delivery paths.
func TestCommandDelivery(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping command delivery tests in short mode")
	}

	dp := helpers.StartDaemonProcess(t)
	t.Cleanup(dp.ForceKill)

	t.Run("socket ping and status", func(t *testing.T) {
		client := dp.Dial(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, err := client.Ping(ctx)
		require.NoError(t, err)

		resp, err := client.Send(ctx, protocol.NewCommand(protocol.TypeGetStatus, nil))
		require.NoError(t, err)
		require.True(t, resp.OK(), resp.Message)
		assert.Equal(t, protocol.Version, resp.Data["version"])
	})

	t.Run("unknown command keeps the connection", func(t *testing.T) {
		client := dp.Dial(t)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		resp, err := client.Send(ctx, protocol.NewCommand("no_such_command", nil))
		require.NoError(t, err)
		assert.False(t, resp.OK())

		_, err = client.Ping(ctx)
		require.NoError(t, err)
	})

	t.Run("ctl ping", func(t *testing.T) {
		out, err := helpers.RunCtl(t, dp, "ping", "--count", "2", "--interval", "10ms")
		require.NoError(t, err)

		var results []struct {
			Seq int `json:"seq"`
		}
		require.NoError(t, json.Unmarshal(out, &results), "ping output: %s", out)
		require.Len(t, results, 2)
		assert.Equal(t, 2, results[1].Seq)
	})

	t.Run("mailbox request is consumed", func(t *testing.T) {
		w, err := mailbox.NewWriter(mailbox.Config{
			Dir:    dp.MailboxDir(),
			Layout: mailbox.LayoutDirectory,
			Order:  mailbox.OrderFIFO,
		})
		require.NoError(t, err)

		path, err := w.Enqueue(mailbox.Request{
			Status:  mailbox.StatusPending,
			Command: protocol.TypePing,
		})
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			_, err := os.Stat(path)
			return os.IsNotExist(err)
		}, 5*time.Second, 50*time.Millisecond, "mailbox file %s was not consumed", filepath.Base(path))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.Eventually(t, func() bool {
			st, err := dp.APIClient().Status(ctx)
			return err == nil && st.Mailbox != nil && st.Mailbox.Consumed >= 1
		}, 5*time.Second, 50*time.Millisecond)
	})

	require.NoError(t, dp.StopGracefully())
}
