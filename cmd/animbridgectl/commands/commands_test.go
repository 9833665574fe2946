package commands

import (
	"bufio"
	"bytes"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/pkg/protocol"
)

// fakeDaemon answers every line with reply and records the commands.
type fakeDaemon struct {
	ln    net.Listener
	mu    sync.Mutex
	seen  []protocol.Command
	reply func(protocol.Command) protocol.Response
}

func startFakeDaemon(t *testing.T) *fakeDaemon {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	d := &fakeDaemon{ln: ln, reply: func(c protocol.Command) protocol.Response {
		if c.Type == protocol.TypePing {
			return protocol.Pong()
		}
		return protocol.Success("ok", map[string]any{"type": c.Type})
	}}
	go d.serve()
	t.Cleanup(func() { _ = ln.Close() })

	saved := *cmdutil.Flags
	*cmdutil.Flags = cmdutil.GlobalFlags{
		Host:    "127.0.0.1",
		Port:    ln.Addr().(*net.TCPAddr).Port,
		Output:  "json",
		Timeout: 5 * time.Second,
	}
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cmdutil.ResetConfig()
	t.Cleanup(func() {
		*cmdutil.Flags = saved
		cmdutil.ResetConfig()
	})
	return d
}

func (d *fakeDaemon) serve() {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		go func() {
			defer func() { _ = conn.Close() }()
			r := bufio.NewReader(conn)
			for {
				line, err := r.ReadBytes('\n')
				if err != nil {
					return
				}
				cmd, err := protocol.DecodeCommand(line)
				var resp protocol.Response
				if err != nil {
					resp = protocol.ErrorResponse(err)
				} else {
					d.mu.Lock()
					d.seen = append(d.seen, cmd)
					reply := d.reply
					d.mu.Unlock()
					resp = reply(cmd)
				}
				if _, err := conn.Write(protocol.EncodeResponse(resp)); err != nil {
					return
				}
			}
		}()
	}
}

func (d *fakeDaemon) commands() []protocol.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]protocol.Command(nil), d.seen...)
}

func TestParsePayload(t *testing.T) {
	payload, err := parsePayload([]byte(`{"bone_names":["Hand.L"],"mirror":true}`))
	require.NoError(t, err)
	assert.Equal(t, true, payload["mirror"])

	payload, err = parsePayload([]byte("  "))
	require.NoError(t, err)
	assert.Nil(t, payload)

	_, err = parsePayload([]byte(`[1,2]`))
	assert.Error(t, err)

	_, err = parsePayload([]byte(`{"type":"ping"}`))
	assert.Error(t, err)
}

func TestParseFactor(t *testing.T) {
	f, err := parseFactor("0.25")
	require.NoError(t, err)
	assert.Equal(t, 0.25, f)

	for _, bad := range []string{"-0.1", "1.5", "half"} {
		_, err := parseFactor(bad)
		assert.Error(t, err, bad)
	}
}

func TestRampFactors(t *testing.T) {
	assert.Equal(t, []float64{0.25, 0.5, 0.75, 1}, rampFactors(4))
	assert.Equal(t, []float64{1}, rampFactors(0))
}

func TestApplyOptions(t *testing.T) {
	t.Cleanup(func() { applyMode, applyMirror = protocol.ApplyModeNew, false })

	applyMode, applyMirror = "insert", true
	opts, err := applyOptions()
	require.NoError(t, err)
	assert.Equal(t, protocol.ApplyModeInsert, opts.ApplyMode)
	assert.True(t, opts.Mirror)

	applyMode = "replace"
	_, err = applyOptions()
	assert.Error(t, err)
}

func TestKnownTypes(t *testing.T) {
	types := knownTypes()
	assert.Contains(t, types, protocol.TypePing)
	assert.Contains(t, types, protocol.TypeBlendPose)
	assert.IsIncreasing(t, types)
}

func TestCommandsAgainstDaemon(t *testing.T) {
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		startFakeDaemon(t)
		pingCount, pingInterval = 2, time.Millisecond
		t.Cleanup(func() { pingCount, pingInterval = 1, time.Second })

		var out bytes.Buffer
		pingCmd.SetOut(&out)
		pingCmd.SetContext(ctx)
		require.NoError(t, runPing(pingCmd, nil))
		assert.Contains(t, out.String(), `"seq": 2`)
	})

	t.Run("apply", func(t *testing.T) {
		d := startFakeDaemon(t)
		applyMirror = true
		t.Cleanup(func() { applyMirror = false })

		var out bytes.Buffer
		applyCmd.SetOut(&out)
		applyCmd.SetContext(ctx)
		require.NoError(t, runApply(applyCmd, []string{"walk"}))

		seen := d.commands()
		require.Len(t, seen, 1)
		assert.Equal(t, protocol.TypeApplyAnimation, seen[0].Type)
		assert.Equal(t, "walk", seen[0].Payload["animation_id"])
		opts := seen[0].Payload["options"].(map[string]any)
		assert.Equal(t, true, opts["mirror"])
		assert.Equal(t, protocol.ApplyModeNew, opts["apply_mode"])
	})

	t.Run("select splits lists", func(t *testing.T) {
		d := startFakeDaemon(t)
		var out bytes.Buffer
		selectCmd.SetOut(&out)
		selectCmd.SetContext(ctx)
		require.NoError(t, runSelect(selectCmd, []string{"Hand.L,Forearm.L", "Spine"}))

		seen := d.commands()
		require.Len(t, seen, 1)
		assert.Equal(t, []any{"Hand.L", "Forearm.L", "Spine"}, seen[0].Payload["bone_names"])
	})

	t.Run("error response fails", func(t *testing.T) {
		d := startFakeDaemon(t)
		d.mu.Lock()
		d.reply = func(protocol.Command) protocol.Response {
			return protocol.Errorf("No active armature")
		}
		d.mu.Unlock()

		var out bytes.Buffer
		infoCmd.SetOut(&out)
		infoCmd.SetContext(ctx)
		err := infoCmd.RunE(infoCmd, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "No active armature")
		assert.Contains(t, out.String(), `"status": "error"`)
	})

	t.Run("blend ramp", func(t *testing.T) {
		d := startFakeDaemon(t)
		blendRampSteps, blendRampDuration = 3, 3*time.Millisecond
		t.Cleanup(func() { blendRampSteps, blendRampDuration = 20, time.Second })

		var out bytes.Buffer
		blendRampCmd.SetOut(&out)
		blendRampCmd.SetContext(ctx)
		require.NoError(t, runBlendRamp(blendRampCmd, []string{"fist"}))

		var types []string
		for _, c := range d.commands() {
			types = append(types, c.Type)
		}
		assert.Equal(t, []string{
			protocol.TypeBlendPoseStart,
			protocol.TypeBlendPose, protocol.TypeBlendPose, protocol.TypeBlendPose,
			protocol.TypeBlendPoseEnd,
		}, types)
	})

	t.Run("daemon down", func(t *testing.T) {
		startFakeDaemon(t)
		cmdutil.Flags.Port = 1
		_, err := cmdutil.SendCommand(ctx, protocol.NewCommand(protocol.TypePing, nil))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Is the daemon running?")
	})
}
