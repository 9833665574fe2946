package mailbox

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/animbridge/cmd/animbridgectl/cmdutil"
	"github.com/marmos91/animbridge/pkg/mailbox"
	"github.com/marmos91/animbridge/pkg/protocol"
)

func setupMailbox(t *testing.T, layout string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "queue")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("ANIMLIB_MAILBOX_DIR", dir)
	t.Setenv("ANIMLIB_MAILBOX_LAYOUT", layout)
	cmdutil.ResetConfig()
	t.Cleanup(cmdutil.ResetConfig)

	saved := *cmdutil.Flags
	*cmdutil.Flags = cmdutil.GlobalFlags{Output: "json"}
	t.Cleanup(func() { *cmdutil.Flags = saved })

	enqueueName, enqueueMirror, enqueueMode, enqueueParams = "", false, protocol.ApplyModeNew, nil
	return dir
}

func TestParseParams(t *testing.T) {
	params, err := parseParams([]string{
		"blend_factor=0.5",
		"mirror=true",
		`bone_names=["Hand.L"]`,
		"pose_name=Fist Closed",
		"targets=Hand.L, Hand.R",
		`quoted="a,b"`,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.5, params["blend_factor"])
	assert.Equal(t, true, params["mirror"])
	assert.Equal(t, []any{"Hand.L"}, params["bone_names"])
	assert.Equal(t, "Fist Closed", params["pose_name"])
	assert.Equal(t, []any{"Hand.L", "Hand.R"}, params["targets"])
	assert.Equal(t, "a,b", params["quoted"])

	_, err = parseParams([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseParams([]string{"=x"})
	assert.Error(t, err)
}

func TestBuildRequest(t *testing.T) {
	setupMailbox(t, "directory")

	t.Run("animation", func(t *testing.T) {
		enqueueMode = "insert"
		t.Cleanup(func() { enqueueMode = protocol.ApplyModeNew })

		req, err := buildRequest(mailbox.KindAnimation, "walk")
		require.NoError(t, err)
		cmd := req.ToCommand()
		assert.Equal(t, protocol.TypeApplyAnimation, cmd.Type)
		assert.Equal(t, "walk", cmd.Payload["animation_id"])
		assert.Equal(t, protocol.ApplyModeInsert, req.Options.ApplyMode)
	})

	t.Run("invalid mode", func(t *testing.T) {
		enqueueMode = "replace"
		t.Cleanup(func() { enqueueMode = protocol.ApplyModeNew })

		_, err := buildRequest(mailbox.KindAnimation, "walk")
		assert.Error(t, err)
	})

	t.Run("pose", func(t *testing.T) {
		enqueueMirror = true
		t.Cleanup(func() { enqueueMirror = false })

		req, err := buildRequest(mailbox.KindPose, "fist")
		require.NoError(t, err)
		cmd := req.ToCommand()
		assert.Equal(t, protocol.TypeApplyPose, cmd.Type)
		assert.Equal(t, true, cmd.Payload["mirror"])
	})

	t.Run("command", func(t *testing.T) {
		enqueueParams = []string{"blend_factor=0.25"}
		t.Cleanup(func() { enqueueParams = nil })

		req, err := buildRequest("command", protocol.TypeBlendPose)
		require.NoError(t, err)
		cmd := req.ToCommand()
		assert.Equal(t, protocol.TypeBlendPose, cmd.Type)
		assert.Equal(t, 0.25, cmd.Payload["blend_factor"])
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := buildRequest("sound", "x")
		assert.Error(t, err)
	})
}

func TestEnqueueListClear(t *testing.T) {
	dir := setupMailbox(t, "directory")

	for _, target := range []string{"walk", "run"} {
		var out bytes.Buffer
		enqueueCmd.SetOut(&out)
		require.NoError(t, runEnqueue(enqueueCmd, []string{mailbox.KindAnimation, target}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	var out bytes.Buffer
	listCmd.SetOut(&out)
	require.NoError(t, runList(listCmd, nil))

	var pending []mailbox.PendingRequest
	require.NoError(t, json.Unmarshal(out.Bytes(), &pending))
	assert.Len(t, pending, 2)

	clearForce = true
	t.Cleanup(func() { clearForce = false })
	out.Reset()
	clearCmd.SetOut(&out)
	require.NoError(t, runClear(clearCmd, nil))

	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnqueue_LegacyLayoutReplaces(t *testing.T) {
	dir := setupMailbox(t, "legacy")

	var out bytes.Buffer
	enqueueCmd.SetOut(&out)
	require.NoError(t, runEnqueue(enqueueCmd, []string{mailbox.KindPose, "fist"}))
	require.NoError(t, runEnqueue(enqueueCmd, []string{mailbox.KindPose, "open"}))

	data, err := os.ReadFile(filepath.Join(dir, mailbox.LegacyFileName))
	require.NoError(t, err)
	req, err := mailbox.ParseRequest(data)
	require.NoError(t, err)
	assert.Equal(t, "open", req.TargetID)
}
