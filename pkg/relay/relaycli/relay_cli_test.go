package relaycli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd(t.TempDir())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, Version+"\n", out.String())
}

func TestRunFlags(t *testing.T) {
	cmd := NewRun(nil)
	require.NoError(t, cmd.ParseFlags([]string{
		"--device", "/dev/input/event3",
		"--device", "DE:AD:BE:EF:00:01",
		"--auto-discover",
		"--grab=false",
		"--output-backend", "uhid",
	}))

	devices, err := cmd.Flags().GetStringArray("device")
	require.NoError(t, err)
	assert.Equal(t, []string{"/dev/input/event3", "DE:AD:BE:EF:00:01"}, devices)

	assert.True(t, cmd.Flags().Changed("auto-discover"))
	assert.True(t, cmd.Flags().Changed("grab"))
	grab, err := cmd.Flags().GetBool("grab")
	require.NoError(t, err)
	assert.False(t, grab)

	backend, err := cmd.Flags().GetString("output-backend")
	require.NoError(t, err)
	assert.Equal(t, "uhid", backend)
}

func TestRunFlagsUnsetByDefault(t *testing.T) {
	cmd := NewRun(nil)
	require.NoError(t, cmd.ParseFlags(nil))
	assert.False(t, cmd.Flags().Changed("auto-discover"))
	assert.False(t, cmd.Flags().Changed("grab"))
}
