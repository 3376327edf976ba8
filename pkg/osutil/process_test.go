//go:build unix

package osutil

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetProcessGroup(t *testing.T) {
	cmd := exec.Command("echo", "test")
	SetProcessGroup(cmd)

	require.NotNil(t, cmd.SysProcAttr)
	assert.True(t, cmd.SysProcAttr.Setpgid)
}

func TestKillProcessGroup(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	SetProcessGroup(cmd)
	require.NoError(t, cmd.Start())

	require.NoError(t, KillProcessGroup(cmd))

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		assert.Error(t, err, "killed process reports a signal exit")
	case <-time.After(5 * time.Second):
		t.Fatal("process did not die after group kill")
	}
}

func TestKillProcessGroupBeforeStart(t *testing.T) {
	cmd := exec.Command("echo", "test")
	assert.NoError(t, KillProcessGroup(cmd))
}
