package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_QueueExecutesEveryIncrement(t *testing.T) {
	out, err := execute(t, "run", "--strategy", "queue", "--count", "3", "--work", "20ms", "--gap", "0")
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(out, "Completed"))
	assert.Contains(t, out, "final count: 3")
}

func TestRun_BlockDropsOverlapping(t *testing.T) {
	out, err := execute(t, "run", "--strategy", "block", "--count", "3", "--work", "200ms", "--gap", "0")
	require.NoError(t, err)

	assert.Contains(t, out, "#1 Completed")
	assert.Equal(t, 2, strings.Count(out, "Dropped"))
	assert.Contains(t, out, "final count: 1")
}

func TestRun_DebounceKeepsLatest(t *testing.T) {
	out, err := execute(t, "run", "--strategy", "debounce", "--count", "4", "--work", "0", "--gap", "0", "--delay", "50ms")
	require.NoError(t, err)

	assert.Equal(t, 3, strings.Count(out, "Superseded"))
	assert.Contains(t, out, "#4 Completed")
	assert.Contains(t, out, "final count: 1")
}

func TestRun_PoliciesAndRecording(t *testing.T) {
	dir := t.TempDir()
	policies := filepath.Join(dir, "policies.yaml")
	require.NoError(t, os.WriteFile(policies, []byte("intents:\n  Increment:\n    strategy: parallel\n"), 0o644))
	session := filepath.Join(dir, "session.json")

	out, err := execute(t, "run", "--count", "2", "--work", "10ms", "--gap", "0", "--policies", policies, "--record", session)
	require.NoError(t, err)

	assert.Contains(t, out, "final count: 2")
	raw, err := os.ReadFile(session)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"intentType": "Increment"`)
	assert.Contains(t, string(raw), `"intentType": "StateChanged"`)
}

func TestRun_RejectsBadInput(t *testing.T) {
	_, err := execute(t, "run", "--strategy", "sometimes")
	assert.ErrorContains(t, err, "unknown strategy")

	_, err = execute(t, "run", "--count", "0")
	assert.Error(t, err)

	_, err = execute(t, "run", "--record", "session.txt")
	assert.Error(t, err)
}

func TestStrategies_ListsEveryStrategy(t *testing.T) {
	out, err := execute(t, "strategies")
	require.NoError(t, err)

	for _, name := range []string{"Block", "Queue", "Debounce", "CancelPrevious", "Parallel"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "drop if busy")
}

func TestBroadcast_ReachesEveryStore(t *testing.T) {
	out, err := execute(t, "broadcast", "--stores", "3", "--count", "4")
	require.NoError(t, err)

	for _, name := range []string{"store-1: 4", "store-2: 4", "store-3: 4"} {
		assert.Contains(t, out, name)
	}
}
