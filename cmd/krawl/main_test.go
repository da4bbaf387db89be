package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(&app{})
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConvertOSHWAToNTriples(t *testing.T) {
	t.Setenv("WORK_DIR", t.TempDir())
	out, err := run(t, "convert",
		"--input", filepath.Join("..", "..", "internal", "normalizer", "testdata", "oshwa_record.json"),
		"--normalizer", "oshwa",
		"--format", "nt",
		"--log-level", "error",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "<https://github.com/example/wind-station/2.1%20beta/WindStation>")
	assert.Contains(t, out, "<https://spdx.org/licenses/CERN-OHL-1.2>")
}

func TestConvertWritesOutputFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORK_DIR", dir)
	target := filepath.Join(dir, "out", "gripper.yml")
	_, err := run(t, "convert",
		"--input", filepath.Join("..", "..", "internal", "normalizer", "testdata", "wikifactory_record.json"),
		"--normalizer", "wikifactory",
		"--format", "yaml",
		"--output", target,
	)
	require.NoError(t, err)
	blob, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Contains(t, string(blob), "name: Soft Gripper\n")
}

func TestConvertUnknownNormalizer(t *testing.T) {
	t.Setenv("WORK_DIR", t.TempDir())
	_, err := run(t, "convert", "--input", filepath.Join("..", "..", "internal", "normalizer", "testdata", "oshwa_record.json"), "--normalizer", "thingiverse")
	assert.Error(t, err)
}

func TestStateShowAndDelete(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WORK_DIR", dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "__fetcher__"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "__fetcher__", "oshwa.json"), []byte(`{"offset": 50}`), 0o644))

	out, err := run(t, "state", "show", "oshwa")
	require.NoError(t, err)
	assert.Contains(t, out, `"offset": 50`)

	out, err = run(t, "state", "delete", "oshwa")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted state of oshwa")

	out, err = run(t, "state", "delete", "oshwa")
	require.NoError(t, err)
	assert.Contains(t, out, "no state stored")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}
