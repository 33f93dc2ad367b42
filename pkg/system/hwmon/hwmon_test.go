//go:build linux

package hwmon

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeHwmonDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content+"\n"), 0o644))
	}
	return dir
}

func withDirs(t *testing.T, dirs ...string) {
	t.Helper()
	old := CoretempDirs
	CoretempDirs = dirs
	t.Cleanup(func() { CoretempDirs = old })
}

func TestDiscoverTempFiles(t *testing.T) {
	dir := fakeHwmonDir(t, map[string]string{
		"temp1_input": "50000", // package reading, skipped
		"temp2_input": "41000",
		"temp3_input": "43000",
		"temp2_label": "Core 0",
	})
	withDirs(t, dir, filepath.Join(dir, "does-not-exist"))

	files, err := DiscoverTempFiles()
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "temp2_input"),
		filepath.Join(dir, "temp3_input"),
	}, files)
}

func TestDiscoverTempFiles_NoDirAccessible(t *testing.T) {
	withDirs(t, filepath.Join(t.TempDir(), "a"), filepath.Join(t.TempDir(), "b"))
	_, err := DiscoverTempFiles()
	require.ErrorIs(t, err, ErrNoCoretemp)
}

func TestReadMilliDeg(t *testing.T) {
	dir := fakeHwmonDir(t, map[string]string{"temp2_input": "42500"})
	v, err := ReadMilliDeg(filepath.Join(dir, "temp2_input"))
	require.NoError(t, err)
	assert.Equal(t, 42500.0, v)

	_, err = ReadMilliDeg(filepath.Join(dir, "nope"))
	require.Error(t, err)
}
