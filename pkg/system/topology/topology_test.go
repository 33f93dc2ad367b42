//go:build linux

package topology

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCPUTree builds a sysfs-like tree under a temp dir and points cpuRoot
// at it for the duration of the test.
func fakeCPUTree(t *testing.T, present string, siblings map[int]string) {
	t.Helper()
	root := t.TempDir()
	if present != "" {
		require.NoError(t, os.WriteFile(filepath.Join(root, "present"), []byte(present+"\n"), 0o644))
	}
	for cpu, list := range siblings {
		dir := filepath.Join(root, "cpu"+itoa(cpu), "topology")
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "thread_siblings_list"), []byte(list+"\n"), 0o644))
	}
	old := cpuRoot
	cpuRoot = root
	t.Cleanup(func() { cpuRoot = old })
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

func TestPresentCPUs(t *testing.T) {
	tests := []struct {
		present string
		want    int
		wantErr bool
	}{
		{"0-7", 8, false},
		{"0-3", 4, false},
		{"0", 1, false},
		{"3-1", 0, true},
		{"junk", 0, true},
	}
	for _, tc := range tests {
		t.Run(tc.present, func(t *testing.T) {
			fakeCPUTree(t, tc.present, nil)
			n, err := PresentCPUs()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, n)
		})
	}
}

func TestPresentCPUs_MissingFile(t *testing.T) {
	fakeCPUTree(t, "", nil)
	_, err := PresentCPUs()
	require.Error(t, err)
}

func TestPhysicalCores_SMT(t *testing.T) {
	// 4 logical CPUs, 2 physical cores with hyperthread pairs (0,2) (1,3).
	fakeCPUTree(t, "0-3", map[int]string{
		0: "0,2",
		1: "1,3",
		2: "0,2",
		3: "1,3",
	})
	phys, err := PhysicalCores([]int{0, 1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, phys)
}

func TestThreadSiblings_Single(t *testing.T) {
	fakeCPUTree(t, "0", map[int]string{0: "0"})
	s, err := ThreadSiblings(0)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, s)
}
