//go:build linux

package topology

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// cpuRoot is the sysfs CPU tree. Overridable in tests.
var cpuRoot = "/sys/devices/system/cpu"

// PresentCPUs parses the kernel's present-CPU range ("0-7", or "0" on a
// single-core machine) and returns the CPU count. An unreadable or
// malformed file is an error: topology enumeration is a startup
// precondition and is never retried.
func PresentCPUs() (int, error) {
	path := filepath.Join(cpuRoot, "present")
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("topology: read %s: %w", path, err)
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, ErrBadRange
	}

	start, end := s, s
	if i := strings.IndexByte(s, '-'); i >= 0 {
		start, end = s[:i], s[i+1:]
	}
	lo, err := strconv.Atoi(start)
	if err != nil {
		return 0, fmt.Errorf("topology: parse %q: %w", s, ErrBadRange)
	}
	hi, err := strconv.Atoi(end)
	if err != nil || hi < lo {
		return 0, fmt.Errorf("topology: parse %q: %w", s, ErrBadRange)
	}
	return hi - lo + 1, nil
}

// ThreadSiblings returns the hyperthread sibling ids of the given CPU,
// parsed from its thread_siblings_list ("0,4" style).
func ThreadSiblings(cpu int) ([]int, error) {
	path := filepath.Join(cpuRoot, fmt.Sprintf("cpu%d", cpu), "topology", "thread_siblings_list")
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("topology: read %s: %w", path, err)
	}
	var siblings []int
	for _, f := range strings.Split(strings.TrimSpace(string(b)), ",") {
		id, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("topology: parse siblings %q: %w", string(b), ErrBadRange)
		}
		siblings = append(siblings, id)
	}
	if len(siblings) == 0 {
		return nil, ErrBadRange
	}
	return siblings, nil
}

// PhysicalCores maps the given CPU ids onto physical-core ids. A logical
// CPU's physical id is the smallest id among its hyperthread siblings; the
// result is deduplicated and sorted.
func PhysicalCores(cpus []int) ([]int, error) {
	seen := map[int]struct{}{}
	for _, cpu := range cpus {
		siblings, err := ThreadSiblings(cpu)
		if err != nil {
			return nil, err
		}
		min := siblings[0]
		for _, s := range siblings[1:] {
			if s < min {
				min = s
			}
		}
		seen[min] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	return out, nil
}
