//go:build linux

// Package hwmon locates and reads the coretemp sensor files. Readings are
// millidegrees Celsius, one file per core, discovered once by directory
// scan.
package hwmon

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// CoretempDirs are the candidate topology-specific hwmon locations. The
// set varies with kernel version and package count, so every candidate is
// scanned. Overridable in tests.
var CoretempDirs = []string{
	"/sys/devices/platform/coretemp.0/hwmon/hwmon0",
	"/sys/devices/platform/coretemp.0/hwmon/hwmon1",
	"/sys/devices/platform/coretemp.0/hwmon/hwmon2",
	"/sys/devices/platform/coretemp.1/hwmon/hwmon1",
}

// DiscoverTempFiles scans the candidate dirs for per-core temperature
// inputs. temp1_input is skipped: it is the package-level reading, not a
// core. If no candidate dir can be opened at all the machine has no
// usable coretemp interface and an error is returned.
func DiscoverTempFiles() ([]string, error) {
	var files []string
	failures := 0
	for _, dir := range CoretempDirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			failures++
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if strings.Contains(name, "input") && name != "temp1_input" {
				files = append(files, filepath.Join(dir, name))
			}
		}
	}
	if failures == len(CoretempDirs) {
		return nil, ErrNoCoretemp
	}
	sort.Strings(files)
	return files, nil
}

// ReadMilliDeg returns the millidegree value in one temperature file.
func ReadMilliDeg(file string) (float64, error) {
	b, err := os.ReadFile(file)
	if err != nil {
		return 0, fmt.Errorf("hwmon: read %s: %w", file, err)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(b)), 64)
	if err != nil {
		return 0, fmt.Errorf("hwmon: parse %s: %w", file, err)
	}
	return v, nil
}
