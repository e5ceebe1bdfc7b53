// Package pyversion locates and parses the version of a system Python
// interpreter, supplying the default python_version/python_full_version
// marker environment values (spec.md §6) when the caller has not overridden
// them explicitly.
//
// Grounded on original_source's rattler_installs_packages::system_python
// (PythonInterpreterVersion::from_python_output / system_python_executable),
// re-expressed with os/exec in place of the `which` crate.
package pyversion

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Version is a parsed CPython interpreter version.
type Version struct {
	Major, Minor, Patch int
}

// String renders "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Short renders "major.minor", the form used for the python_version marker.
func (v Version) Short() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// FindExecutable locates a Python 3 interpreter on PATH, preferring
// "python3" and falling back to "python" (the Windows/older-Unix name).
func FindExecutable() (string, error) {
	if path, err := exec.LookPath("python3"); err == nil {
		return path, nil
	}
	if path, err := exec.LookPath("python"); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("pyversion: no python executable found on PATH")
}

// FromOutput parses the stdout of "python --version", e.g. "Python 3.8.5".
// A two-component version ("Python 3.8") or a non-CPython banner
// ("CPython 3.8.5") is rejected: the caller must supply an exact 3-component
// CPython version.
func FromOutput(versionStr string) (Version, error) {
	invalid := func() error {
		return fmt.Errorf("pyversion: could not parse version string %q, expected something like \"Python x.x.x\"", versionStr)
	}

	fields := strings.Fields(versionStr)
	if len(fields) < 2 || fields[0] != "Python" {
		return Version{}, invalid()
	}
	parts := strings.Split(fields[1], ".")
	if len(parts) != 3 {
		return Version{}, invalid()
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, invalid()
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// FromSystem runs the discovered Python interpreter and parses its version.
func FromSystem() (Version, error) {
	exePath, err := FindExecutable()
	if err != nil {
		return Version{}, err
	}
	out, err := exec.Command(exePath, "--version").Output()
	if err != nil {
		return Version{}, fmt.Errorf("pyversion: running %s --version: %w", exePath, err)
	}
	return FromOutput(strings.TrimSpace(string(out)))
}
