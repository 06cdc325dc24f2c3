package cla

import "fmt"

// Version is the adapter's own version, independent of any transport
// backend or peer version (original_source's Cla::Version: major/minor/patch).
type Version struct {
	Major uint32
	Minor uint32
	Patch uint32
}

// String renders Version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

const implementationName = "distcla"

var implementationVersion = Version{Major: 1, Minor: 0, Patch: 0}

// ImplementationVersion returns this module's own version (original_source's
// GetImplementationVersion), not the connected peer's.
func ImplementationVersion() Version {
	return implementationVersion
}

// ImplementationName returns this module's implementation name
// (original_source's GetImplementationName), for host-side diagnostics.
func ImplementationName() string {
	return implementationName
}
