package dialect

import (
	"regexp"
	"strconv"
)

// Version is a parsed "major.minor[.build[.revision]]" product version.
type Version struct {
	Major    int
	Minor    int
	Build    int
	Revision int
	// HasBuild and HasRevision record whether those components were
	// present in the source banner, so callers can distinguish "0" from
	// "absent".
	HasBuild    bool
	HasRevision bool
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater
// than other, comparing major, minor, build, then revision in order.
func (v Version) Compare(other Version) int {
	for _, pair := range [][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Build, other.Build},
		{v.Revision, other.Revision},
	} {
		switch {
		case pair[0] < pair[1]:
			return -1
		case pair[0] > pair[1]:
			return 1
		}
	}
	return 0
}

// AtLeast reports whether v >= other.
func (v Version) AtLeast(other Version) bool {
	return v.Compare(other) >= 0
}

var versionPattern = regexp.MustCompile(`(\d+)\.(\d+)(?:\.(\d+)(?:\.(\d+))?)?`)

// ParseVersion extracts the first "major.minor[.build[.revision]]" run of
// digits found in banner. It returns ok=false if no such run exists.
func ParseVersion(banner string) (v Version, ok bool) {
	m := versionPattern.FindStringSubmatch(banner)
	if m == nil {
		return Version{}, false
	}
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		v.Build, _ = strconv.Atoi(m[3])
		v.HasBuild = true
	}
	if m[4] != "" {
		v.Revision, _ = strconv.Atoi(m[4])
		v.HasRevision = true
	}
	return v, true
}
