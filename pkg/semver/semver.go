// Package semver implements version comparison and partial-pattern
// matching over bare "major.minor.patch" strings with no "v" prefix and no
// pre-release/build metadata. It canonicalizes to the "vX.Y.Z" form
// golang.org/x/mod/semver requires and delegates ordering comparison to
// it; prefix-pattern matching and find-latest-matching are not part of
// x/mod/semver's surface and are implemented here directly against parsed
// (major, minor, patch) tuples.
package semver

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
)

// Version is a parsed (major, minor, patch) triple. A zero Version with
// Valid == false represents "no version" and sorts below any real one.
type Version struct {
	Major, Minor, Patch int
	Valid                bool
}

// Parse parses a full "major.minor.patch" string. It does not accept
// partial patterns (use ParsePattern for those).
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("semver: %q is not major.minor.patch", s)
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("semver: invalid major in %q: %w", s, err)
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, fmt.Errorf("semver: invalid minor in %q: %w", s, err)
	}
	patch, err := strconv.Atoi(parts[2])
	if err != nil {
		return Version{}, fmt.Errorf("semver: invalid patch in %q: %w", s, err)
	}
	return Version{Major: major, Minor: minor, Patch: patch, Valid: true}, nil
}

// canonical renders v as the "vX.Y.Z" string x/mod/semver expects.
func (v Version) canonical() string {
	return fmt.Sprintf("v%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Compare orders two versions as (major, minor, patch) tuples, lexically.
// An invalid Version sorts below any valid one; two invalid Versions
// compare equal.
func Compare(a, b Version) int {
	if !a.Valid && !b.Valid {
		return 0
	}
	if !a.Valid {
		return -1
	}
	if !b.Valid {
		return 1
	}
	return semver.Compare(a.canonical(), b.canonical())
}

// IsFullVersion reports whether s has exactly two dots, i.e. is a complete
// "major.minor.patch" version rather than a partial prefix pattern.
func IsFullVersion(s string) bool {
	return strings.Count(s, ".") == 2
}

// Pattern is a parsed partial-version prefix: just a major, or a
// major+minor, used for resolving a partial version spec to its
// semver-max match.
type Pattern struct {
	Major      int
	Minor      int
	HasMinor   bool
}

// ParsePattern parses a prefix pattern like "1" or "1.2".
func ParsePattern(s string) (Pattern, error) {
	parts := strings.Split(s, ".")
	switch len(parts) {
	case 1:
		major, err := strconv.Atoi(parts[0])
		if err != nil {
			return Pattern{}, fmt.Errorf("semver: invalid pattern %q: %w", s, err)
		}
		return Pattern{Major: major}, nil
	case 2:
		major, err := strconv.Atoi(parts[0])
		if err != nil {
			return Pattern{}, fmt.Errorf("semver: invalid pattern %q: %w", s, err)
		}
		minor, err := strconv.Atoi(parts[1])
		if err != nil {
			return Pattern{}, fmt.Errorf("semver: invalid pattern %q: %w", s, err)
		}
		return Pattern{Major: major, Minor: minor, HasMinor: true}, nil
	default:
		return Pattern{}, fmt.Errorf("semver: invalid pattern %q", s)
	}
}

// Matches reports whether v's major (and, if the pattern has one, minor)
// components equal the pattern's.
func (p Pattern) Matches(v Version) bool {
	if !v.Valid {
		return false
	}
	if v.Major != p.Major {
		return false
	}
	if p.HasMinor && v.Minor != p.Minor {
		return false
	}
	return true
}

// FindLatestMatching returns the index into versions of the semver-max
// entry matching pattern, or -1 if none match. versions must all be full
// "major.minor.patch" strings; malformed entries are skipped.
func FindLatestMatching(versions []string, pattern string) int {
	pat, err := ParsePattern(pattern)
	if err != nil {
		return -1
	}
	best := -1
	var bestVer Version
	for i, s := range versions {
		v, err := Parse(s)
		if err != nil {
			continue
		}
		if !pat.Matches(v) {
			continue
		}
		if best == -1 || Compare(v, bestVer) > 0 {
			best = i
			bestVer = v
		}
	}
	return best
}

// FindLatest returns the index of the semver-max entry in versions, or -1
// if versions is empty. Malformed entries are skipped.
func FindLatest(versions []string) int {
	best := -1
	var bestVer Version
	for i, s := range versions {
		v, err := Parse(s)
		if err != nil {
			continue
		}
		if best == -1 || Compare(v, bestVer) > 0 {
			best = i
			bestVer = v
		}
	}
	return best
}
