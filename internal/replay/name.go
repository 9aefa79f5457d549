// Package replay recognizes finalized Age of Empires II replay filenames.
//
// The game writes in-progress recordings and duplicate saves under names
// that differ from the completed-match convention
// "<prefix> v<version> @<YYYY.MM.DD> <HHMMSS>.aoe2record". Only names that
// match it exactly are considered final.
package replay

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"time"
)

// Extension is the file extension used by replay recordings.
const Extension = ".aoe2record"

var finalName = regexp.MustCompile(`^(.+) v(\d+(?:\.\d+)*) @(\d{4}\.\d{2}\.\d{2}) (\d{6})\.aoe2record$`)

// ErrNotFinal reports a name that does not follow the completed-match convention.
var ErrNotFinal = errors.New("not a final replay filename")

// Name is the decoded form of a final replay filename.
type Name struct {
	Prefix  string
	Version string
	Started time.Time
}

// IsFinal reports whether the base name of path looks like a completed replay.
func IsFinal(path string) bool {
	_, err := ParseName(path)
	return err == nil
}

// ParseName decodes the base name of path. The start time is interpreted in
// the local time zone because the game stamps names with the player's clock.
func ParseName(path string) (Name, error) {
	base := filepath.Base(path)
	m := finalName.FindStringSubmatch(base)
	if m == nil {
		return Name{}, fmt.Errorf("%q: %w", base, ErrNotFinal)
	}
	started, err := time.ParseInLocation("2006.01.02 150405", m[3]+" "+m[4], time.Local)
	if err != nil {
		return Name{}, fmt.Errorf("%q: timestamp: %w", base, ErrNotFinal)
	}
	return Name{Prefix: m[1], Version: m[2], Started: started}, nil
}
