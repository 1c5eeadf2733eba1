package minimap

import (
	"fmt"
	"regexp"
	"strings"
)

// MapExt is the extension of Tiled map files.
const MapExt = ".tmx"

var mapNameRE = regexp.MustCompile(`^\d{3}-\d{1}(\.tmx)?$`)

// MapName is a validated map identifier, always carrying the .tmx suffix.
type MapName string

// ValidMapName reports whether s is NNN-D or NNN-D.tmx.
func ValidMapName(s string) bool {
	return mapNameRE.MatchString(s)
}

// ParseMapName validates s and normalizes it to NNN-D.tmx.
func ParseMapName(s string) (MapName, error) {
	if !ValidMapName(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMapName, s)
	}
	if !strings.HasSuffix(s, MapExt) {
		s += MapExt
	}
	return MapName(s), nil
}

// Number is the map identifier without extension, e.g. "007-1".
func (n MapName) Number() string {
	return strings.TrimSuffix(string(n), MapExt)
}

func (n MapName) String() string { return string(n) }
