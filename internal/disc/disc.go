// Package disc recognizes directory trees that mirror optical-media
// layouts. A disc structure short-circuits video classification: the
// whole subtree is the main feature and sidecar naming switches to the
// short-name convention.
package disc

import (
	"os"
	"path/filepath"
)

type Type string

const (
	TypeBluRay Type = "bluray"
	TypeDVD    Type = "dvd"
)

// Structure describes a detected disc layout.
type Structure struct {
	Type       Type
	Root       string   // the scanned directory
	MarkerPath string   // the file that identified the layout
	NFOPaths   []string // expected NFO locations, most specific first
}

// Detect checks dir for a physical-media marker. Returns nil when the
// directory is a plain file layout.
func Detect(dir string) *Structure {
	bdmv := filepath.Join(dir, "BDMV", "index.bdmv")
	if isRegularFile(bdmv) {
		return &Structure{
			Type:       TypeBluRay,
			Root:       dir,
			MarkerPath: bdmv,
			NFOPaths: []string{
				filepath.Join(dir, "BDMV", "index.nfo"),
				filepath.Join(dir, "index.nfo"),
			},
		}
	}

	ifo := filepath.Join(dir, "VIDEO_TS", "VIDEO_TS.IFO")
	if isRegularFile(ifo) {
		return &Structure{
			Type:       TypeDVD,
			Root:       dir,
			MarkerPath: ifo,
			NFOPaths: []string{
				filepath.Join(dir, "VIDEO_TS", "VIDEO_TS.nfo"),
				filepath.Join(dir, "VIDEO_TS.nfo"),
			},
		}
	}

	return nil
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
