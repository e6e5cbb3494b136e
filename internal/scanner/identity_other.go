//go:build !unix

package scanner

import "os"

// fileID identifies a physical directory
type fileID struct {
	Dev  uint64
	Ino  uint64
	Path string
}

func identify(path string, _ os.FileInfo) fileID {
	return identifyByPath(path)
}
