//go:build unix

package scanner

import (
	"os"

	"golang.org/x/sys/unix"
)

// fileID identifies a physical directory
type fileID struct {
	Dev  uint64
	Ino  uint64
	Path string
}

// identify uses the device and inode of what path resolves to
func identify(path string, _ os.FileInfo) fileID {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err == nil {
		return fileID{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}
	}
	return identifyByPath(path)
}
