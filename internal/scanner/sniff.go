package scanner

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// SniffLimit is how many leading bytes are read for content detection
const SniffLimit = 3072

// Sniffer maps leading file content to a MIME-like type tag
type Sniffer interface {
	Detect(head []byte) string
}

// SnifferFunc adapts a plain function to the Sniffer interface
type SnifferFunc func(head []byte) string

// Detect calls f(head)
func (f SnifferFunc) Detect(head []byte) string {
	return f(head)
}

// MimeSniffer detects types from magic numbers using mimetype
type MimeSniffer struct{}

// Detect returns the detected MIME type, including parameters such as charset
func (MimeSniffer) Detect(head []byte) string {
	return mimetype.Detect(head).String()
}

// Excluded categories. Files of these types gain little or nothing from gzip.
const (
	CategoryImage      = "image"
	CategoryVideo      = "video"
	CategoryAudio      = "audio"
	CategoryArchive    = "archive"
	CategoryCompressed = "compressed"
	CategoryDiskImage  = "disk-image"
	CategoryP2P        = "p2p"
)

var excludedTypes = map[string]string{
	// Archives and containers
	"application/zip":                         CategoryArchive,
	"application/x-tar":                       CategoryArchive,
	"application/x-7z-compressed":             CategoryArchive,
	"application/x-rar-compressed":            CategoryArchive,
	"application/vnd.rar":                     CategoryArchive,
	"application/vnd.ms-cab-compressed":       CategoryArchive,
	"application/x-rpm":                       CategoryArchive,
	"application/vnd.debian.binary-package":   CategoryArchive,
	"application/jar":                         CategoryArchive,
	"application/java-archive":                CategoryArchive,
	"application/vnd.android.package-archive": CategoryArchive,
	"application/x-xar":                       CategoryArchive,
	"application/x-archive":                   CategoryArchive,
	"application/x-unix-archive":              CategoryArchive,
	"application/epub+zip":                    CategoryArchive,
	"application/ogg":                         CategoryArchive,

	// Already compressed streams
	"application/gzip":       CategoryCompressed,
	"application/x-gzip":     CategoryCompressed,
	"application/x-bzip2":    CategoryCompressed,
	"application/x-xz":       CategoryCompressed,
	"application/zstd":       CategoryCompressed,
	"application/x-lz4":      CategoryCompressed,
	"application/lzip":       CategoryCompressed,
	"application/x-lzip":     CategoryCompressed,
	"application/x-compress": CategoryCompressed,
	"application/x-brotli":   CategoryCompressed,
	"application/x-lzma":     CategoryCompressed,

	// Disk images
	"application/x-iso9660-image":   CategoryDiskImage,
	"application/x-apple-diskimage": CategoryDiskImage,

	// Peer-to-peer metadata
	"application/x-bittorrent": CategoryP2P,

	// Lossy/compressed audio
	"audio/mpeg":  CategoryAudio,
	"audio/ogg":   CategoryAudio,
	"audio/flac":  CategoryAudio,
	"audio/aac":   CategoryAudio,
	"audio/x-m4a": CategoryAudio,
	"audio/mp4":   CategoryAudio,
	"audio/opus":  CategoryAudio,
	"audio/webm":  CategoryAudio,
}

// zip-based document containers
var excludedPrefixes = []struct {
	prefix   string
	category string
}{
	{"image/", CategoryImage},
	{"video/", CategoryVideo},
	{"application/vnd.openxmlformats-officedocument.", CategoryArchive},
	{"application/vnd.oasis.opendocument.", CategoryArchive},
}

// ExcludedCategory returns the excluded category of a type tag, or "" if
// the type is worth compressing.
func ExcludedCategory(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" {
		return ""
	}

	if category, ok := excludedTypes[base]; ok {
		return category
	}
	for _, p := range excludedPrefixes {
		if strings.HasPrefix(base, p.prefix) {
			return p.category
		}
	}
	return ""
}

// IsExcludedType reports whether the type tag is known to be incompressible
func IsExcludedType(mime string) bool {
	return ExcludedCategory(mime) != ""
}
