package utils

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

const (
	B  = 1
	KB = 1024 * B
	MB = 1024 * KB
	GB = 1024 * MB
)

// sizePattern is the accepted size grammar: NUMBER[.FRACTION][K|M|G]
var sizePattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?[KkMmGg]?$`)

// IsValidSize reports whether s matches the size grammar
func IsValidSize(s string) bool {
	return sizePattern.MatchString(s)
}

// ParseSize converts a human size string like "1.5M" to bytes.
// Fractions are multiplied first and then truncated toward zero.
func ParseSize(size string) (int64, error) {
	if !IsValidSize(size) {
		return 0, fmt.Errorf("invalid size format: %q", size)
	}

	var multiplier float64 = B
	number := size
	switch size[len(size)-1] {
	case 'K', 'k':
		multiplier = KB
		number = size[:len(size)-1]
	case 'M', 'm':
		multiplier = MB
		number = size[:len(size)-1]
	case 'G', 'g':
		multiplier = GB
		number = size[:len(size)-1]
	}

	// Whole numbers stay in integer arithmetic so large byte counts are exact
	if !strings.Contains(number, ".") {
		n, err := strconv.ParseInt(number, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number in size %q: %w", size, err)
		}
		if n > math.MaxInt64/int64(multiplier) {
			return 0, fmt.Errorf("size %q is too large", size)
		}
		return n * int64(multiplier), nil
	}

	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in size %q: %w", size, err)
	}
	bytes := value * multiplier
	if bytes >= math.MaxInt64 {
		return 0, fmt.Errorf("size %q is too large", size)
	}
	return int64(bytes), nil
}

// FormatBytes converts bytes to human-readable format. Negative values
// keep their sign so inflated files show up as such in reports.
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		return "-" + humanize.IBytes(uint64(-bytes))
	}
	return humanize.IBytes(uint64(bytes))
}

// SumSizes adds up a slice of sizes
func SumSizes(sizes []int64) int64 {
	var total int64
	for _, size := range sizes {
		total += size
	}
	return total
}
