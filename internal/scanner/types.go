package scanner

// Entry is a path discovered during traversal. Size and type are not
// queried until classification.
type Entry struct {
	Path  string
	IsDir bool
}

// Bucket is the classification assigned to a non-directory entry
type Bucket int

const (
	BucketEligible Bucket = iota
	BucketTooSmall
	BucketExcludedType
)

// String returns the report name of a bucket
func (b Bucket) String() string {
	switch b {
	case BucketEligible:
		return "eligible"
	case BucketTooSmall:
		return "too_small"
	case BucketExcludedType:
		return "excluded_type"
	default:
		return "unknown"
	}
}

// FileInfo represents a classified file
type FileInfo struct {
	Path     string `json:"path" yaml:"path"`
	Size     int64  `json:"size" yaml:"size"`
	MIME     string `json:"mime,omitempty" yaml:"mime,omitempty"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"` // excluded category, if any
	Bucket   Bucket `json:"-" yaml:"-"`
}

// Classification partitions the non-directory entries of a traversal.
// Every such entry is in exactly one of the three slices, in traversal order.
type Classification struct {
	TooSmall     []FileInfo
	ExcludedType []FileInfo
	Eligible     []FileInfo
	// Errors holds stat/read problems met while classifying. The affected
	// files are still placed in a bucket.
	Errors []error
}

// Total returns the number of classified files
func (c *Classification) Total() int {
	return len(c.TooSmall) + len(c.ExcludedType) + len(c.Eligible)
}

// EligibleSize returns the combined size of all eligible files
func (c *Classification) EligibleSize() int64 {
	var total int64
	for _, f := range c.Eligible {
		total += f.Size
	}
	return total
}

func (c *Classification) add(fi FileInfo) {
	switch fi.Bucket {
	case BucketTooSmall:
		c.TooSmall = append(c.TooSmall, fi)
	case BucketExcludedType:
		c.ExcludedType = append(c.ExcludedType, fi)
	default:
		c.Eligible = append(c.Eligible, fi)
	}
}
