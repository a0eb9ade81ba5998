package intake

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Metadata is the "Name | Category | Size" line sent after a link or file.
// Detail holds the size label for links and the description for files.
type Metadata struct {
	Name     string
	Category string
	Detail   string
}

// ParseMetadataLine splits line on '|'. At least three fields are required;
// the third keeps any further pipes. Fields may be empty; an empty name
// falls back to the link or file name when the item is added.
func ParseMetadataLine(line string) (Metadata, error) {
	parts := strings.SplitN(line, "|", 3)
	if len(parts) < 3 {
		return Metadata{}, fmt.Errorf("%w: use Name | Category | Size", ErrInvalidFormat)
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return Metadata{Name: parts[0], Category: parts[1], Detail: parts[2]}, nil
}

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders n with 1024-based units and at most two decimals,
// e.g. 89128960 -> "85 MB".
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	v := float64(n)
	pow := 0
	for v >= 1024 && pow < len(byteUnits)-1 {
		v /= 1024
		pow++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + byteUnits[pow]
}
