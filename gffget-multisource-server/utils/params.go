package utils

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/googlegenomics/gffget/genomics"
)

// ParseFormat accepts an empty format (defaulting to GFF3) or "GFF3".
func ParseFormat(format string) error {
	if format != "" && format != "GFF3" {
		return fmt.Errorf("unsupported format %q", format)
	}
	return nil
}

// ParseRegion extracts the query region from request parameters.
func ParseRegion(query url.Values) (genomics.Region, error) {
	name := query.Get("referenceName")
	if name == "" {
		return genomics.Region{}, fmt.Errorf("missing reference name")
	}

	region := genomics.Region{Sequence: name}

	if start := query.Get("start"); start != "" {
		n, err := strconv.ParseInt(start, 10, 64)
		if err != nil || n < 0 {
			return genomics.Region{}, fmt.Errorf("invalid start %q", start)
		}
		region.Start = n
	}

	if end := query.Get("end"); end != "" {
		n, err := strconv.ParseInt(end, 10, 64)
		if err != nil || n < 0 {
			return genomics.Region{}, fmt.Errorf("invalid end %q", end)
		}
		region.End = n
	}

	if region.End > 0 && region.Start > region.End {
		return genomics.Region{}, fmt.Errorf("start %d is past end %d", region.Start, region.End)
	}

	return region, nil
}
