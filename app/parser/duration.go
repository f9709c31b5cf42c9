package parser

import (
	"fmt"
	"regexp"
	"strconv"
)

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// ParseISODuration converts an ISO-8601 duration such as PT1H2M3S into
// seconds. Every component is optional; years, months and weeks are not
// used by the video API and are rejected.
func ParseISODuration(value string) (int, error) {
	match := isoDurationPattern.FindStringSubmatch(value)
	if match == nil || value == "P" || value == "PT" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", value)
	}

	multipliers := []int{86400, 3600, 60, 1}
	total := 0
	for i, multiplier := range multipliers {
		if match[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(match[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", value, err)
		}
		total += n * multiplier
	}
	return total, nil
}
