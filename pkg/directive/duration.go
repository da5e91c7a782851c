package directive

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseCacheDuration parses the `@cache` value: "session", "daily",
// "weekly", or a numeric duration like "10s", "5m", "2h", "3d".
func parseCacheDuration(raw string) (CacheSpec, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	switch v {
	case "session":
		return CacheSpec{Session: true}, nil
	case "daily":
		return CacheSpec{Daily: true}, nil
	case "weekly":
		return CacheSpec{Weekly: true}, nil
	}

	if len(v) < 2 {
		return CacheSpec{}, fmt.Errorf("invalid @cache duration %q", raw)
	}
	unit := v[len(v)-1]
	numPart := v[:len(v)-1]
	n, err := strconv.Atoi(numPart)
	if err != nil || n < 0 {
		return CacheSpec{}, fmt.Errorf("invalid @cache duration %q", raw)
	}

	var d time.Duration
	switch unit {
	case 's':
		d = time.Duration(n) * time.Second
	case 'm':
		d = time.Duration(n) * time.Minute
	case 'h':
		d = time.Duration(n) * time.Hour
	case 'd':
		d = time.Duration(n) * 24 * time.Hour
	default:
		return CacheSpec{}, fmt.Errorf("invalid @cache duration unit in %q", raw)
	}
	return CacheSpec{TTL: d}, nil
}
