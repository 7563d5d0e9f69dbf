package snapshot

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Uploads are commonly named host_<ip>_<timestamp>.json with the time part
// of the timestamp using '-' instead of ':' (host_125.199.235.74_2025-09-10T03-00-00Z.json).
var filenamePattern = regexp.MustCompile(`^host_(\d+\.\d+\.\d+\.\d+)_([^.]+)\.json$`)

// ParseFilename extracts the host and timestamp encoded in an upload filename.
func ParseFilename(name string) (host, timestamp string, ok bool) {
	match := filenamePattern.FindStringSubmatch(filepath.Base(strings.TrimSpace(name)))
	if match == nil {
		return "", "", false
	}
	return match[1], restoreTimestamp(match[2]), true
}

func restoreTimestamp(ts string) string {
	idx := strings.IndexByte(ts, 'T')
	if idx < 0 {
		return ts
	}
	return ts[:idx+1] + strings.Replace(ts[idx+1:], "-", ":", 2)
}
