package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"
)

// zap JSON keys that Entry lifts out of Fields.
const (
	keyTime       = "ts"
	keyLevel      = "level"
	keyLogger     = "logger"
	keyMessage    = "msg"
	keyCaller     = "caller"
	keyStacktrace = "stacktrace"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Entry is one decoded log line. Lines that are not JSON objects keep their
// text in Raw and leave every other field empty.
type Entry struct {
	Time    time.Time
	Level   string
	Logger  string
	Message string
	Fields  map[string]any
	Raw     string
}

// Tail returns the last n entries of the log file at path, oldest first.
// A missing file yields no entries.
func Tail(path string, n int) ([]Entry, error) {
	lines, err := lastLines(path, n)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		entries = append(entries, Parse(line))
	}
	return entries, nil
}

// Parse decodes a zap JSON line.
func Parse(line string) Entry {
	var raw map[string]any
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil || raw == nil {
		return Entry{Raw: line}
	}

	e := Entry{
		Level:   stringField(raw, keyLevel),
		Logger:  stringField(raw, keyLogger),
		Message: stringField(raw, keyMessage),
	}
	if ts := stringField(raw, keyTime); ts != "" {
		if t, err := time.Parse(timeLayout, ts); err == nil {
			e.Time = t
		}
	}
	for _, k := range []string{keyTime, keyLevel, keyLogger, keyMessage, keyCaller, keyStacktrace} {
		delete(raw, k)
	}
	if len(raw) > 0 {
		e.Fields = raw
	}
	return e
}

// String formats the entry on one line: time, level, logger, message, then
// fields sorted by key.
func (e Entry) String() string {
	if e.Raw != "" {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	if e.Level != "" {
		fmt.Fprintf(&b, "%-5s ", e.Level)
	}
	if e.Logger != "" {
		b.WriteString(e.Logger)
		b.WriteByte(' ')
	}
	b.WriteString(e.Message)
	for _, k := range slices.Sorted(maps.Keys(e.Fields)) {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

// lastLines keeps a sliding window of the final n lines.
func lastLines(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	window := make([]string, 0, n)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(window) == n {
			copy(window, window[1:])
			window = window[:n-1]
		}
		window = append(window, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	return window, nil
}
