// Package snapshot models uploaded host scans and decodes the upload format.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidSnapshot reports an upload that cannot be turned into a Snapshot.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

const maxPort = 65535

// ServiceKey is the composite identity of a service within one snapshot.
type ServiceKey struct {
	Port     int
	Protocol string
}

func (k ServiceKey) String() string {
	return fmt.Sprintf("%d/%s", k.Port, k.Protocol)
}

// Compare orders keys ascending by port, then protocol.
func (k ServiceKey) Compare(other ServiceKey) int {
	switch {
	case k.Port < other.Port:
		return -1
	case k.Port > other.Port:
		return 1
	}
	return strings.Compare(k.Protocol, other.Protocol)
}

// Service is one (port, protocol) entry of a snapshot. Fields carries every
// other scan attribute as opaque JSON data.
type Service struct {
	Port     int
	Protocol string
	Fields   map[string]any
}

// Key returns the service identity.
func (s Service) Key() ServiceKey {
	return ServiceKey{Port: s.Port, Protocol: s.Protocol}
}

// MarshalJSON flattens identity and fields into a single object.
func (s Service) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Fields)+2)
	for k, v := range s.Fields {
		out[k] = v
	}
	out["port"] = s.Port
	out["protocol"] = s.Protocol
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flattened form produced by MarshalJSON.
func (s *Service) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}
	svc, ok, err := serviceFromObject(raw)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: service requires port and protocol", ErrInvalidSnapshot)
	}
	*s = svc
	return nil
}

// Snapshot is an immutable record of a host's services at one point in time.
type Snapshot struct {
	Host      string
	Timestamp string
	Services  []Service
}

// Parse decodes an upload document of the form
// {"ip": ..., "timestamp": ..., "services": [...]}. Host and timestamp may be
// empty in the result; ParseUpload enforces them.
func Parse(raw []byte) (Snapshot, error) {
	var doc struct {
		IP        string            `json:"ip"`
		Timestamp string            `json:"timestamp"`
		Services  []json.RawMessage `json:"services"`
	}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '{' {
		return Snapshot{}, fmt.Errorf("%w: document must be a JSON object", ErrInvalidSnapshot)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	snap := Snapshot{
		Host:      strings.TrimSpace(doc.IP),
		Timestamp: strings.TrimSpace(doc.Timestamp),
		Services:  make([]Service, 0, len(doc.Services)),
	}
	for i, item := range doc.Services {
		obj, err := decodeObject(item)
		if err != nil {
			return Snapshot{}, fmt.Errorf("service %d: %w", i, err)
		}
		svc, ok, err := serviceFromObject(obj)
		if err != nil {
			return Snapshot{}, fmt.Errorf("service %d: %w", i, err)
		}
		if !ok {
			continue
		}
		snap.Services = append(snap.Services, svc)
	}
	return snap, nil
}

// ParseUpload decodes an uploaded file, falling back to the filename for a
// missing host or timestamp.
func ParseUpload(filename string, raw []byte) (Snapshot, error) {
	snap, err := Parse(raw)
	if err != nil {
		return Snapshot{}, err
	}
	if snap.Host == "" || snap.Timestamp == "" {
		host, ts, ok := ParseFilename(filename)
		if ok {
			if snap.Host == "" {
				snap.Host = host
			}
			if snap.Timestamp == "" {
				snap.Timestamp = ts
			}
		}
	}
	if snap.Host == "" || snap.Timestamp == "" {
		return Snapshot{}, fmt.Errorf("%w: missing 'ip' or 'timestamp' in JSON/filename", ErrInvalidSnapshot)
	}
	return snap, nil
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	if obj == nil {
		return nil, fmt.Errorf("%w: service is not an object", ErrInvalidSnapshot)
	}
	return obj, nil
}

// serviceFromObject splits identity from fields. ok is false when port or
// protocol is missing; such entries are skipped by Parse.
func serviceFromObject(obj map[string]any) (Service, bool, error) {
	rawPort, hasPort := obj["port"]
	rawProto, hasProto := obj["protocol"]
	if !hasPort || !hasProto || rawPort == nil || rawProto == nil {
		return Service{}, false, nil
	}

	port, err := parsePort(rawPort)
	if err != nil {
		return Service{}, false, err
	}
	proto, ok := rawProto.(string)
	if !ok {
		return Service{}, false, fmt.Errorf("%w: protocol must be a string, got %T", ErrInvalidSnapshot, rawProto)
	}

	fields := make(map[string]any, len(obj))
	for k, v := range obj {
		if k == "port" || k == "protocol" {
			continue
		}
		fields[k] = v
	}
	return Service{Port: port, Protocol: proto, Fields: fields}, true, nil
}

func parsePort(v any) (int, error) {
	var (
		n   int64
		err error
	)
	switch p := v.(type) {
	case json.Number:
		if n, err = p.Int64(); err != nil {
			n, err = integral(p.Float64())
		}
	case string:
		n, err = strconv.ParseInt(strings.TrimSpace(p), 10, 64)
	case float64:
		n, err = integral(p, nil)
	case int:
		n = int64(p)
	default:
		err = fmt.Errorf("unsupported type %T", v)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: port %v: %v", ErrInvalidSnapshot, v, err)
	}
	if n < 0 || n > maxPort {
		return 0, fmt.Errorf("%w: port %d out of range", ErrInvalidSnapshot, n)
	}
	return int(n), nil
}

// integral accepts a float only when it holds a whole number.
func integral(f float64, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	n := int64(f)
	if float64(n) != f {
		return 0, fmt.Errorf("not an integer")
	}
	return n, nil
}
