package diff

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/five82/hostdiff/internal/snapshot"
)

func svc(port int, proto string, fields map[string]any) snapshot.Service {
	return snapshot.Service{Port: port, Protocol: proto, Fields: fields}
}

func snap(services ...snapshot.Service) snapshot.Snapshot {
	return snapshot.Snapshot{Host: "203.0.113.10", Timestamp: "2025-09-10T03:00:00Z", Services: services}
}

func keys(services []snapshot.Service) []snapshot.ServiceKey {
	out := make([]snapshot.ServiceKey, 0, len(services))
	for _, s := range services {
		out = append(out, s.Key())
	}
	return out
}

func mustCompare(t *testing.T, a, b snapshot.Snapshot) Result {
	t.Helper()
	res, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare returned error: %v", err)
	}
	return res
}

func TestCompare_ModificationDetection(t *testing.T) {
	a := snap(svc(443, "tcp", map[string]any{"banner": "x"}))
	b := snap(svc(443, "tcp", map[string]any{"banner": "y"}))

	res := mustCompare(t, a, b)
	if len(res.Added) != 0 || len(res.Removed) != 0 {
		t.Fatalf("added/removed = %v/%v, want empty", res.Added, res.Removed)
	}
	want := []Modification{{
		Port:     443,
		Protocol: "tcp",
		Changes: map[string]FieldChange{
			"banner": {Before: ValueOf("x"), After: ValueOf("y")},
		},
	}}
	if d := cmp.Diff(want, res.Modified); d != "" {
		t.Fatalf("Modified mismatch (-want +got):\n%s", d)
	}
}

func TestCompare_AddRemoveExample(t *testing.T) {
	fields := map[string]any{"banner": "OpenSSH_9.2"}
	a := snap(svc(22, "tcp", fields))
	b := snap(svc(22, "tcp", fields), svc(80, "tcp", nil))

	res := mustCompare(t, a, b)
	if d := cmp.Diff([]snapshot.ServiceKey{{Port: 80, Protocol: "tcp"}}, keys(res.Added)); d != "" {
		t.Fatalf("Added mismatch (-want +got):\n%s", d)
	}
	if len(res.Removed) != 0 || len(res.Modified) != 0 {
		t.Fatalf("removed/modified = %v/%v, want empty", res.Removed, res.Modified)
	}
}

func TestCompare_AddedCarriesFullRecord(t *testing.T) {
	b := snap(svc(443, "HTTPS", map[string]any{"tls": map[string]any{"version": "tlsv1_2"}}))
	res := mustCompare(t, snap(), b)
	if len(res.Added) != 1 {
		t.Fatalf("len(Added) = %d, want 1", len(res.Added))
	}
	if d := cmp.Diff(b.Services[0], res.Added[0]); d != "" {
		t.Fatalf("Added record mismatch (-want +got):\n%s", d)
	}
}

func TestCompare_SelfDiffIsEmpty(t *testing.T) {
	s := snap(
		svc(80, "HTTP", map[string]any{"status": 200, "nan": math.NaN()}),
		svc(22, "SSH", map[string]any{"software": map[string]any{"product": "openssh"}}),
	)
	res := mustCompare(t, s, s)
	if !res.Empty() {
		t.Fatalf("Compare(S, S) = %+v, want empty", res)
	}
	if res.Added == nil || res.Removed == nil || res.Modified == nil {
		t.Fatalf("empty lists should be non-nil for encoding")
	}
}

func TestCompare_EmptySnapshots(t *testing.T) {
	res := mustCompare(t, snap(), snap())
	if !res.Empty() {
		t.Fatalf("Compare(empty, empty) = %+v, want empty", res)
	}
}

func TestCompare_Determinism(t *testing.T) {
	a := snap(svc(443, "tcp", map[string]any{"a": 1}), svc(22, "tcp", nil), svc(80, "udp", nil), svc(80, "tcp", map[string]any{"x": "1"}))
	b := snap(svc(8080, "tcp", nil), svc(80, "tcp", map[string]any{"x": "2", "y": true}), svc(25, "tcp", nil), svc(443, "tcp", map[string]any{"a": 2}))

	first := mustCompare(t, a, b)
	for i := 0; i < 20; i++ {
		again := mustCompare(t, a, b)
		if d := cmp.Diff(first, again); d != "" {
			t.Fatalf("Compare not deterministic (-first +again):\n%s", d)
		}
	}
}

func TestCompare_SortedByPortThenProtocol(t *testing.T) {
	b := snap(svc(443, "tcp", nil), svc(80, "udp", nil), svc(22, "tcp", nil), svc(80, "tcp", nil))
	res := mustCompare(t, snap(), b)
	want := []snapshot.ServiceKey{{Port: 22, Protocol: "tcp"}, {Port: 80, Protocol: "tcp"}, {Port: 80, Protocol: "udp"}, {Port: 443, Protocol: "tcp"}}
	if d := cmp.Diff(want, keys(res.Added)); d != "" {
		t.Fatalf("Added order mismatch (-want +got):\n%s", d)
	}

	rev := mustCompare(t, b, snap())
	if d := cmp.Diff(want, keys(rev.Removed)); d != "" {
		t.Fatalf("Removed order mismatch (-want +got):\n%s", d)
	}
}

func TestCompare_SymmetryOfStructure(t *testing.T) {
	a := snap(svc(22, "tcp", nil), svc(80, "tcp", map[string]any{"s": 1}), svc(3306, "tcp", nil))
	b := snap(svc(80, "tcp", map[string]any{"s": 2}), svc(443, "tcp", nil), svc(53, "udp", nil))

	ab := mustCompare(t, a, b)
	ba := mustCompare(t, b, a)
	if d := cmp.Diff(keys(ab.Added), keys(ba.Removed)); d != "" {
		t.Fatalf("added(A,B) != removed(B,A):\n%s", d)
	}
	if d := cmp.Diff(keys(ab.Removed), keys(ba.Added)); d != "" {
		t.Fatalf("removed(A,B) != added(B,A):\n%s", d)
	}
	if len(ab.Modified) != 1 || len(ba.Modified) != 1 {
		t.Fatalf("modified counts = %d/%d, want 1/1", len(ab.Modified), len(ba.Modified))
	}
	fwd := ab.Modified[0].Changes["s"]
	back := ba.Modified[0].Changes["s"]
	if fwd.Before != back.After || fwd.After != back.Before {
		t.Fatalf("reversed change = %+v, want swap of %+v", back, fwd)
	}
}

func TestCompare_SupersetProducesOnlyAdds(t *testing.T) {
	shared := map[string]any{"banner": "same"}
	a := snap(svc(22, "tcp", shared))
	b := snap(svc(22, "tcp", shared), svc(80, "tcp", nil), svc(443, "tcp", nil))

	res := mustCompare(t, a, b)
	if len(res.Added) != 2 || len(res.Removed) != 0 || len(res.Modified) != 0 {
		t.Fatalf("summary = %+v, want only adds", res.Summary())
	}
	res = mustCompare(t, b, a)
	if len(res.Removed) != 2 || len(res.Added) != 0 || len(res.Modified) != 0 {
		t.Fatalf("summary = %+v, want only removes", res.Summary())
	}
}

func TestCompare_DuplicateIdentityRejected(t *testing.T) {
	good := snap(svc(22, "tcp", nil))
	bad := snap(svc(80, "tcp", map[string]any{"v": 1}), svc(80, "tcp", map[string]any{"v": 2}))

	for name, pair := range map[string][2]snapshot.Snapshot{
		"A side": {bad, good},
		"B side": {good, bad},
		"both":   {bad, bad},
	} {
		t.Run(name, func(t *testing.T) {
			res, err := Compare(pair[0], pair[1])
			if !errors.Is(err, ErrMalformedSnapshot) {
				t.Fatalf("Compare error = %v, want ErrMalformedSnapshot", err)
			}
			if !strings.Contains(err.Error(), "80/tcp") {
				t.Fatalf("error %q should name the duplicate key", err)
			}
			if !res.Empty() {
				t.Fatalf("partial result returned: %+v", res)
			}
		})
	}
}

func TestCompare_FieldEqualityRules(t *testing.T) {
	cases := []struct {
		name    string
		before  map[string]any
		after   map[string]any
		changed map[string]FieldChange
	}{
		{
			name:    "number vs string",
			before:  map[string]any{"port_label": 80},
			after:   map[string]any{"port_label": "80"},
			changed: map[string]FieldChange{"port_label": {Before: ValueOf(80), After: ValueOf("80")}},
		},
		{
			name:    "absent vs present",
			before:  map[string]any{},
			after:   map[string]any{"tls": "tlsv1_3"},
			changed: map[string]FieldChange{"tls": {Before: Absent, After: ValueOf("tlsv1_3")}},
		},
		{
			name:    "present null vs absent",
			before:  map[string]any{"banner": nil},
			after:   map[string]any{},
			changed: map[string]FieldChange{"banner": {Before: ValueOf(nil), After: Absent}},
		},
		{
			name:    "nested equal",
			before:  map[string]any{"software": map[string]any{"vendor": "nginx", "tags": []any{"a", "b"}}},
			after:   map[string]any{"software": map[string]any{"vendor": "nginx", "tags": []any{"a", "b"}}},
			changed: map[string]FieldChange{},
		},
		{
			name:   "nested differs",
			before: map[string]any{"software": map[string]any{"version": "1.24.0"}},
			after:  map[string]any{"software": map[string]any{"version": "1.25.3"}},
			changed: map[string]FieldChange{"software": {
				Before: ValueOf(map[string]any{"version": "1.24.0"}),
				After:  ValueOf(map[string]any{"version": "1.25.3"}),
			}},
		},
		{
			name:   "list order matters",
			before: map[string]any{"vulns": []any{"CVE-1", "CVE-2"}},
			after:  map[string]any{"vulns": []any{"CVE-2", "CVE-1"}},
			changed: map[string]FieldChange{"vulns": {
				Before: ValueOf([]any{"CVE-1", "CVE-2"}),
				After:  ValueOf([]any{"CVE-2", "CVE-1"}),
			}},
		},
		{
			name:    "json numbers",
			before:  map[string]any{"status": json.Number("200")},
			after:   map[string]any{"status": json.Number("301")},
			changed: map[string]FieldChange{"status": {Before: ValueOf(json.Number("200")), After: ValueOf(json.Number("301"))}},
		},
		{
			name:    "json numbers equal in value",
			before:  map[string]any{"status": json.Number("200"), "ratio": json.Number("1e2")},
			after:   map[string]any{"status": json.Number("200.0"), "ratio": json.Number("100")},
			changed: map[string]FieldChange{},
		},
		{
			name:    "nested json numbers equal in value",
			before:  map[string]any{"timing": map[string]any{"ms": json.Number("1.50")}},
			after:   map[string]any{"timing": map[string]any{"ms": json.Number("1.5")}},
			changed: map[string]FieldChange{},
		},
		{
			name:    "json number vs string",
			before:  map[string]any{"status": json.Number("200")},
			after:   map[string]any{"status": "200"},
			changed: map[string]FieldChange{"status": {Before: ValueOf(json.Number("200")), After: ValueOf("200")}},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := mustCompare(t, snap(svc(80, "HTTP", tc.before)), snap(svc(80, "HTTP", tc.after)))
			if len(tc.changed) == 0 {
				if len(res.Modified) != 0 {
					t.Fatalf("Modified = %+v, want none", res.Modified)
				}
				return
			}
			if len(res.Modified) != 1 {
				t.Fatalf("len(Modified) = %d, want 1", len(res.Modified))
			}
			if d := cmp.Diff(tc.changed, res.Modified[0].Changes); d != "" {
				t.Fatalf("Changes mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestCompare_ParsedNumbersCompareByValue(t *testing.T) {
	parse := func(raw string) snapshot.Snapshot {
		t.Helper()
		s, err := snapshot.Parse([]byte(raw))
		if err != nil {
			t.Fatalf("Parse(%s): %v", raw, err)
		}
		return s
	}
	a := parse(`{"services":[{"port":80,"protocol":"tcp","status":200,"ratio":1e2,"code":7}]}`)
	b := parse(`{"services":[{"port":80,"protocol":"tcp","status":200.0,"ratio":100,"code":8}]}`)

	res := mustCompare(t, a, b)
	if len(res.Modified) != 1 {
		t.Fatalf("len(Modified) = %d, want 1", len(res.Modified))
	}
	if got := res.Modified[0].Fields(); len(got) != 1 || got[0] != "code" {
		t.Fatalf("changed fields = %v, want [code]", got)
	}
}

func TestResultJSON_Shape(t *testing.T) {
	a := snap(svc(22, "SSH", nil), svc(80, "HTTP", map[string]any{"status": 200, "gone": "x"}))
	b := snap(svc(80, "HTTP", map[string]any{"status": 301, "new": nil}), svc(443, "HTTPS", map[string]any{"status": 200}))
	res := mustCompare(t, a, b)

	raw, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"services_added":[{"port":443,"protocol":"HTTPS","status":200}],` +
		`"services_removed":[{"port":22,"protocol":"SSH"}],` +
		`"services_modified":[{"port":80,"protocol":"HTTP","changes":{` +
		`"gone":{"before":"x"},"new":{"after":null},"status":{"before":200,"after":301}}}]}`
	if string(raw) != want {
		t.Fatalf("Marshal =\n%s\nwant\n%s", raw, want)
	}

	var back Result
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	changes := back.Modified[0].Changes
	if changes["gone"].After.Present || !changes["gone"].Before.Present {
		t.Fatalf("gone = %+v, want before only", changes["gone"])
	}
	if changes["new"].Before.Present || !changes["new"].After.Present || changes["new"].After.Data != nil {
		t.Fatalf("new = %+v, want absent -> null", changes["new"])
	}
	if changes["status"].After.Data != json.Number("301") {
		t.Fatalf("status after = %#v, want json.Number(301)", changes["status"].After.Data)
	}
}

func TestResultJSON_ZeroValueEncodesArrays(t *testing.T) {
	raw, err := json.Marshal(Result{})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"services_added":[],"services_removed":[],"services_modified":[]}`
	if string(raw) != want {
		t.Fatalf("Marshal = %s, want %s", raw, want)
	}
}

func TestWriteText(t *testing.T) {
	a := snap(svc(80, "HTTP", map[string]any{"status": 200}))
	b := snap(svc(80, "HTTP", map[string]any{"status": 301}), svc(443, "HTTPS", nil))
	res := mustCompare(t, a, b)

	var buf bytes.Buffer
	if err := res.WriteText(&buf); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Added services (1)", "+ 443/HTTPS", "Removed services (0)", "~ 80/HTTP", "status: 200 -> 301"} {
		if !strings.Contains(out, want) {
			t.Fatalf("WriteText output missing %q:\n%s", want, out)
		}
	}
}
