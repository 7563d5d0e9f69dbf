package snapshot

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParse_SplitsIdentityFromFields(t *testing.T) {
	raw := []byte(`{
		"ip": " 125.199.235.74 ",
		"timestamp": "2025-09-10T03:00:00Z",
		"services": [
			{"port": 80, "protocol": "HTTP", "status": 200,
			 "software": {"vendor": "microsoft", "version": "8.5"}},
			{"port": "443", "protocol": "HTTPS"}
		],
		"service_count": 2
	}`)

	snap, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if snap.Host != "125.199.235.74" {
		t.Fatalf("Host = %q, want trimmed ip", snap.Host)
	}
	if snap.Timestamp != "2025-09-10T03:00:00Z" {
		t.Fatalf("Timestamp = %q", snap.Timestamp)
	}
	if len(snap.Services) != 2 {
		t.Fatalf("len(Services) = %d, want 2", len(snap.Services))
	}

	http := snap.Services[0]
	if http.Key() != (ServiceKey{Port: 80, Protocol: "HTTP"}) {
		t.Fatalf("Key = %v, want 80/HTTP", http.Key())
	}
	if _, ok := http.Fields["port"]; ok {
		t.Fatalf("Fields should not carry port")
	}
	if got := http.Fields["status"]; got != json.Number("200") {
		t.Fatalf("status = %#v, want json.Number(200)", got)
	}
	software, ok := http.Fields["software"].(map[string]any)
	if !ok || software["vendor"] != "microsoft" {
		t.Fatalf("software = %#v, want nested object", http.Fields["software"])
	}

	if snap.Services[1].Port != 443 {
		t.Fatalf("string port not parsed: %d", snap.Services[1].Port)
	}
}

func TestParse_SkipsServicesWithoutIdentity(t *testing.T) {
	raw := []byte(`{"services": [{"port": 22}, {"protocol": "SSH"}, {"port": 22, "protocol": "SSH"}]}`)
	snap, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(snap.Services) != 1 {
		t.Fatalf("len(Services) = %d, want 1", len(snap.Services))
	}
}

func TestParse_KeepsDuplicateIdentities(t *testing.T) {
	raw := []byte(`{"services": [{"port": 80, "protocol": "tcp"}, {"port": 80, "protocol": "tcp"}]}`)
	snap, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(snap.Services) != 2 {
		t.Fatalf("len(Services) = %d, want duplicates preserved", len(snap.Services))
	}
}

func TestParse_RejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"not json":        `{not json`,
		"port range":      `{"services": [{"port": 70000, "protocol": "tcp"}]}`,
		"negative port":   `{"services": [{"port": -1, "protocol": "tcp"}]}`,
		"fractional port": `{"services": [{"port": 80.5, "protocol": "tcp"}]}`,
		"protocol type":   `{"services": [{"port": 80, "protocol": 6}]}`,
		"service scalar":  `{"services": [42]}`,
		"null document":   `null`,
		"array document":  `[]`,
		"string document": `"x"`,
		"empty document":  ``,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(raw))
			if !errors.Is(err, ErrInvalidSnapshot) {
				t.Fatalf("Parse error = %v, want ErrInvalidSnapshot", err)
			}
		})
	}
}

func TestParseUpload_FilenameFallback(t *testing.T) {
	snap, err := ParseUpload("uploads/host_125.199.235.74_2025-09-10T03-00-00Z.json", []byte(`{"services": []}`))
	if err != nil {
		t.Fatalf("ParseUpload returned error: %v", err)
	}
	if snap.Host != "125.199.235.74" {
		t.Fatalf("Host = %q, want from filename", snap.Host)
	}
	if snap.Timestamp != "2025-09-10T03:00:00Z" {
		t.Fatalf("Timestamp = %q, want 2025-09-10T03:00:00Z", snap.Timestamp)
	}
}

func TestParseUpload_PayloadWinsOverFilename(t *testing.T) {
	raw := []byte(`{"ip": "10.0.0.1", "services": []}`)
	snap, err := ParseUpload("host_125.199.235.74_2025-09-10T03-00-00Z.json", raw)
	if err != nil {
		t.Fatalf("ParseUpload returned error: %v", err)
	}
	if snap.Host != "10.0.0.1" || snap.Timestamp != "2025-09-10T03:00:00Z" {
		t.Fatalf("got %q @ %q, want payload ip and filename timestamp", snap.Host, snap.Timestamp)
	}
}

func TestParseUpload_MissingIdentityFails(t *testing.T) {
	_, err := ParseUpload("scan.json", []byte(`{"services": []}`))
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("ParseUpload error = %v, want ErrInvalidSnapshot", err)
	}
}

func TestParseFilename(t *testing.T) {
	cases := []struct {
		name   string
		host   string
		ts     string
		wantOK bool
	}{
		{"host_1.2.3.4_2025-09-15T08-49-45Z.json", "1.2.3.4", "2025-09-15T08:49:45Z", true},
		{"host_1.2.3.4_20250915.json", "1.2.3.4", "20250915", true},
		{"snapshot.json", "", "", false},
		{"host_example.com_2025-09-15T08-49-45Z.json", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host, ts, ok := ParseFilename(tc.name)
			if ok != tc.wantOK || host != tc.host || ts != tc.ts {
				t.Fatalf("ParseFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tc.name, host, ts, ok, tc.host, tc.ts, tc.wantOK)
			}
		})
	}
}

func TestServiceJSON_Flattens(t *testing.T) {
	svc := Service{Port: 22, Protocol: "SSH", Fields: map[string]any{"banner": "OpenSSH"}}
	raw, err := json.Marshal(svc)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"banner":"OpenSSH","port":22,"protocol":"SSH"}`
	if string(raw) != want {
		t.Fatalf("Marshal = %s, want %s", raw, want)
	}

	var back Service
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Key() != svc.Key() || back.Fields["banner"] != "OpenSSH" {
		t.Fatalf("Unmarshal = %#v, want %#v", back, svc)
	}
}

func TestServiceKeyCompare(t *testing.T) {
	a := ServiceKey{Port: 80, Protocol: "tcp"}
	b := ServiceKey{Port: 80, Protocol: "udp"}
	c := ServiceKey{Port: 443, Protocol: "tcp"}
	if a.Compare(b) >= 0 || b.Compare(c) >= 0 || c.Compare(a) <= 0 || a.Compare(a) != 0 {
		t.Fatalf("ServiceKey ordering broken")
	}
	if a.String() != "80/tcp" {
		t.Fatalf("String = %q, want 80/tcp", a.String())
	}
}

func TestParse_AcceptsWholeFloatPort(t *testing.T) {
	snap, err := Parse([]byte(`{"services": [{"port": 80.0, "protocol": "tcp"}, {"port": 4.43e2, "protocol": "tcp"}]}`))
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if len(snap.Services) != 2 || snap.Services[0].Port != 80 || snap.Services[1].Port != 443 {
		t.Fatalf("Services = %+v, want ports 80 and 443", snap.Services)
	}
}

func TestParseUpload_RejectsNullDocument(t *testing.T) {
	_, err := ParseUpload("host_10.0.0.2_2025-09-10T03-00-00Z.json", []byte("null"))
	if !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("ParseUpload error = %v, want ErrInvalidSnapshot", err)
	}
}
