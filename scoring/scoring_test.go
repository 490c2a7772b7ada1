package scoring

import (
	"strings"
	"testing"
)

func TestContentHashIsStable(t *testing.T) {
	record := ScanRecord{
		IP:        "203.0.113.5",
		OpenPorts: []int{22, 443},
		TLS:       &TLSInfo{Issuer: "DigiCert", Expiry: "2030-01-01"},
		Vulns:     map[string]string{"CVE-2": "dos", "CVE-1": "rce"},
	}

	first := record.ContentHash()
	second := record.ContentHash()

	if first != second {
		t.Fatalf("hash not stable: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}

	// An equivalent record assembled separately hashes identically.
	equivalent := ScanRecord{
		IP:        "203.0.113.5",
		OpenPorts: []int{22, 443},
		TLS:       &TLSInfo{Issuer: "DigiCert", Expiry: "2030-01-01"},
		Vulns:     map[string]string{"CVE-1": "rce", "CVE-2": "dos"},
	}
	if equivalent.ContentHash() != first {
		t.Error("equivalent records must hash identically")
	}
}

func TestContentHashIsSensitiveToInput(t *testing.T) {
	base := ScanRecord{IP: "203.0.113.5", OpenPorts: []int{22, 443}}

	changedPort := ScanRecord{IP: "203.0.113.5", OpenPorts: []int{22, 444}}
	if base.ContentHash() == changedPort.ContentHash() {
		t.Error("changing a port must change the hash")
	}

	changedIP := ScanRecord{IP: "203.0.113.6", OpenPorts: []int{22, 443}}
	if base.ContentHash() == changedIP.ContentHash() {
		t.Error("changing the IP must change the hash")
	}

	withTLS := base
	withTLS.TLS = &TLSInfo{Issuer: "DigiCert", Expiry: "2030-01-01"}
	if base.ContentHash() == withTLS.ContentHash() {
		t.Error("adding TLS metadata must change the hash")
	}
}

func TestValidate(t *testing.T) {
	valid := ScanRecord{IP: "203.0.113.5", OpenPorts: []int{22, 443}}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid record rejected: %v", err)
	}

	missingIP := ScanRecord{OpenPorts: []int{22}}
	if err := missingIP.Validate(); err == nil {
		t.Error("record without ip must be rejected")
	}

	badPort := ScanRecord{IP: "203.0.113.5", OpenPorts: []int{70000}}
	if err := badPort.Validate(); err == nil {
		t.Error("out-of-range port must be rejected")
	} else if !strings.Contains(err.Error(), "invalid scan record") {
		t.Errorf("unexpected error text: %v", err)
	}
}

func TestHasPortAndPortsIn(t *testing.T) {
	record := ScanRecord{IP: "203.0.113.5", OpenPorts: []int{22, 443, 3306, 3306}}

	if !record.HasPort(22) || record.HasPort(80) {
		t.Error("HasPort mismatch")
	}

	matched := record.PortsIn([]int{3306, 5432, 443})
	// Matches preserve the record's own port order, duplicates included.
	want := []int{443, 3306, 3306}
	if len(matched) != len(want) {
		t.Fatalf("expected %v, got %v", want, matched)
	}
	for i := range want {
		if matched[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, matched)
		}
	}

	if got := record.PortsIn([]int{80}); got != nil {
		t.Errorf("expected no matches, got %v", got)
	}
}
