package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ContentHash returns the SHA-256 fingerprint of the record's canonical
// serialization. Optional fields are included only when present, and map
// keys are serialized in sorted order, so equivalent records always hash
// to the same value regardless of how the caller assembled them.
//
// The hash identifies the scanned input for auditing and deduplication;
// it is not a lookup key for the report itself.
func (r ScanRecord) ContentHash() string {
	canonical := map[string]interface{}{
		"ip": r.IP,
	}
	if r.OpenPorts != nil {
		canonical["open_ports"] = r.OpenPorts
	}
	if r.TLS != nil {
		canonical["tls"] = r.TLS
	}
	if r.Vulns != nil {
		canonical["vulns"] = r.Vulns
	}
	if r.DockerExposure != nil {
		canonical["docker_exposure"] = r.DockerExposure
	}

	// encoding/json writes map keys in sorted order, which is exactly
	// the canonical form we need.
	data, err := json.Marshal(canonical)
	if err != nil {
		// Only unserializable values reach here, and the record holds
		// none. Hash the bare IP rather than panic.
		data = []byte(r.IP)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
