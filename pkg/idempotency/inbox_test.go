package idempotency

import "testing"

func TestGenerateKeyDeterministic(t *testing.T) {
	a := GenerateKey("HL7", "MSH|^~\\&|HIS")
	b := GenerateKey("HL7", "MSH|^~\\&|HIS")
	if a != b {
		t.Errorf("same input should yield the same key: %q vs %q", a, b)
	}
	if len(a) != 64 {
		t.Errorf("key should be a hex SHA-256 digest, got length %d", len(a))
	}
}

func TestGenerateKeyDiscriminates(t *testing.T) {
	base := GenerateKey("HL7", "payload")
	if GenerateKey("XML", "payload") == base {
		t.Error("different conversion types should yield different keys")
	}
	if GenerateKey("HL7", "payload2") == base {
		t.Error("different payloads should yield different keys")
	}
}
