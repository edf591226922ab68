package checkout

import "testing"

func TestCSRFGuardVerify(t *testing.T) {
	guard := NewCSRFGuard("test-secret")

	hash := guard.Sign("token-abc", "nonce-123")

	if !guard.Verify("token-abc", "nonce-123", hash) {
		t.Error("Valid hash should verify")
	}

	if guard.Verify("token-abc", "nonce-456", hash) {
		t.Error("Hash over a different nonce should fail")
	}

	if guard.Verify("token-xyz", "nonce-123", hash) {
		t.Error("Hash over a different token should fail")
	}

	if guard.Verify("token-abc", "nonce-123", "not-hex") {
		t.Error("Malformed hash should fail")
	}

	other := NewCSRFGuard("other-secret")
	if other.Verify("token-abc", "nonce-123", hash) {
		t.Error("Hash signed with a different secret should fail")
	}
}
