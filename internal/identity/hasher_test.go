package identity

import "testing"

func TestHashDeterministic(t *testing.T) {
	hasher := NewHasher("test-salt")

	first := hasher.Hash("203.0.113.7")
	second := hasher.Hash("203.0.113.7")
	if first == "" {
		t.Fatal("Hash returned empty string for valid IP")
	}
	if first != second {
		t.Fatalf("Hash not deterministic: %q vs %q", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("Hash length = %d, want 64 hex characters", len(first))
	}
}

func TestHashTrimsInput(t *testing.T) {
	hasher := NewHasher("test-salt")

	if hasher.Hash("  203.0.113.7  ") != hasher.Hash("203.0.113.7") {
		t.Fatal("Hash should ignore surrounding whitespace")
	}
}

func TestHashDistinctInputs(t *testing.T) {
	hasher := NewHasher("test-salt")

	if hasher.Hash("203.0.113.7") == hasher.Hash("203.0.113.8") {
		t.Fatal("different IPs produced the same hash")
	}
}

func TestHashSaltMatters(t *testing.T) {
	a := NewHasher("salt-a").Hash("203.0.113.7")
	b := NewHasher("salt-b").Hash("203.0.113.7")
	if a == b {
		t.Fatal("different salts produced the same hash")
	}
}

func TestHashEmptyInput(t *testing.T) {
	hasher := NewHasher("test-salt")

	if got := hasher.Hash(""); got != "" {
		t.Fatalf("Hash of empty IP = %q, want empty string", got)
	}
	if got := hasher.Hash("   "); got != "" {
		t.Fatalf("Hash of whitespace IP = %q, want empty string", got)
	}
}

func TestShortLabel(t *testing.T) {
	hash := "abcdef0123456789"

	if got := ShortLabel(hash, 10); got != "ABCDEF0123" {
		t.Fatalf("ShortLabel = %q, want ABCDEF0123", got)
	}
	if got := ShortLabel(hash, 0); got != "ABCDEF0123" {
		t.Fatalf("ShortLabel with zero length = %q, want default of 10", got)
	}
	if got := ShortLabel("ab", 10); got != "AB" {
		t.Fatalf("ShortLabel of short hash = %q, want AB", got)
	}
}
