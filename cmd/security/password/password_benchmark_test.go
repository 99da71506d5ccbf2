package password

import "testing"

// Login latency is dominated by Verify with the production parameters.
func BenchmarkVerify_DefaultConfig(b *testing.B) {
	h := NewHasher(DefaultConfig())
	enc, err := h.Hash("care-plan-2024")
	if err != nil {
		b.Fatalf("Hash error: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if ok, _, err := h.Verify(enc, "care-plan-2024"); err != nil || !ok {
			b.Fatalf("Verify failed: ok=%v err=%v", ok, err)
		}
	}
}

func BenchmarkDummyHash_DefaultConfig(b *testing.B) {
	h := NewHasher(DefaultConfig())
	for i := 0; i < b.N; i++ {
		if _, err := h.DummyHash(); err != nil {
			b.Fatalf("DummyHash error: %v", err)
		}
	}
}
