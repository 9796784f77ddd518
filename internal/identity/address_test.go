// internal/identity/address_test.go
package identity

import "testing"

func TestParseAddress(t *testing.T) {
	a, err := ParseAddress("c0:11:22:33:44:55", AddressRandomStatic)
	if err != nil {
		t.Fatalf("ParseAddress err=%v", err)
	}
	if a.Type != AddressRandomStatic {
		t.Fatalf("type: got=%d want=%d", a.Type, AddressRandomStatic)
	}
	if a.Bytes != [6]byte{0xc0, 0x11, 0x22, 0x33, 0x44, 0x55} {
		t.Fatalf("bytes mismatch: %v", a.Bytes)
	}
	if a.String() != "c0:11:22:33:44:55" {
		t.Fatalf("String() = %s", a.String())
	}
}

func TestParseAddress_Rejects(t *testing.T) {
	for _, s := range []string{"", "nope", "00:00:5e:00:53:00:00:01"} {
		if _, err := ParseAddress(s, AddressPublic); err == nil {
			t.Fatalf("expected error for %q", s)
		}
	}
}

func TestStaticProvider(t *testing.T) {
	a, _ := ParseAddress("01:02:03:04:05:06", AddressPublic)
	var p Provider = Static(a)
	if p.LocalAddress() != a {
		t.Fatalf("provider returned %v", p.LocalAddress())
	}
	if a.IsZero() || !(Address{}).IsZero() {
		t.Fatalf("IsZero mismatch")
	}
}
