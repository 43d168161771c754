package logger

import "testing"

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"john.doe@example.com", "joh***@example.com"},
		{"jd@example.com", "jd***@example.com"},
		{"", ""},
		{"not-an-email", "***"},
	}

	for _, tc := range cases {
		if got := MaskEmail(tc.in); got != tc.want {
			t.Errorf("MaskEmail(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskIP(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"192.168.1.100", "192.168.1.*"},
		{"10.0.0.1", "10.0.0.*"},
		{"2001:db8:85a3:8d3:1319:8a2e:370:7348", "2001:db8:85a3:8d3:*:*:*:*"},
		{"", ""},
		{"garbage", "***"},
	}

	for _, tc := range cases {
		if got := MaskIP(tc.in); got != tc.want {
			t.Errorf("MaskIP(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestMaskString(t *testing.T) {
	if got := MaskString("supersecretvalue"); got != "su***ue" {
		t.Errorf("MaskString = %q, want su***ue", got)
	}
	if got := MaskString("abc"); got != "***" {
		t.Errorf("short MaskString = %q, want ***", got)
	}
	if got := MaskString(""); got != "" {
		t.Errorf("empty MaskString = %q, want empty", got)
	}
}
