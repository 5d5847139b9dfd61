package obs

import "testing"

func TestCanonicalPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/metrics", "/metrics"},
		{"/v1/auth/login", "/v1/auth/login"},
		{"/v1/auth/sessions/01J5ABCD", "/v1/auth/sessions/:id"},
		{"/v1/auth/sessions/01J5ABCD/extra", "/v1/auth/sessions/:id"},
		{"/v1/onboarding/stores/01J5XYZ", "/v1/onboarding/stores/:id"},
		{"/v1/auth/login?redirect=%2Fdash", "/v1/auth/login"},
		{"/v1/onboarding/status", "/v1/onboarding/status"},
	}
	for _, tc := range cases {
		if got := CanonicalPath(tc.in); got != tc.want {
			t.Fatalf("CanonicalPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
