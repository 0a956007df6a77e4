package routes

import "testing"

func TestExactMatch(t *testing.T) {
	m := NewMatcher(map[string]string{
		"api/v1/login": "auth",
	})

	if got := m.Class("/api/v1/login"); got != "auth" {
		t.Errorf("expected auth, got %q", got)
	}
	if got := m.Class("/api/v1/logout"); got != DefaultClass {
		t.Errorf("expected default, got %q", got)
	}
}

func TestSingleWildcard(t *testing.T) {
	m := NewMatcher(map[string]string{
		"api/v1/*": "api",
	})

	cases := []struct {
		path string
		want string
	}{
		{"/api/v1/users", "api"},
		{"/api/v1/orders", "api"},
		{"/api/v1/users/42", DefaultClass}, // * doesn't cross segments
		{"/api/v2/users", DefaultClass},
	}
	for _, tc := range cases {
		if got := m.Class(tc.path); got != tc.want {
			t.Errorf("path=%q: expected %q got %q", tc.path, tc.want, got)
		}
	}
}

func TestGlobStar(t *testing.T) {
	m := NewMatcher(map[string]string{
		"admin/**": "admin",
	})

	cases := []struct {
		path string
		want string
	}{
		{"/admin", DefaultClass}, // prefix is "admin/", bare /admin misses
		{"/admin/", "admin"},
		{"/admin/users", "admin"},
		{"/admin/users/42/roles", "admin"},
		{"/administrator", DefaultClass},
	}
	for _, tc := range cases {
		if got := m.Class(tc.path); got != tc.want {
			t.Errorf("path=%q: expected %q got %q", tc.path, tc.want, got)
		}
	}
}

func TestLongestPatternWins(t *testing.T) {
	m := NewMatcher(map[string]string{
		"api/**":          "api",
		"api/v1/admin/**": "admin",
	})

	if got := m.Class("/api/v1/admin/keys"); got != "admin" {
		t.Errorf("expected admin, got %q", got)
	}
	if got := m.Class("/api/v1/users"); got != "api" {
		t.Errorf("expected api, got %q", got)
	}
}

func TestQueryStringStripped(t *testing.T) {
	m := NewMatcher(map[string]string{
		"search/*": "search",
	})

	if got := m.Class("/search/web?q=go"); got != "search" {
		t.Errorf("expected search, got %q", got)
	}
}

func TestBareWildcard(t *testing.T) {
	m := NewMatcher(map[string]string{
		"*": "everything",
	})

	if got := m.Class("/anything/at/all"); got != "everything" {
		t.Errorf("expected everything, got %q", got)
	}
}

func TestEmptyMatcher(t *testing.T) {
	m := NewMatcher(nil)
	if got := m.Class("/any"); got != DefaultClass {
		t.Errorf("expected default, got %q", got)
	}
}
