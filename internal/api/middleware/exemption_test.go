package middleware

import "testing"

func TestExemptionMatcher(t *testing.T) {
	m := NewExemptionMatcher([]string{
		"/api/v1/auth/login",
		" /api/v1/templates/** ",
		"/api/v1/generated/*/index.html",
		"/files/v?/*.png",
		"",
	})

	tests := []struct {
		path string
		want bool
	}{
		{"/api/v1/auth/login", true},
		{"/api/v1/auth/login/", true},
		{"/api/v1/auth/logout", false},
		{"/api/v1/templates", true},
		{"/api/v1/templates/5", true},
		{"/api/v1/templates/5/preview", true},
		{"/api/v1/templatesx", false},
		{"/api/v1/generated/abc/index.html", true},
		{"/api/v1/generated/abc/def/index.html", false},
		{"/files/v1/logo.png", true},
		{"/files/v10/logo.png", false},
		{"/api/v1/projects", false},
		{"/", false},
	}
	for _, tt := range tests {
		if got := m.Match(tt.path); got != tt.want {
			t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestExemptionMatcher_DoubleStarInMiddle(t *testing.T) {
	m := NewExemptionMatcher([]string{"/static/**/*.css"})
	for path, want := range map[string]bool{
		"/static/site.css":       true,
		"/static/a/b/site.css":   true,
		"/static/a/b/site.js":    false,
		"/other/static/site.css": false,
	} {
		if got := m.Match(path); got != want {
			t.Errorf("Match(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestExemptionMatcher_Nil(t *testing.T) {
	var m *ExemptionMatcher
	if m.Match("/anything") {
		t.Error("nil matcher must not match")
	}
}
