package domain

import "testing"

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "strips query string",
			raw:  "https://example.com/in/johndoe?trackingId=abc",
			want: "https://example.com/in/johndoe/",
		},
		{
			name: "strips fragment",
			raw:  "https://example.com/in/johndoe#section",
			want: "https://example.com/in/johndoe/",
		},
		{
			name: "adds trailing slash",
			raw:  "https://example.com/in/johndoe",
			want: "https://example.com/in/johndoe/",
		},
		{
			name: "keeps existing trailing slash",
			raw:  "https://example.com/in/johndoe/",
			want: "https://example.com/in/johndoe/",
		},
		{
			name: "query and trailing slash together",
			raw:  "https://example.com/in/johndoe/?utm=1",
			want: "https://example.com/in/johndoe/",
		},
		{
			name: "empty stays empty",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeURL(tt.raw); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeURLIdempotent(t *testing.T) {
	raw := "https://example.com/in/johndoe?x=1"
	once := NormalizeURL(raw)
	twice := NormalizeURL(once)
	if once != twice {
		t.Errorf("NormalizeURL is not idempotent: %q != %q", once, twice)
	}
}

func TestTargetIDFromURL(t *testing.T) {
	tests := []struct {
		name       string
		normalized string
		want       string
	}{
		{
			name:       "last path segment",
			normalized: "https://example.com/in/johndoe/",
			want:       "johndoe",
		},
		{
			name:       "single segment",
			normalized: "https://example.com/johndoe/",
			want:       "johndoe",
		},
		{
			name:       "no path",
			normalized: "https://example.com/",
			want:       "",
		},
		{
			name:       "empty",
			normalized: "",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TargetIDFromURL(tt.normalized); got != tt.want {
				t.Errorf("TargetIDFromURL(%q) = %q, want %q", tt.normalized, got, tt.want)
			}
		})
	}
}

func TestTargetIDStableAcrossVariants(t *testing.T) {
	variants := []string{
		"https://example.com/in/johndoe",
		"https://example.com/in/johndoe/",
		"https://example.com/in/johndoe?trackingId=xyz",
		"https://example.com/in/johndoe/#top",
	}
	want := TargetIDFromURL(NormalizeURL(variants[0]))
	for _, v := range variants {
		if got := TargetIDFromURL(NormalizeURL(v)); got != want {
			t.Errorf("variant %q derived id %q, want %q", v, got, want)
		}
	}
}

func TestValidTargetURL(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"https with path", "https://example.com/in/johndoe", true},
		{"http with path", "http://example.com/in/johndoe", true},
		{"empty", "", false},
		{"no scheme", "example.com/in/johndoe", false},
		{"ftp scheme", "ftp://example.com/in/johndoe", false},
		{"no host", "https:///in/johndoe", false},
		{"no path", "https://example.com", false},
		{"root path only", "https://example.com/", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidTargetURL(tt.raw); got != tt.want {
				t.Errorf("ValidTargetURL(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
