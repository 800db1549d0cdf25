package filters

import "testing"

func TestIsSnowflake(t *testing.T) {
	cases := map[string]bool{
		"123456789012345678":    true,
		"12345678901234567":     true,
		"1234567890123456":      false, // too short (16 digits)
		"123456789012345678901": false, // too long
		"not-a-number":          false,
		"":                      false,
	}
	for in, want := range cases {
		if got := IsSnowflake(in); got != want {
			t.Errorf("IsSnowflake(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestValidateVolume(t *testing.T) {
	if err := ValidateVolume(0); err != nil {
		t.Errorf("ValidateVolume(0) = %v, want nil", err)
	}
	if err := ValidateVolume(1000); err != nil {
		t.Errorf("ValidateVolume(1000) = %v, want nil", err)
	}
	if err := ValidateVolume(-1); err == nil {
		t.Errorf("ValidateVolume(-1) = nil, want error")
	}
	if err := ValidateVolume(1001); err == nil {
		t.Errorf("ValidateVolume(1001) = nil, want error")
	}
}

func TestValidatePosition(t *testing.T) {
	if err := ValidatePosition(0); err != nil {
		t.Errorf("ValidatePosition(0) = %v, want nil", err)
	}
	if err := ValidatePosition(-1); err == nil {
		t.Errorf("ValidatePosition(-1) = nil, want error")
	}
}

func TestValidateURL(t *testing.T) {
	if err := ValidateURL("https://example.com/track"); err != nil {
		t.Errorf("ValidateURL(valid) = %v, want nil", err)
	}
	if err := ValidateURL("not a url"); err == nil {
		t.Errorf("ValidateURL(invalid) = nil, want error")
	}
	if err := ValidateURL("justapath"); err == nil {
		t.Errorf("ValidateURL(no scheme/host) = nil, want error")
	}
}

func TestValidateEqualizerBand(t *testing.T) {
	if err := ValidateEqualizerBand(0, 1.0); err != nil {
		t.Errorf("ValidateEqualizerBand(0,1.0) = %v, want nil", err)
	}
	if err := ValidateEqualizerBand(14, -0.25); err != nil {
		t.Errorf("ValidateEqualizerBand(14,-0.25) = %v, want nil", err)
	}
	if err := ValidateEqualizerBand(15, 0); err == nil {
		t.Errorf("ValidateEqualizerBand(15,0) = nil, want error")
	}
	if err := ValidateEqualizerBand(0, 1.1); err == nil {
		t.Errorf("ValidateEqualizerBand(0,1.1) = nil, want error")
	}
	if err := ValidateEqualizerBand(0, -0.3); err == nil {
		t.Errorf("ValidateEqualizerBand(0,-0.3) = nil, want error")
	}
}

func TestValidateTimescale(t *testing.T) {
	ok := Timescale{Speed: f(1.2), Pitch: f(0.9), Rate: f(10.0)}
	if err := ValidateTimescale(ok); err != nil {
		t.Errorf("ValidateTimescale(ok) = %v, want nil", err)
	}

	bad := Timescale{Speed: f(10.1)}
	if err := ValidateTimescale(bad); err == nil {
		t.Errorf("ValidateTimescale(speed=10.1) = nil, want error")
	}

	zero := Timescale{Pitch: f(0)}
	if err := ValidateTimescale(zero); err == nil {
		t.Errorf("ValidateTimescale(pitch=0) = nil, want error")
	}

	if err := ValidateTimescale(Timescale{}); err != nil {
		t.Errorf("ValidateTimescale(all nil) = %v, want nil", err)
	}
}

func TestNormalizeSearchQuery(t *testing.T) {
	cases := []struct {
		query, source, want string
	}{
		{"  never gonna give you up  ", "ytsearch", "ytsearch:never gonna give you up"},
		{"ytsearch:already prefixed", "scsearch", "ytsearch:already prefixed"},
		{"https://example.com/track.mp3", "ytsearch", "https://example.com/track.mp3"},
		{"bare query", "", "bare query"},
		{"", "ytsearch", ""},
	}
	for _, c := range cases {
		if got := NormalizeSearchQuery(c.query, c.source); got != c.want {
			t.Errorf("NormalizeSearchQuery(%q, %q) = %q, want %q", c.query, c.source, got, c.want)
		}
	}
}

func TestNormalizeSearchQueryTruncates(t *testing.T) {
	long := make([]byte, MaxSearchQueryLen+50)
	for i := range long {
		long[i] = 'x'
	}
	got := NormalizeSearchQuery(string(long), "")
	if len(got) != MaxSearchQueryLen {
		t.Fatalf("len(NormalizeSearchQuery(long)) = %d, want %d", len(got), MaxSearchQueryLen)
	}
}
