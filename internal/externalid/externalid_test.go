package externalid

import "testing"

func TestEncode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"org/evt/photos/raw/IMG_0001.jpg", "org:evt:photos:raw:IMG_0001.jpg"},
		{"org/evt/photos/raw/@shooter_42.jpg", "org:evt:photos:raw:_shooter_42.jpg"},
		{"plain.jpg", "plain.jpg"},
	}
	for _, tt := range tests {
		if got := Encode(tt.in); got != tt.want {
			t.Errorf("Encode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"org:evt:photos:raw:IMG_0001.jpg", "org/evt/photos/raw/IMG_0001.jpg"},
		{"org:evt:photos:raw:_shooter.jpg", "org/evt/photos/raw/@shooter.jpg"},
		{"org:evt:photos:raw:FINISH_LINE.jpg", "org/evt/photos/raw/FINISH LINE.jpg"},
		{"org:evt:photos:raw:AB_CD_EF.jpg", "org/evt/photos/raw/AB CD EF.jpg"},
		{"org:A_BC:photos:raw:x.jpg", "org/A_BC/photos/raw/x.jpg"},
		{"ORG_EVT:raw:x.jpg", "ORG_EVT/raw/x.jpg"},
		{"single", "single"},
	}
	for _, tt := range tests {
		if got := Decode(tt.in); got != tt.want {
			t.Errorf("Decode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRoundTrip_CleanPaths(t *testing.T) {
	paths := []string{
		"org/evt/photos/raw/IMG_0001.jpg",
		"winningeventsgroup/everybody-5k-10k-2025/photos/raw/DSC01234.JPG",
		"org/evt/photos/raw/a.b-c.jpg",
		"org/evt/photos/raw/Finish_Line.jpg",
	}
	for _, p := range paths {
		if got := Decode(Encode(p)); got != p {
			t.Errorf("Decode(Encode(%q)) = %q", p, got)
		}
	}
}

func TestRoundTrip_LeadingHandle(t *testing.T) {
	p := "org/evt/photos/raw/@runnershots.jpg"
	if got := Decode(Encode(p)); got != p {
		t.Errorf("Decode(Encode(%q)) = %q", p, got)
	}
}

// A literal TOKEN_TOKEN in a filename is indistinguishable from an encoded
// space and decodes to a space.
func TestDecode_KnownLossyCase(t *testing.T) {
	p := "org/evt/photos/raw/RACE_DAY.jpg"
	if got := Decode(Encode(p)); got != "org/evt/photos/raw/RACE DAY.jpg" {
		t.Errorf("Decode(Encode(%q)) = %q", p, got)
	}
}
