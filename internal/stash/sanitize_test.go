package stash

import "testing"

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Report Final.PDF", "report-final.pdf"},
		{"  weird***name  ", "weird-name"},
		{"already_fine.txt", "already_fine.txt"},
		{"---", ""},
		{"Café Menu.jpg", "caf-menu.jpg"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFileExtension(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"photo.jpg", "jpg"},
		{"archive.tar.gz", "gz"},
		{"noext", "unk"},
		{"trailing.", "unk"},
	}
	for _, tt := range tests {
		if got := FileExtension(tt.in); got != tt.want {
			t.Errorf("FileExtension(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTrimExtension(t *testing.T) {
	if got := TrimExtension("photo.jpg"); got != "photo" {
		t.Errorf("TrimExtension(photo.jpg) = %q, want photo", got)
	}
	if got := TrimExtension("noext"); got != "noext" {
		t.Errorf("TrimExtension(noext) = %q, want noext", got)
	}
}
