package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWithinDir(t *testing.T) {
	tmpDir := t.TempDir()
	laps := filepath.Join(tmpDir, "laps")
	private := filepath.Join(tmpDir, "private")
	for _, d := range []string{laps, private} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", d, err)
		}
	}
	if err := os.Symlink(private, filepath.Join(laps, "link")); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		dir     string
		wantErr bool
	}{
		{"file in dir", filepath.Join(laps, "ver.csv"), laps, false},
		{"nested missing file", filepath.Join(laps, "2024", "monza", "lec.csv"), laps, false},
		{"dir itself", laps, laps, false},
		{"dot dot escape", filepath.Join(laps, "..", "private", "x.csv"), laps, true},
		{"sibling", filepath.Join(private, "x.csv"), laps, true},
		{"absolute elsewhere", "/etc/passwd", laps, true},
		{"symlink to outside", filepath.Join(laps, "link", "x.csv"), laps, true},
		{"symlink missing parent", filepath.Join(laps, "link", "new", "x.csv"), laps, true},
		{"missing dir lexical", filepath.Join(tmpDir, "nope", "a.csv"), filepath.Join(tmpDir, "nope"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WithinDir(tt.path, tt.dir)
			if (err != nil) != tt.wantErr {
				t.Errorf("WithinDir(%q, %q) error = %v, wantErr %v", tt.path, tt.dir, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"VER", "VER"},
		{"Monza Q3 / VER", "Monza_Q3_VER"},
		{"../../etc/passwd", "etc_passwd"},
		{"lap-1.5_final", "lap-1.5_final"},
		{"  ", "unknown"},
		{"", "unknown"},
		{"...", "unknown"},
		{"Pérez", "P_rez"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFilename_Length(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	if got := SanitizeFilename(string(long)); len(got) != maxNameLen {
		t.Errorf("len = %d, want %d", len(got), maxNameLen)
	}
}

func TestComparisonName(t *testing.T) {
	if got := ComparisonName("VER Q3", "LEC/Q3"); got != "VER_Q3_vs_LEC_Q3" {
		t.Errorf("ComparisonName = %q", got)
	}
}
