package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEmbeddedDefaultPolicy(t *testing.T) {
	policy, err := LoadUploadPolicy("")
	if err != nil {
		t.Fatalf("LoadUploadPolicy: %v", err)
	}

	if policy.MaxFileSize != 52428800 {
		t.Errorf("max file size: got %d, want 50MB", policy.MaxFileSize)
	}
	if policy.MinFiles != 1 || policy.MaxFiles != 5 {
		t.Errorf("file count bounds: %d..%d, want 1..5", policy.MinFiles, policy.MaxFiles)
	}
	if !policy.Accepts(".pdf") || !policy.Accepts(".docx") {
		t.Error("default policy should accept pdf and docx")
	}
	if policy.Accepts(".exe") {
		t.Error("default policy should not accept exe")
	}
}

func TestLoadPolicyOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	override := `max_file_size: 1048576
min_files: 1
max_files: 2
accepted_extensions:
  - .csv
`
	if err := os.WriteFile(path, []byte(override), 0o644); err != nil {
		t.Fatalf("write override: %v", err)
	}

	policy, err := LoadUploadPolicy(path)
	if err != nil {
		t.Fatalf("LoadUploadPolicy: %v", err)
	}
	if policy.MaxFiles != 2 || !policy.Accepts(".csv") || policy.Accepts(".pdf") {
		t.Errorf("override not applied: %+v", policy)
	}
}

func TestLoadPolicyRejectsInvalidFiles(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{
			name: "zero max size",
			yaml: "max_file_size: 0\nmin_files: 1\nmax_files: 5\naccepted_extensions: [.pdf]\n",
		},
		{
			name: "max below min",
			yaml: "max_file_size: 100\nmin_files: 3\nmax_files: 1\naccepted_extensions: [.pdf]\n",
		},
		{
			name: "extension without dot",
			yaml: "max_file_size: 100\nmin_files: 1\nmax_files: 5\naccepted_extensions: [pdf]\n",
		},
		{
			name: "no extensions",
			yaml: "max_file_size: 100\nmin_files: 1\nmax_files: 5\naccepted_extensions: []\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "policy.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatalf("write policy: %v", err)
			}
			if _, err := LoadUploadPolicy(path); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestAcceptsIsCaseInsensitive(t *testing.T) {
	policy := UploadPolicy{AcceptedExtensions: []string{".PDF", ".txt"}}

	for _, ext := range []string{".pdf", ".PDF", ".Txt"} {
		if !policy.Accepts(ext) {
			t.Errorf("Accepts(%q) = false, want true", ext)
		}
	}
	if policy.Accepts(".doc") {
		t.Error("Accepts(.doc) = true, want false")
	}
}
