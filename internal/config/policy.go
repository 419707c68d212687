package config

import (
	"embed"
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

//go:embed policy/*.yaml
var policyFiles embed.FS

// UploadPolicy is the client-side acceptance rule set for the upload queue
type UploadPolicy struct {
	MaxFileSize        int64    `yaml:"max_file_size"`
	MinFiles           int      `yaml:"min_files"`
	MaxFiles           int      `yaml:"max_files"`
	AcceptedExtensions []string `yaml:"accepted_extensions"`
}

// LoadUploadPolicy returns the policy from the given YAML file, or the
// embedded default when path is empty.
func LoadUploadPolicy(path string) (*UploadPolicy, error) {
	var data []byte
	var err error

	if path == "" {
		data, err = policyFiles.ReadFile("policy/upload_policy.yaml")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read upload policy: %w", err)
	}

	var policy UploadPolicy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return nil, fmt.Errorf("parse upload policy: %w", err)
	}

	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid upload policy: %w", err)
	}

	return &policy, nil
}

// Validate checks the policy is internally consistent
func (p UploadPolicy) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.MaxFileSize, validation.Required, validation.Min(int64(1))),
		validation.Field(&p.MinFiles, validation.Min(1)),
		validation.Field(&p.MaxFiles, validation.Required, validation.Min(p.MinFiles)),
		validation.Field(&p.AcceptedExtensions, validation.Required, validation.Each(validation.By(isExtension))),
	)
}

// Accepts reports whether the file extension (".pdf" style, case-insensitive)
// is on the allow-list.
func (p UploadPolicy) Accepts(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range p.AcceptedExtensions {
		if strings.ToLower(allowed) == ext {
			return true
		}
	}
	return false
}

func isExtension(value interface{}) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, ".") || len(s) < 2 {
		return fmt.Errorf("extension must start with a dot: %q", s)
	}
	return nil
}
