package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/ogulcanaydogan/cloudsaver/pkg/model"
	"gopkg.in/yaml.v3"
)

// File replays a saved raw response dump. The dump defines its own date
// range, so the fetch window is ignored.
type File struct {
	path string
}

// NewFile creates a source reading from path (.json, .yaml or .yml).
func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Name() string { return "file" }

func (f *File) Fetch(_ context.Context, _ Window) (*model.RawUsageResponse, error) {
	return ReadFile(f.path)
}

// ReadFile decodes a raw response dump.
func ReadFile(path string) (*model.RawUsageResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read raw usage file %s: %w", path, err)
	}

	var raw model.RawUsageResponse
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = sonic.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", model.ErrMalformedInput, path, err)
	}
	return &raw, nil
}

// WriteFile saves a raw response as indented JSON for later replay.
func WriteFile(path string, raw *model.RawUsageResponse) error {
	data, err := sonic.ConfigStd.MarshalIndent(raw, "", "  ")
	if err != nil {
		return fmt.Errorf("encode raw usage: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dump directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write raw usage file %s: %w", path, err)
	}
	return nil
}
