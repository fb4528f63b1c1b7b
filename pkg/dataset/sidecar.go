package dataset

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
	"gopkg.in/yaml.v3"
)

// SidecarMetadata reads metadata from a YAML file next to each input, named
// like the input with its extension replaced by Ext (".yaml" by default).
// Inputs without a sidecar get no extra metadata.
type SidecarMetadata struct {
	Ext string
}

// Path returns the sidecar path for an input file
func (s SidecarMetadata) Path(path string) string {
	ext := s.Ext
	if ext == "" {
		ext = ".yaml"
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// Metadata implements MetadataProvider
func (s SidecarMetadata) Metadata(path string) (map[string]any, error) {
	data, err := os.ReadFile(s.Path(path))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fault.Wrap(err, fmsg.With("failed to read sidecar"))
	}

	md := map[string]any{}
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fault.Wrap(err, fmsg.With("malformed sidecar "+s.Path(path)))
	}
	return md, nil
}
