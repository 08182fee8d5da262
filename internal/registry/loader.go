package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"chatd/internal/common/fsutil"
)

// Load reads a catalog file, choosing the decoder by extension
// (.yaml/.yml, .json, .toml). An empty path returns Default(). Sections
// missing from the file keep their default content.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	var file Catalog
	switch strings.ToLower(filepath.Ext(p)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &file)
	case ".json":
		err = json.Unmarshal(b, &file)
	case ".toml":
		err = toml.Unmarshal(b, &file)
	default:
		return nil, fmt.Errorf("catalog: unsupported extension %q", filepath.Ext(p))
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", filepath.Base(p), err)
	}
	return merge(Default(), &file), nil
}

// merge overlays the non-empty sections of file onto base.
func merge(base, file *Catalog) *Catalog {
	if len(file.Local.Recommended) > 0 {
		base.Local.Recommended = file.Local.Recommended
	}
	if len(file.Local.Specialized) > 0 {
		base.Local.Specialized = file.Local.Specialized
	}
	if len(file.Online) > 0 {
		base.Online = file.Online
	}
	if len(file.Preferences) > 0 {
		base.Preferences = make(map[string][]string, len(file.Preferences))
		for k, v := range file.Preferences {
			base.Preferences[strings.ToLower(k)] = v
		}
	}
	return base
}
