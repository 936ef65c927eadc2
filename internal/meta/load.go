package meta

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Load reads a schema from path. A directory is loaded as a CUE package, a
// .yaml or .yml file as YAML, and a .cue file as standalone CUE source.
func Load(path string) (*Schema, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	if info.IsDir() {
		return LoadCUE(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".cue":
		return CompileCUE(cuecontext.New().CompileBytes(data, cue.Filename(path)))
	default:
		return nil, fmt.Errorf("reading schema %s: unsupported extension", path)
	}
}
