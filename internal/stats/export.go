package stats

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/fileutil"
)

// Marshal encodes the summary as YAML for .yaml/.yml paths and as
// indented JSON otherwise.
func (s Summary) Marshal(path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Marshal(s)
	default:
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	}
}

// WriteFile exports the summary to path, choosing the encoding by
// extension.
func (s Summary) WriteFile(path string) error {
	data, err := s.Marshal(path)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := fileutil.WriteAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}
