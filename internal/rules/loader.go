// Package rules loads the optional YAML overlay that extends the built-in
// safety, image and video tables.
package rules

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/AlienServices/unfurl/internal/domain"
	"gopkg.in/yaml.v3"
)

var templateVar = regexp.MustCompile(`\{\{\s*([A-Z0-9_]+)\s*\}\}`)

// Loader reads a rules file.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load reads and parses the rules file. {{VAR}} placeholders are replaced
// with the environment value, or an empty string.
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	data = expandTemplateVariables(data)

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse rules yaml: %w", err)
	}
	return f, nil
}

func expandTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAllFunc(data, func(m []byte) []byte {
		name := templateVar.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}

// Tables are the effective tables after applying an overlay.
type Tables struct {
	Safety          domain.SafetyRules
	VideoDomains    []string
	VideoExtensions []string
}

// Defaults returns the built-in tables.
func Defaults() Tables {
	return Tables{
		Safety:          domain.DefaultSafetyRules(),
		VideoDomains:    append([]string(nil), domain.DefaultVideoDomains...),
		VideoExtensions: append([]string(nil), domain.DefaultVideoExtensions...),
	}
}

// Apply extends the built-in tables with f. Duplicates are dropped.
func (f File) Apply() Tables {
	t := Defaults()
	t.Safety.Blocklist = merge(t.Safety.Blocklist, f.Blocklist)
	t.Safety.ImageExtensions = merge(t.Safety.ImageExtensions, dotted(f.Images.Extensions))
	t.Safety.ImageHosts = merge(t.Safety.ImageHosts, f.Images.Hosts)
	t.VideoDomains = merge(t.VideoDomains, f.Videos.Domains)
	t.VideoExtensions = merge(t.VideoExtensions, dotted(f.Videos.Extensions))
	return t
}

// Load returns the tables for path; an empty path yields the defaults.
func Load(path string) (Tables, error) {
	if path == "" {
		return Defaults(), nil
	}
	f, err := NewLoader(path).Load()
	if err != nil {
		return Tables{}, err
	}
	return f.Apply(), nil
}

func merge(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range append(base, extra...) {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// dotted makes "mp4" and ".mp4" equivalent.
func dotted(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" && !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		out = append(out, e)
	}
	return out
}
