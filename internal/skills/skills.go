// Package skills discovers and runs packaged skills: directories holding a
// SKILL.md manifest (YAML frontmatter + markdown instructions) plus optional
// scripts, references, and assets.
package skills

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// manifestFile is the required manifest inside every skill directory.
const manifestFile = "SKILL.md"

// resourceDirs are the conventional per-skill resource subdirectories.
var resourceDirs = []string{"scripts", "references", "assets"}

// nameRe matches valid skill names: lowercase alphanumerics separated by
// single hyphens.
var nameRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// maxNameLen bounds skill names.
const maxNameLen = 64

// Frontmatter is the YAML block at the top of SKILL.md.
type Frontmatter struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// Skill is one discovered skill.
type Skill struct {
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Version      string            `json:"version,omitempty"`
	Dir          string            `json:"dir"`
	Instructions string            `json:"instructions,omitempty"`
	Resources    map[string][]string `json:"resources,omitempty"`
}

// Loader reads skills from a root directory. Each immediate subdirectory
// with a SKILL.md whose frontmatter name matches the directory is a skill.
type Loader struct {
	Root string
}

// NewLoader creates a skill loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{Root: dir}
}

// ValidateName checks a skill name against the naming rules.
func ValidateName(name string) error {
	if name == "" {
		return eris.New("skills: name is empty")
	}
	if len(name) > maxNameLen {
		return eris.Errorf("skills: name %q exceeds %d characters", name, maxNameLen)
	}
	if !nameRe.MatchString(name) {
		return eris.Errorf("skills: invalid name %q: lowercase letters, digits, and single hyphens only", name)
	}
	return nil
}

// List returns all valid skills under the root, sorted by name. Directories
// with a malformed manifest are skipped.
func (l *Loader) List() ([]Skill, error) {
	entries, err := os.ReadDir(l.Root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "skills: read dir %s", l.Root)
	}

	var skills []Skill
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		skill, err := l.Load(e.Name())
		if err != nil {
			continue
		}
		skills = append(skills, *skill)
	}
	sort.Slice(skills, func(i, j int) bool { return skills[i].Name < skills[j].Name })
	return skills, nil
}

// Load reads one skill by name, including its instructions body and resource
// listing.
func (l *Loader) Load(name string) (*Skill, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	dir := filepath.Join(l.Root, name)
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, eris.Wrapf(err, "skills: read manifest for %s", name)
	}

	fm, body, err := ParseManifest(data)
	if err != nil {
		return nil, eris.Wrapf(err, "skills: parse manifest for %s", name)
	}
	if fm.Name != name {
		return nil, eris.Errorf("skills: manifest name %q does not match directory %q", fm.Name, name)
	}

	skill := &Skill{
		Name:         fm.Name,
		Description:  fm.Description,
		Version:      fm.Version,
		Dir:          dir,
		Instructions: body,
		Resources:    map[string][]string{},
	}
	for _, sub := range resourceDirs {
		files, err := listFiles(filepath.Join(dir, sub))
		if err != nil {
			return nil, err
		}
		if len(files) > 0 {
			skill.Resources[sub] = files
		}
	}
	return skill, nil
}

// ResourcePath resolves a relative resource path inside a skill, rejecting
// anything that escapes the skill directory.
func (l *Loader) ResourcePath(name, rel string) (string, error) {
	skill, err := l.Load(name)
	if err != nil {
		return "", err
	}

	clean := filepath.Clean(rel)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", eris.Errorf("skills: resource path %q escapes skill %s", rel, name)
	}

	path := filepath.Join(skill.Dir, clean)
	if _, err := os.Stat(path); err != nil {
		return "", eris.Wrapf(err, "skills: resource %s/%s", name, rel)
	}
	return path, nil
}

// ParseManifest splits SKILL.md into its YAML frontmatter and markdown body.
// The file must start with a "---" fence.
func ParseManifest(data []byte) (*Frontmatter, string, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return nil, "", eris.New("skills: manifest missing frontmatter fence")
	}

	rest := text[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return nil, "", eris.New("skills: manifest frontmatter not closed")
	}

	var fm Frontmatter
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return nil, "", eris.Wrap(err, "skills: unmarshal frontmatter")
	}
	if fm.Name == "" {
		return nil, "", eris.New("skills: frontmatter has no name")
	}
	if fm.Description == "" {
		return nil, "", eris.New("skills: frontmatter has no description")
	}

	body := rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return &fm, strings.TrimSpace(body), nil
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "skills: read dir %s", dir)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
