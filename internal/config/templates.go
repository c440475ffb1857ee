package config

import (
	"bytes"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"
)

//go:embed all:templates
var templateFS embed.FS

const templatesRoot = "templates"

// reSummary matches the {{/* ... */}} comment that opens a template file.
var reSummary = regexp.MustCompile(`^\{\{/\*\s*(.*?)\s*\*/\}\}`)

var templateFuncs = template.FuncMap{
	// quote renders s as a TOML basic string.
	"quote": strconv.Quote,
}

// TemplateVars is the data passed to every .tmpl file of a starter template.
type TemplateVars struct {
	// ProjectName labels the generated default group.
	ProjectName string
	// Contexts are written as [contexts.<id>] sections. Empty leaves the
	// template's own example contexts.
	Contexts []string
}

// renderedFile is one output file of a starter template, rendered in memory.
type renderedFile struct {
	rel     string
	content []byte
}

// ListTemplates returns the names of the embedded starter templates, sorted.
func ListTemplates() ([]string, error) {
	entries, err := templateFS.ReadDir(templatesRoot)
	if err != nil {
		return nil, fmt.Errorf("reading templates directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// TemplateExists reports whether name is an embedded starter template.
func TemplateExists(name string) bool {
	if name == "" || strings.ContainsAny(name, `/\.`) {
		return false
	}
	info, err := fs.Stat(templateFS, path.Join(templatesRoot, name))
	return err == nil && info.IsDir()
}

// DescribeTemplate returns the one-line summary that opens the template's
// stepper.toml.tmpl, or "" when it has none.
func DescribeTemplate(name string) string {
	if !TemplateExists(name) {
		return ""
	}
	content, err := templateFS.ReadFile(path.Join(templatesRoot, name, ConfigFileName+".tmpl"))
	if err != nil {
		return ""
	}
	if m := reSummary.FindSubmatch(content); m != nil {
		return string(m[1])
	}
	return ""
}

// RenderTemplate writes the named starter template into destDir and returns
// the paths it created. Every file is rendered and every rendered .toml file
// is decoded before anything is written, so a broken template leaves destDir
// untouched. Existing files are kept unless force is set.
func RenderTemplate(name, destDir string, vars TemplateVars, force bool) ([]string, error) {
	if !TemplateExists(name) {
		return nil, fmt.Errorf("template %q not found", name)
	}

	files, err := renderFiles(path.Join(templatesRoot, name), vars)
	if err != nil {
		return nil, err
	}

	var created []string
	for _, f := range files {
		dest := filepath.Join(destDir, filepath.FromSlash(f.rel))
		if _, statErr := os.Stat(dest); statErr == nil && !force {
			log.Debug("keeping existing file", "path", dest)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return created, fmt.Errorf("creating directory for %s: %w", dest, err)
		}
		if err := os.WriteFile(dest, f.content, 0o644); err != nil {
			return created, fmt.Errorf("writing %s: %w", dest, err)
		}
		log.Debug("wrote template file", "template", name, "path", dest)
		created = append(created, dest)
	}
	return created, nil
}

// renderFiles renders every file under dir. Files ending in .tmpl are
// executed with vars and lose the suffix; others are copied.
func renderFiles(dir string, vars TemplateVars) ([]renderedFile, error) {
	var files []renderedFile
	err := fs.WalkDir(templateFS, dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		content, err := templateFS.ReadFile(p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}
		rel := strings.TrimPrefix(p, dir+"/")

		if strings.HasSuffix(rel, ".tmpl") {
			rel = strings.TrimSuffix(rel, ".tmpl")
			tmpl, err := template.New(d.Name()).Funcs(templateFuncs).Parse(string(content))
			if err != nil {
				return fmt.Errorf("parsing %s: %w", p, err)
			}
			var buf bytes.Buffer
			if err := tmpl.Execute(&buf, vars); err != nil {
				return fmt.Errorf("executing %s: %w", p, err)
			}
			content = bytes.TrimLeft(buf.Bytes(), "\n")
		}

		if strings.HasSuffix(rel, ".toml") {
			var probe map[string]any
			if _, err := toml.Decode(string(content), &probe); err != nil {
				return fmt.Errorf("template %s renders invalid TOML: %w", p, err)
			}
		}
		files = append(files, renderedFile{rel: rel, content: content})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
