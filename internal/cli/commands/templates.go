package commands

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

//go:embed all:templates
var templateFS embed.FS

// dotfiles maps template file names to the names they are written as.
var dotfiles = map[string]string{
	"gitignore":   ".gitignore",
	"env.example": ".env.example",
}

// scaffoldedFile is one file of a template written (or left alone) by init.
type scaffoldedFile struct {
	Path    string // relative to the target directory
	Written bool
}

// scaffold writes the files of the named template into dir. Existing files are
// kept unless force is set.
func scaffold(name, dir string, force bool) ([]scaffoldedFile, error) {
	root := path.Join("templates", name)
	var files []scaffoldedFile

	err := fs.WalkDir(templateFS, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		rel := targetName(p[len(root)+1:])
		dst := filepath.Join(dir, filepath.FromSlash(rel))

		if _, statErr := os.Stat(dst); statErr == nil && !force {
			files = append(files, scaffoldedFile{Path: rel})
			return nil
		}

		content, err := templateFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
			return err
		}
		if err := os.WriteFile(dst, content, 0o600); err != nil {
			return err
		}
		files = append(files, scaffoldedFile{Path: rel, Written: true})
		return nil
	})
	return files, err
}

// targetName renames dotfiles in a slash-separated template path.
func targetName(rel string) string {
	if name, ok := dotfiles[path.Base(rel)]; ok {
		return path.Join(path.Dir(rel), name)
	}
	return rel
}
