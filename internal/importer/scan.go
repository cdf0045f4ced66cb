// file: internal/importer/scan.go
// version: 1.0.0
// guid: 7a3f1c5e-2d4b-4a69-b8c0-6e1f2a3d4c5b

package importer

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/jdfalk/manga-organizer/internal/fileops"
)

// FindPDFs walks root and returns every .pdf file in lexical order. Hidden
// files and directories are skipped.
func FindPDFs(afs afero.Fs, root string) ([]string, error) {
	var files []string
	err := afero.Walk(afs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(info.Name(), ".") {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.IsDir() && fileops.HasPDFExtension(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
