// file: internal/organizer/organizer.go
// version: 2.0.0
// guid: 5e6f7a8b-9c0d-1e2f-3a4b-5c6d7e8f9a0b

// Package organizer names library files and places them under the library
// root, one directory per series code.
package organizer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/jdfalk/manga-organizer/internal/fileops"
)

// Placement strategies.
const (
	StrategyAuto     = "auto"
	StrategyCopy     = "copy"
	StrategyHardlink = "hardlink"
	StrategyReflink  = "reflink"
	StrategyMove     = "move"
)

// maxVariants bounds the ".vN" suffix search for clashing names.
const maxVariants = 100

// Organizer places files into the library.
type Organizer struct {
	fs         afero.Fs
	libraryDir string
	strategy   string
}

// NewOrganizer creates an organizer rooted at libraryDir. A nil fs means the
// real filesystem.
func NewOrganizer(fs afero.Fs, libraryDir, strategy string) *Organizer {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if strategy == "" {
		strategy = StrategyAuto
	}
	return &Organizer{fs: fs, libraryDir: libraryDir, strategy: strategy}
}

// Fs returns the filesystem the organizer works on.
func (o *Organizer) Fs() afero.Fs {
	return o.fs
}

// TargetPath returns where filename lives for the given series code.
func (o *Organizer) TargetPath(code, filename string) string {
	return filepath.Join(o.libraryDir, code, filename)
}

// Place puts src into the library as <library>/<code>/<filename> and returns
// the final path. If an identical file is already there it is reused; a
// different file with the same name gets a ".vN" suffix.
func (o *Organizer) Place(src, code, filename string) (string, error) {
	if src == "" || filename == "" {
		return "", fmt.Errorf("invalid source or filename")
	}
	if code == "" {
		return "", fmt.Errorf("missing series code for %s", filename)
	}

	targetDir := filepath.Join(o.libraryDir, code)
	if err := o.fs.MkdirAll(targetDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create target directory: %w", err)
	}

	target, reused, err := o.freeTarget(src, filepath.Join(targetDir, filename))
	if err != nil {
		return "", err
	}
	if reused {
		log.Debug().Str("path", target).Msg("identical file already in library")
		return target, nil
	}

	if err := o.transfer(src, target); err != nil {
		return "", err
	}
	log.Info().Str("source", src).Str("target", target).Str("strategy", o.strategy).Msg("placed file")
	return target, nil
}

// freeTarget finds a usable target path. It reports reused=true when the
// existing file has the same content as src.
func (o *Organizer) freeTarget(src, target string) (string, bool, error) {
	ext := filepath.Ext(target)
	base := strings.TrimSuffix(target, ext)

	var srcHash string
	candidate := target
	for n := 2; n <= maxVariants+1; n++ {
		exists, err := afero.Exists(o.fs, candidate)
		if err != nil {
			return "", false, fmt.Errorf("failed to stat %s: %w", candidate, err)
		}
		if !exists {
			return candidate, false, nil
		}
		if srcHash == "" {
			if srcHash, err = fileops.ComputeFileHash(o.fs, src); err != nil {
				return "", false, fmt.Errorf("failed to hash source: %w", err)
			}
		}
		existing, err := fileops.ComputeFileHash(o.fs, candidate)
		if err == nil && existing == srcHash {
			return candidate, true, nil
		}
		candidate = base + ".v" + strconv.Itoa(n) + ext
	}
	return "", false, fmt.Errorf("too many variants of %s", target)
}

func (o *Organizer) transfer(src, dst string) error {
	_, onDisk := o.fs.(*afero.OsFs)

	strategy := o.strategy
	if strategy == StrategyAuto {
		if onDisk {
			if err := reflinkFile(src, dst); err == nil {
				return nil
			}
			_ = o.fs.Remove(dst)
			if err := os.Link(src, dst); err == nil {
				return nil
			}
		}
		strategy = StrategyCopy
	}

	switch strategy {
	case StrategyCopy:
		return o.copyFile(src, dst)
	case StrategyMove:
		if err := o.fs.Rename(src, dst); err == nil {
			return nil
		}
		if err := o.copyFile(src, dst); err != nil {
			return err
		}
		return o.fs.Remove(src)
	case StrategyHardlink:
		if !onDisk {
			return fmt.Errorf("hardlink requires the OS filesystem")
		}
		return os.Link(src, dst)
	case StrategyReflink:
		if !onDisk {
			return fmt.Errorf("reflink requires the OS filesystem")
		}
		return reflinkFile(src, dst)
	default:
		return fmt.Errorf("unknown organization strategy: %s", strategy)
	}
}

// copyFile copies a file from src to dst
func (o *Organizer) copyFile(src, dst string) error {
	sourceFile, err := o.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceFile.Close()

	destFile, err := o.fs.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}

	if err := destFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync destination file: %w", err)
	}

	return nil
}
