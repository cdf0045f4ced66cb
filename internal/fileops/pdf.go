// file: internal/fileops/pdf.go
// version: 1.0.0
// guid: 4ac49ee7-f870-4dea-a278-3373460ace74

package fileops

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

var pdfMagic = []byte("%PDF-")

// pageObject matches page objects but not the /Pages tree nodes.
var pageObject = regexp.MustCompile(`/Type\s*/Page\b[^s]`)

// maxPageScan caps how much of a file CountPDFPages reads.
const maxPageScan = 256 << 20

// HasPDFExtension reports whether path ends in .pdf, ignoring case.
func HasPDFExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// IsPDF reports whether the file starts with the PDF header.
func IsPDF(fs afero.Fs, path string) (bool, error) {
	f, err := fs.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, 1024)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return false, fmt.Errorf("failed to read header: %w", err)
	}
	// Some writers put junk before the header; the format allows 1 KiB.
	return bytes.Contains(head[:n], pdfMagic), nil
}

// CountPDFPages estimates the page count by counting page objects. Files
// with compressed object streams may report zero; callers treat zero as
// unknown.
func CountPDFPages(fs afero.Fs, path string) (int, error) {
	f, err := fs.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxPageScan))
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return len(pageObject.FindAllIndex(data, -1)), nil
}
