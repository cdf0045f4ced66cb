// file: internal/organizer/reflink_other.go
// version: 1.1.0
// guid: 7c6d5e4f-3a2b-1c0d-9e8f-7a6b5c4d3e2f

//go:build !linux

package organizer

import "fmt"

// reflinkFile is unavailable here; auto placement falls back to hardlink or
// copy.
func reflinkFile(src, dst string) error {
	return fmt.Errorf("reflink not supported on this platform")
}
