//go:build !unix

package logtail

import "os"

// File identity is not tracked here; rotation is detected by size alone.
func fileIDOf(os.FileInfo) FileID {
	return FileID{}
}
