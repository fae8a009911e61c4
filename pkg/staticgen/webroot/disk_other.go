//go:build !darwin && !linux

package webroot

// Disk reports nothing on platforms without statfs; callers treat zero
// capacity as unknown.
func Disk(path string) (DiskUsage, error) {
	return DiskUsage{}, nil
}
