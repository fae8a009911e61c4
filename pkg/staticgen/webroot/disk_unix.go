//go:build darwin || linux

package webroot

import "golang.org/x/sys/unix"

// Disk reports the capacity of the filesystem containing path.
func Disk(path string) (DiskUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DiskUsage{}, err
	}

	bsize := uint64(st.Bsize)
	usage := DiskUsage{
		Total: st.Blocks * bsize,
		Free:  st.Bavail * bsize,
	}
	usage.Used = usage.Total - usage.Free
	return usage, nil
}
