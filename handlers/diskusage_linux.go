//go:build linux

package handlers

import "syscall"

type fsUsage struct {
	total uint64
	free  uint64
}

// diskUsage reports free/total space for M39, via syscall.Statfs. No
// library in the corpus wraps statfs; this is the one place in this
// package that reaches past the standard library's io/os file operations
// into a raw syscall.
func diskUsage(path string) (fsUsage, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return fsUsage{}, err
	}
	return fsUsage{
		total: stat.Blocks * uint64(stat.Bsize),
		free:  stat.Bavail * uint64(stat.Bsize),
	}, nil
}
