package util

import (
	"golang.org/x/sys/unix"
)

// MinFreeSpaceBytes is the free space floor below which encoding warns.
const MinFreeSpaceBytes uint64 = 500 * 1024 * 1024

// GetAvailableSpace returns the available disk space in bytes for a path.
// Returns 0 if the path is invalid or space cannot be determined.
func GetAvailableSpace(path string) uint64 {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize)
}

// CheckDiskSpace returns false when the path has less than MinFreeSpaceBytes
// available. A nil logger disables the warning output.
func CheckDiskSpace(path string, logger func(format string, args ...any)) bool {
	available := GetAvailableSpace(path)
	if available == 0 {
		// Cannot determine, assume enough
		return true
	}
	if available < MinFreeSpaceBytes {
		if logger != nil {
			logger("Low disk space on %s: %s available", path, FormatBytes(available))
		}
		return false
	}
	return true
}
