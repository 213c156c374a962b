package crawler

import (
	"os"
	"runtime"
)

// defaultRoots enumerates the OS's top-level mount points when the
// configuration's include_drives is empty, per spec §4.5/§6.
func defaultRoots() []string {
	if runtime.GOOS != "windows" {
		return []string{"/"}
	}

	var roots []string
	for letter := 'A'; letter <= 'Z'; letter++ {
		drive := string(letter) + ":\\"
		if _, err := os.Stat(drive); err == nil {
			roots = append(roots, drive)
		}
	}
	return roots
}
