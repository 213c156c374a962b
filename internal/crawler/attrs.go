package crawler

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/AlestackOverglow/koe-no-search/internal/model"
)

// isHidden is a best-effort, stdlib-only hidden-file test: a leading dot on
// Unix-like systems. Windows' FILE_ATTRIBUTE_HIDDEN requires a
// platform-specific syscall package that is not part of this module's
// dependency set; see DESIGN.md.
func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// isSystem has no portable stdlib signal on its own; this implementation
// treats a file as "system" only when it falls under one of the hard-coded
// exclusion roots, which is already handled by ExclusionRules.ShouldSkipDir
// for directories. Regular files are never classified as system-only by
// attribute.
func isSystem(_ string, _ os.FileInfo) bool {
	return false
}

// kindOfInfo classifies a directory entry into the model's Kind enum.
func kindOfInfo(info os.FileInfo) model.Kind {
	switch {
	case info.IsDir():
		return model.KindDirectory
	case info.Mode()&os.ModeSymlink != 0:
		return model.KindSymlink
	default:
		return model.KindFile
	}
}
