package workspace

import (
	"path/filepath"
)

var PathSep = string(filepath.Separator)
