package storage

import (
	"path/filepath"
	"strings"

	"github.com/distfs/distfs/pkg/errors"
	"github.com/distfs/distfs/pkg/path"
)

// resolveLocal maps a namespace path onto a local filesystem handle under
// root, rejecting the result if it would land outside root. path.Parse
// forbids "/" and ":" within a single component but not "..", so a
// component of ".." would otherwise let p.ToLocalFile escape root entirely
// — every LocalStorage operation resolves through here instead of calling
// ToLocalFile directly.
func resolveLocal(root string, p path.Path) (string, error) {
	local := p.ToLocalFile(root)

	cleanRoot := filepath.Clean(root)
	cleanLocal := filepath.Clean(local)

	if cleanLocal != cleanRoot && !strings.HasPrefix(cleanLocal, cleanRoot+string(filepath.Separator)) {
		return "", errors.InvalidArgument("storage.local", "resolveLocal", "path escapes storage root: "+p.String())
	}
	return cleanLocal, nil
}
