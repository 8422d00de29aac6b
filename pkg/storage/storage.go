// Package storage defines the interface surface a storage server exposes
// over the RMI fabric: the client-facing Storage interface for file
// content, and the naming-core-facing Command interface the naming service
// drives during registration reconciliation and delete. The spec treats the
// concrete on-disk read/write/create/delete mechanics as a capability a
// storage server exposes, not something this system specifies; LocalStorage
// in this package is one reasonable implementation, kept runnable so the
// system is end-to-end testable.
package storage

import "github.com/distfs/distfs/pkg/path"

// Storage is the client-facing remote interface for file content.
type Storage interface {
	Read(p path.Path) ([]byte, error)
	Write(p path.Path, data []byte) error
}

// Command is the naming-core-facing remote interface for the two
// namespace-affecting operations a storage server must support: creating
// the local copy of a file the naming core has just decided this binding
// owns, and deleting one it no longer owns.
type Command interface {
	Create(p path.Path) error
	Delete(p path.Path) error
}
