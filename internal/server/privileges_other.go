//go:build !unix

package server

// DropPrivileges is a no-op on systems without Unix user semantics.
func DropPrivileges(string) error { return nil }
