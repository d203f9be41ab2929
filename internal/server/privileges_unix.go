//go:build unix

package server

import (
	"errors"
	"fmt"
	"log"
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

// DropPrivileges switches the process to the named unprivileged user
// after the sockets are bound, so a server started as root to claim
// port 17 does not keep running as root. An unknown user is skipped
// silently; a failed setgid/setuid is logged as a warning rather than
// aborting, matching the service's best-effort hardening posture.
func DropPrivileges(name string) error {
	u, err := user.Lookup(name)
	if err != nil {
		var unknown user.UnknownUserError
		if errors.As(err, &unknown) {
			return nil
		}
		return fmt.Errorf("looking up user %q: %w", name, err)
	}

	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return fmt.Errorf("parsing gid %q for user %q: %w", u.Gid, name, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return fmt.Errorf("parsing uid %q for user %q: %w", u.Uid, name, err)
	}

	// gid must drop first: dropping uid first robs us of the
	// permission to change our gid.
	if err := unix.Setgid(gid); err != nil {
		log.Printf("failed to drop group privileges to gid %d: %v", gid, err)
		return nil
	}
	if err := unix.Setuid(uid); err != nil {
		log.Printf("failed to drop user privileges to uid %d: %v", uid, err)
	}
	return nil
}
