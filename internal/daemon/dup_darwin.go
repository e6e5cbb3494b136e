package daemon

import "golang.org/x/sys/unix"

func dupTo(oldfd, newfd int) error {
	if oldfd == newfd {
		return nil
	}
	return unix.Dup2(oldfd, newfd)
}
