// Package lockfile implements the advisory exclusive lock spec §5 requires
// around every mutating command, via github.com/gofrs/flock.
package lockfile

import (
	"github.com/gofrs/flock"

	"github.com/Elektrobit/rupdate/pkg/rerror"
)

// DefaultPath is the well-known lock path named in spec §5.
const DefaultPath = "/var/lock/rupdate"

// Lock is a held advisory exclusive lock. Release it with Unlock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes an exclusive, non-blocking lock at path. Failure to
// acquire (the lock is already held) surfaces as Busy, per spec §5/§7.
func Acquire(path string) (*Lock, error) {
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, rerror.Wrap(rerror.IoError, err, "acquiring lock "+path)
	}
	if !ok {
		return nil, rerror.Newf(rerror.Busy, "lock %s is held by another rupdate process", path)
	}
	return &Lock{fl: fl}, nil
}

// Unlock releases the lock.
func (l *Lock) Unlock() error {
	if err := l.fl.Unlock(); err != nil {
		return rerror.Wrap(rerror.IoError, err, "releasing lock")
	}
	return nil
}
