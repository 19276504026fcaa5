//go:build unix

package recipelog

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile はファイル全体にflockで勧告ロックをかける。
// exclusiveがfalseなら共有ロック。EINTRは再試行する。
func lockFile(f *os.File, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}
	for {
		err := unix.Flock(int(f.Fd()), how)
		if err != unix.EINTR {
			return err
		}
	}
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
