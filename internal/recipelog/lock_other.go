//go:build !unix

package recipelog

import "os"

// flockのない環境ではプロセス間の排他を行わない。
func lockFile(*os.File, bool) error { return nil }

func unlockFile(*os.File) error { return nil }
