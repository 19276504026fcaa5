package recipelog

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileLog はローカルファイルを追記専用のレシピログとして扱う。
//
// 同一プロセス内の追記はミューテックスで、別プロセス（serveとworker）との追記は
// ファイルへの排他flockで直列化する。1回の追記は1回のwriteで書き込む。
type FileLog struct {
	path string
	mu   sync.Mutex
}

// NewFileLog はFileLogを生成する。ファイルは最初の追記時に作成される。
func NewFileLog(path string) *FileLog {
	return &FileLog{path: path}
}

// Path はログファイルのパスを返す。
func (l *FileLog) Path() string {
	return l.path
}

// Append はentriesをファイル末尾に追記する。既存の内容は保持される。
// 親ディレクトリが存在しない場合は作成する。
func (l *FileLog) Append(entries []Entry) (err error) {
	var buf bytes.Buffer
	if err := Encode(&buf, entries); err != nil {
		return fmt.Errorf("recipelog: encode for %s: %w", l.path, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("recipelog: create directory for %s: %w", l.path, err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("recipelog: open %s: %w", l.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("recipelog: close %s: %w", l.path, cerr)
		}
	}()

	if err := lockFile(f, true); err != nil {
		return fmt.Errorf("recipelog: lock %s: %w", l.path, err)
	}
	defer unlockFile(f)

	if _, err := f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("recipelog: append %s: %w", l.path, err)
	}
	return nil
}

// Load はファイル全体を読み込んでレシピを復元する。
// ファイルが存在しない場合はエラーではなく空の結果を返す。
func (l *FileLog) Load() ([]Record, error) {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recipelog: open %s: %w", l.path, err)
	}
	defer f.Close()

	// 追記途中のブロックを読まないよう共有ロックを取る
	if err := lockFile(f, false); err != nil {
		return nil, fmt.Errorf("recipelog: lock %s: %w", l.path, err)
	}
	defer unlockFile(f)

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("recipelog: read %s: %w", l.path, err)
	}
	return records, nil
}
