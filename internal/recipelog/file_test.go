package recipelog

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hitoshi/recipebook/internal/model"
)

func TestFileLog_Load_MissingFileReturnsEmpty(t *testing.T) {
	l := NewFileLog(filepath.Join(t.TempDir(), "nope", "saved_recipes.txt"))

	records, err := l.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if records == nil || len(records) != 0 {
		t.Errorf("records = %#v, want empty", records)
	}
}

func TestFileLog_AppendCreatesDirectoriesAndPreservesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved_recipes", "saved_recipes.txt")
	l := NewFileLog(path)

	if err := l.Append([]Entry{toastEntry()}); err != nil {
		t.Fatalf("first Append returned error: %v", err)
	}
	second := toastEntry()
	second.Recipe.ID = 2
	second.Recipe.Name = "French Toast"
	if err := l.Append([]Entry{second}); err != nil {
		t.Fatalf("second Append returned error: %v", err)
	}

	records, err := l.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Name != "Toast" || records[1].Name != "French Toast" {
		t.Errorf("names = %q, %q", records[0].Name, records[1].Name)
	}
}

func TestFileLog_AppendEmptyIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	l := NewFileLog(path)

	if err := l.Append(nil); err != nil {
		t.Fatalf("Append returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("file content = %q, want empty", data)
	}
}

func TestFileLog_Load_ParseErrorIncludesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.txt")
	if err := os.WriteFile(path, []byte("Recipe ID: x\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := NewFileLog(path).Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q should mention path %q", err, path)
	}
}

func TestFileLog_Append_FailsWhenPathIsDirectory(t *testing.T) {
	dir := t.TempDir()

	err := NewFileLog(dir).Append([]Entry{toastEntry()})
	if err == nil {
		t.Fatal("expected error when appending to a directory")
	}
	if !strings.Contains(err.Error(), dir) {
		t.Errorf("error %q should mention path", err)
	}
}

func TestFileLog_ConcurrentAppendsDoNotInterleave(t *testing.T) {
	l := NewFileLog(filepath.Join(t.TempDir(), "log.txt"))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			e := toastEntry()
			e.Recipe.ID = int64(id + 1)
			if err := l.Append([]Entry{e}); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(i)
	}
	wg.Wait()

	records, err := l.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(records) != 20 {
		t.Fatalf("len(records) = %d, want 20", len(records))
	}
	for _, r := range records {
		if len(r.Steps) != 2 || len(r.Ingredients) != 1 {
			t.Errorf("record %d corrupted: %+v", r.RecipeID, r)
		}
	}
}

// serveとworkerのように別々のFileLogが同じファイルへ追記しても、
// 書き込みバッファより大きなブロックが混ざらない
func TestFileLog_SeparateWritersOnSamePathDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved_recipes.txt")
	writers := []*FileLog{NewFileLog(path), NewFileLog(path)}

	const perWriter = 50
	var wg sync.WaitGroup
	for w, l := range writers {
		for i := 0; i < perWriter; i++ {
			wg.Add(1)
			go func(l *FileLog, id int) {
				defer wg.Done()
				if err := l.Append([]Entry{largeEntry(int64(id))}); err != nil {
					t.Errorf("Append: %v", err)
				}
			}(l, w*perWriter+i+1)
		}
	}

	// 追記と並行して読んでも途中のブロックでエラーにならない
	reader := NewFileLog(path)
	for i := 0; i < 10; i++ {
		if _, err := reader.Load(); err != nil {
			t.Errorf("Load during appends: %v", err)
		}
	}
	wg.Wait()

	records, err := reader.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(records) != 2*perWriter {
		t.Fatalf("len(records) = %d, want %d", len(records), 2*perWriter)
	}
	seen := make(map[int64]bool)
	for _, r := range records {
		if len(r.Steps) != 60 || len(r.Ingredients) != 1 {
			t.Errorf("record %d corrupted: %d steps, %d ingredients", r.RecipeID, len(r.Steps), len(r.Ingredients))
		}
		seen[r.RecipeID] = true
	}
	if len(seen) != 2*perWriter {
		t.Errorf("distinct recipe IDs = %d, want %d", len(seen), 2*perWriter)
	}
}

// largeEntry は約6KBのブロックになるレシピを返す。
func largeEntry(id int64) Entry {
	e := toastEntry()
	e.Recipe.ID = id
	e.Recipe.Steps = nil
	for n := 1; n <= 60; n++ {
		e.Recipe.Steps = append(e.Recipe.Steps, model.Step{
			StepNumber:  n,
			Instruction: strings.Repeat("stir gently ", 8),
		})
	}
	return e
}
