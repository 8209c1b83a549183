package jsonfile_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"spines/internal/jsonfile"
)

type doc struct {
	Items []string `json:"items"`
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "queue.json")
	if err := jsonfile.Save(path, doc{Items: []string{"a", "b"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	var got doc
	res, err := jsonfile.Load(path, &got, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Missing || res.Recovered || res.Reset {
		t.Fatalf("unexpected result %+v", res)
	}
	if strings.Join(got.Items, ",") != "a,b" {
		t.Fatalf("unexpected items %v", got.Items)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestLoadMissingFile(t *testing.T) {
	var got doc
	res, err := jsonfile.Load(filepath.Join(t.TempDir(), "absent.json"), &got, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !res.Missing {
		t.Fatalf("expected missing result, got %+v", res)
	}
}

func TestLoadRecoversGarbageAroundDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "library.json")
	corrupt := "\x00\x00partial write{\"items\":[\"kept\"]}trailing junk"
	if err := os.WriteFile(path, []byte(corrupt), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var got doc
	res, err := jsonfile.Load(path, &got, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !res.Recovered {
		t.Fatalf("expected recovery, got %+v", res)
	}
	if len(got.Items) != 1 || got.Items[0] != "kept" {
		t.Fatalf("unexpected recovered items %v", got.Items)
	}
	backup, err := os.ReadFile(filepath.Join(dir, "library.corrupted.json"))
	if err != nil {
		t.Fatalf("expected backup: %v", err)
	}
	if string(backup) != corrupt {
		t.Fatalf("backup does not preserve original bytes")
	}
	rewritten, _ := os.ReadFile(path)
	if string(rewritten) != `{"items":["kept"]}` {
		t.Fatalf("unexpected rewritten file %q", rewritten)
	}
}

func TestLoadResetsUnrecoverableFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "review_queue.json")
	if err := os.WriteFile(path, []byte("[{\"id\": "), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var got []map[string]any
	res, err := jsonfile.Load(path, &got, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !res.Reset {
		t.Fatalf("expected reset, got %+v", res)
	}
	if len(got) != 0 {
		t.Fatalf("expected zero value after reset, got %v", got)
	}
	if _, err := os.Stat(res.BackupPath); err != nil {
		t.Fatalf("expected backup at %q: %v", res.BackupPath, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read reset file: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("expected unrecoverable file emptied, got %q", data)
	}
	again, err := jsonfile.Load(path, &got, nil)
	if err != nil || !again.Missing || again.BackupPath != "" {
		t.Fatalf("expected reset file to load as missing without a new backup, got %+v err=%v", again, err)
	}
}

type listItem struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

const listSchema = `{
  "type": "object",
  "required": ["id", "status"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "status": {"enum": ["pending", "done"]}
  }
}`

func TestLoadListDropsInvalidItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	content := `[{"id":"a","status":"pending"},{"id":"","status":"pending"},{"id":"c","status":"weird"},{"id":"d","status":"done"}]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	schema, err := jsonfile.CompileSchema("list.json", []byte(listSchema))
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}
	items, dropped, err := jsonfile.LoadList[listItem](path, schema, nil)
	if err != nil {
		t.Fatalf("LoadList: %v", err)
	}
	if dropped != 2 || len(items) != 2 {
		t.Fatalf("expected 2 kept and 2 dropped, got %d kept %d dropped", len(items), dropped)
	}
	if items[0].ID != "a" || items[1].ID != "d" {
		t.Fatalf("unexpected items %+v", items)
	}
}

func TestCompileSchemaRejectsGarbage(t *testing.T) {
	if _, err := jsonfile.CompileSchema("bad.json", []byte("{not json")); err == nil {
		t.Fatal("expected compile error")
	}
}
