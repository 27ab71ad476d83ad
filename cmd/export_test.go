package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iksnae/chatdesk/internal"
)

func TestExportCommand_InvalidFormat(t *testing.T) {
	_, err := execute(t, "export", "--format", "invalid")
	if !internal.IsValidation(err) {
		t.Errorf("export error = %v, want ValidationError", err)
	}
}

func TestExportCommand_All(t *testing.T) {
	store, _, url := startTestServer(t)
	a := store.Create("Alpha")
	b := store.Create("Beta")
	store.Append(a, internal.Message{Role: internal.RoleUser, Content: "first"})
	dir := t.TempDir()

	out, err := execute(t, "--server", url, "export", "--format", "md", "--out", dir)
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(out, "2 chat(s) exported") {
		t.Errorf("unexpected output:\n%s", out)
	}

	em := internal.NewExportManager(dir)
	for _, id := range []string{a, b} {
		session, _ := store.Session(id)
		if _, err := os.Stat(filepath.Join(dir, em.FileName(session, "md"))); err != nil {
			t.Errorf("export of %s missing: %v", id, err)
		}
	}

	index, err := em.LoadIndex()
	if err != nil {
		t.Fatalf("LoadIndex() error = %v", err)
	}
	if len(index.Exports) != 2 {
		t.Errorf("index has %d entries, want 2", len(index.Exports))
	}
}

func TestExportCommand_SingleAndClear(t *testing.T) {
	store, _, url := startTestServer(t)
	a := store.Create("Alpha")
	b := store.Create("Beta")
	dir := t.TempDir()

	if _, err := execute(t, "--server", url, "export", "--out", dir); err != nil {
		t.Fatalf("export error = %v", err)
	}
	if _, err := execute(t, "--server", url, "export", "--out", dir, "--id", b, "--clear"); err != nil {
		t.Fatalf("export --id error = %v", err)
	}

	em := internal.NewExportManager(dir)
	index, err := em.LoadIndex()
	if err != nil {
		t.Fatal(err)
	}
	if len(index.Exports) != 1 || index.Exports[0].SessionID != b {
		t.Errorf("index after --clear --id = %+v, want only %s", index.Exports, b)
	}
	alpha, _ := store.Session(a)
	if _, err := os.Stat(filepath.Join(dir, em.FileName(alpha, "jsonl"))); !os.IsNotExist(err) {
		t.Error("--clear left the earlier export behind")
	}
}

func TestExportCommand_Stdout(t *testing.T) {
	store, _, url := startTestServer(t)
	id := store.Create("Streamed")
	store.Append(id, internal.Message{Role: internal.RoleUser, Content: "to stdout"})

	out, err := execute(t, "--server", url, "export", "--stdout", "--id", id, "--format", "md")
	if err != nil {
		t.Fatalf("export --stdout error = %v", err)
	}
	if !strings.Contains(out, "# Chat: Streamed") || !strings.Contains(out, "to stdout") {
		t.Errorf("unexpected markdown:\n%s", out)
	}

	if _, err := execute(t, "--server", url, "export", "--stdout"); !internal.IsValidation(err) {
		t.Errorf("--stdout without --id error = %v, want ValidationError", err)
	}
}

func TestExportCommand_Empty(t *testing.T) {
	_, _, url := startTestServer(t)

	out, err := execute(t, "--server", url, "export", "--out", t.TempDir())
	if err != nil {
		t.Fatalf("export error = %v", err)
	}
	if !strings.Contains(out, "No chats to export") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
