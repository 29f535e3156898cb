package cnx

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileConnectorImplementsConnector(t *testing.T) {
	conn, err := NewFileConnector[echoEntity](t.TempDir())
	if err != nil {
		t.Fatalf("NewFileConnector error: %v", err)
	}
	var _ Keyed[echoEntity] = conn
}

func TestFileConnectorRequiresDir(t *testing.T) {
	if _, err := NewFileConnector[echoEntity](""); err == nil {
		t.Error("NewFileConnector should reject an empty directory")
	}
}

func TestFileConnectorSaveFetch(t *testing.T) {
	dir := t.TempDir()
	conn, _ := NewFileConnector[echoEntity](dir)
	ctx := context.Background()

	if err := conn.Save(ctx, "a", echoEntity{ID: "a", Value: "x"}); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a.json")); err != nil {
		t.Fatalf("expected a.json on disk: %v", err)
	}

	got, found, err := conn.Fetch(ctx, "a")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if !found || got.Value != "x" {
		t.Errorf("Fetch = (%+v, %v), want ({a x}, true)", got, found)
	}
}

func TestFileConnectorFetchAbsent(t *testing.T) {
	conn, _ := NewFileConnector[echoEntity](t.TempDir())

	_, found, err := conn.Fetch(context.Background(), "missing-1")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if found {
		t.Error("found = true, want false")
	}
}

func TestFileConnectorListNameOrder(t *testing.T) {
	conn, _ := NewFileConnector[echoEntity](t.TempDir())
	ctx := context.Background()
	for _, id := range []string{"b", "a", "c"} {
		conn.Save(ctx, id, echoEntity{ID: id})
	}

	items, err := conn.List(ctx)
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("items length = %d, want 3", len(items))
	}
	for i, want := range []string{"a", "b", "c"} {
		if items[i].ID != want {
			t.Errorf("items[%d].ID = %s, want %s", i, items[i].ID, want)
		}
	}
}

func TestFileConnectorListEmpty(t *testing.T) {
	conn, _ := NewFileConnector[echoEntity](t.TempDir())

	items, err := conn.List(context.Background())
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items length = %d, want 0", len(items))
	}
}

func TestFileConnectorListRejectsFilter(t *testing.T) {
	conn, _ := NewFileConnector[echoEntity](t.TempDir())

	if _, err := conn.List(context.Background(), "any"); err == nil {
		t.Error("List with a filter should fail")
	}
}

func TestFileConnectorRemoveIdempotent(t *testing.T) {
	conn, _ := NewFileConnector[echoEntity](t.TempDir())
	ctx := context.Background()
	conn.Save(ctx, "a", echoEntity{ID: "a"})

	if err := conn.Remove(ctx, "a"); err != nil {
		t.Fatalf("Remove error: %v", err)
	}
	if err := conn.Remove(ctx, "a"); err != nil {
		t.Errorf("second Remove error = %v, want nil", err)
	}
}

func TestFileConnectorRejectsPathKeys(t *testing.T) {
	conn, _ := NewFileConnector[echoEntity](t.TempDir())
	ctx := context.Background()

	for _, id := range []string{"", ".", "..", "a/b", `a\b`} {
		if err := conn.Save(ctx, id, echoEntity{}); err == nil {
			t.Errorf("Save(%q) should fail", id)
		}
	}
}

func TestFileConnectorYAMLCodec(t *testing.T) {
	dir := t.TempDir()
	conn, err := NewFileConnector[echoEntity](dir, WithFileCodec[echoEntity](YAMLCodec{}))
	if err != nil {
		t.Fatalf("NewFileConnector error: %v", err)
	}
	ctx := context.Background()
	conn.Save(ctx, "a", echoEntity{ID: "a", Value: "x"})

	if _, err := os.Stat(filepath.Join(dir, "a.yaml")); err != nil {
		t.Fatalf("expected a.yaml on disk: %v", err)
	}
	got, found, err := conn.Fetch(ctx, "a")
	if err != nil || !found || got.Value != "x" {
		t.Errorf("Fetch = (%+v, %v, %v), want ({a x}, true, nil)", got, found, err)
	}
}

func TestFileConnectorSealedCodec(t *testing.T) {
	dir := t.TempDir()
	codec, err := NewSealedCodec(bytes.Repeat([]byte{0x42}, 32), JSONCodec{})
	if err != nil {
		t.Fatalf("NewSealedCodec error: %v", err)
	}
	conn, err := NewFileConnector[echoEntity](dir, WithFileCodec[echoEntity](codec))
	if err != nil {
		t.Fatalf("NewFileConnector error: %v", err)
	}
	ctx := context.Background()
	conn.Save(ctx, "a", echoEntity{ID: "a", Value: "secret"})

	raw, err := os.ReadFile(filepath.Join(dir, "a.json.sealed"))
	if err != nil {
		t.Fatalf("expected sealed file on disk: %v", err)
	}
	if bytes.Contains(raw, []byte("secret")) {
		t.Error("stored file contains the plaintext value")
	}

	got, found, err := conn.Fetch(ctx, "a")
	if err != nil || !found || got.Value != "secret" {
		t.Errorf("Fetch = (%+v, %v, %v), want ({a secret}, true, nil)", got, found, err)
	}
}

func TestFileConnectorDecodeError(t *testing.T) {
	dir := t.TempDir()
	conn, _ := NewFileConnector[echoEntity](dir)
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := conn.Fetch(context.Background(), "bad"); err == nil {
		t.Error("Fetch of a malformed file should fail")
	}
}
