package blob

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Setup(zap.NewNop().Sugar(), t.TempDir(), "/cdn/attachments")
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestUploadResolveDelete(t *testing.T) {
	store := newTestStore(t)

	handle, err := store.BeginUpload()
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := store.ResolveURL(handle); ok {
		t.Error("Handle resolved before anything was uploaded")
	}

	err = store.Put(handle, strings.NewReader("blob bytes"))
	if err != nil {
		t.Fatal(err)
	}

	url, ok := store.ResolveURL(handle)
	if !ok {
		t.Fatal("Uploaded blob did not resolve")
	}
	if url != "/cdn/attachments/"+handle {
		t.Errorf("Unexpected URL %s", url)
	}

	err = store.Delete(handle)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := store.ResolveURL(handle); ok {
		t.Error("Deleted blob still resolves")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	handle, err := store.BeginUpload()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(handle, strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}

	if err := store.Delete(handle); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(handle); err != nil {
		t.Errorf("Second delete errored: %v", err)
	}
	if _, ok := store.ResolveURL(handle); ok {
		t.Error("Blob still present after delete")
	}
}

func TestHandleIsOneTimeUse(t *testing.T) {
	store := newTestStore(t)

	handle, err := store.BeginUpload()
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(handle, strings.NewReader("first")); err != nil {
		t.Fatal(err)
	}

	err = store.Put(handle, strings.NewReader("second"))
	if err == nil {
		t.Error("Expected second upload to the same handle to fail")
	}
}

func TestRejectsNonHandlePaths(t *testing.T) {
	store := newTestStore(t)

	err := store.Put("../escape", strings.NewReader("x"))
	if err == nil {
		t.Error("Expected invalid handle to be rejected")
	}

	if _, ok := store.ResolveURL("../../etc/passwd"); ok {
		t.Error("Expected invalid handle to not resolve")
	}
}
