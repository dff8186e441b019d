package blob

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"
)

func TestFilesystemStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewFilesystem(filepath.Join(t.TempDir(), "blobs"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if store.Driver() != DriverFilesystem {
		t.Fatalf("driver = %s", store.Driver())
	}

	info, err := store.Put(ctx, "products/p1/front.jpg", strings.NewReader("jpegbytes"), PutOptions{ContentType: "image/jpeg"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.ETag == "" || info.Size != 9 {
		t.Fatalf("unexpected info %+v", info)
	}

	got, rc, err := store.Get(ctx, "products/p1/front.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "jpegbytes" || got.ContentType != "image/jpeg" {
		t.Fatalf("round trip mismatch: %q %+v", data, got)
	}

	infos, err := store.List(ctx, "products/")
	if err != nil || len(infos) != 1 {
		t.Fatalf("list: %v %+v", err, infos)
	}

	url, err := store.PresignURL(ctx, "products/p1/front.jpg", SignedURLOptions{Method: "GET"})
	if err != nil || !strings.Contains(url, "products/p1/front.jpg") {
		t.Fatalf("presign: %v %q", err, url)
	}

	ok, err := store.Delete(ctx, "products/p1/front.jpg")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
}

func TestFilesystemStoreRejectsTraversal(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, key := range []string{"", "../escape", "/abs", "a/../../b"} {
		if _, err := store.Put(context.Background(), key, strings.NewReader("x"), PutOptions{}); err == nil {
			t.Fatalf("key %q should be rejected", key)
		}
	}
}
