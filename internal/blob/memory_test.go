package blob

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	if store.Driver() != DriverMemory {
		t.Fatalf("driver = %s", store.Driver())
	}

	info, err := store.Put(ctx, "products/p1/front.jpg", strings.NewReader("jpegbytes"), PutOptions{ContentType: "image/jpeg", Metadata: map[string]string{"w": "640"}})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != 9 || info.ContentType != "image/jpeg" {
		t.Fatalf("unexpected info %+v", info)
	}

	if _, err := store.Put(ctx, "products/p1/front.jpg", strings.NewReader("x"), PutOptions{}); err == nil {
		t.Fatalf("duplicate key should fail")
	}

	got, rc, err := store.Get(ctx, "products/p1/front.jpg")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "jpegbytes" || got.Metadata["w"] != "640" {
		t.Fatalf("unexpected content %q meta %v", data, got.Metadata)
	}

	head, err := store.Head(ctx, "products/p1/front.jpg")
	if err != nil || head.Size != 9 {
		t.Fatalf("head: %v %+v", err, head)
	}

	if _, err := store.PresignURL(ctx, "products/p1/front.jpg", SignedURLOptions{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("memory presign should be unsupported, got %v", err)
	}
}

func TestMemoryStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	for _, key := range []string{"products/p1/a.jpg", "products/p1/b.jpg", "products/p2/c.jpg"} {
		if _, err := store.Put(ctx, key, strings.NewReader("x"), PutOptions{}); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	infos, err := store.List(ctx, "products/p1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 2 || infos[0].Key != "products/p1/a.jpg" {
		t.Fatalf("unexpected listing %+v", infos)
	}

	ok, err := store.Delete(ctx, "products/p1/a.jpg")
	if err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	ok, err = store.Delete(ctx, "products/p1/a.jpg")
	if err != nil || ok {
		t.Fatalf("second delete should report absence")
	}
}
