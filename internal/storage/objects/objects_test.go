package objects

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func TestUploadReturnsPublicURL(t *testing.T) {
	var gotPath, gotAuth, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	store := NewSupabaseStore(srv.URL+"/", "project-photos", "service-key")
	url, err := store.Upload(context.Background(), bytes.NewReader(pngHeader), "cells.png", "/projects/")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if !strings.HasPrefix(gotPath, "/storage/v1/object/project-photos/projects/") || !strings.HasSuffix(gotPath, ".png") {
		t.Errorf("upload path = %q", gotPath)
	}
	if gotAuth != "Bearer service-key" {
		t.Errorf("authorization = %q", gotAuth)
	}
	if gotType != "image/png" {
		t.Errorf("content type = %q", gotType)
	}
	if !bytes.Equal(gotBody, pngHeader) {
		t.Errorf("body not forwarded")
	}
	objectPath := strings.TrimPrefix(gotPath, "/storage/v1/object/project-photos/")
	if want := srv.URL + "/storage/v1/object/public/project-photos/" + objectPath; url != want {
		t.Errorf("url = %q, want %q", url, want)
	}
}

func TestUploadRejectsNonImages(t *testing.T) {
	store := NewSupabaseStore("http://unused", "b", "k")
	_, err := store.Upload(context.Background(), strings.NewReader("just text"), "notes.txt", "avatars")
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestUploadSurfacesStorageErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bucket not found", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewSupabaseStore(srv.URL, "b", "k").Upload(context.Background(), bytes.NewReader(pngHeader), "a.png", "avatars")
	if err == nil || !strings.Contains(err.Error(), "bucket not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestDeleteOnlyTouchesConfiguredBucket(t *testing.T) {
	var deleted string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			deleted = r.URL.Path
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	store := NewSupabaseStore(srv.URL, "b", "k")
	if err := store.Delete(context.Background(), store.PublicURL("avatars/x.png")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted != "/storage/v1/object/b/avatars/x.png" {
		t.Errorf("deleted %q", deleted)
	}
	if err := store.Delete(context.Background(), srv.URL+"/storage/v1/object/public/other/x.png"); err == nil {
		t.Fatal("expected error for a foreign bucket")
	}
}
