package webdavclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func TestParseBaseUrlDefaults(t *testing.T) {
	parts, err := ParseBaseUrl("https://webdav.example.com")
	if err != nil {
		t.Fatal(err)
	}
	if parts.Port != "443" || parts.BasePath != "/" {
		t.Fatalf("unexpected parts: %+v", parts)
	}
}

func TestParseBaseUrlRejectsBadScheme(t *testing.T) {
	if _, err := ParseBaseUrl("ftp://example.com"); err == nil {
		t.Fatal("expected error for non-http(s) scheme")
	}
}

func TestMkColCreatedAndTolerated(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusCreated)
		} else {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	base, err := ParseBaseUrl(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	c := New(base, "", "")
	ctx := context.Background()

	ok, created, err := c.MkCol(ctx, "/a")
	if err != nil || !ok || !created {
		t.Fatalf("expected created, got ok=%v created=%v err=%v", ok, created, err)
	}

	ok2, created2, err2 := c.MkCol(ctx, "/a")
	if err2 != nil || !ok2 || created2 {
		t.Fatalf("expected tolerated-exists, got ok=%v created=%v err=%v", ok2, created2, err2)
	}
}

func TestPutFileRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}

	base, err := ParseBaseUrl(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	c := New(base, "", "")
	if err := c.PutFile(context.Background(), "/f.txt", path); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", calls)
	}
}

func TestPutFileExhaustsRetriesOnPersistentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	base, err := ParseBaseUrl(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	c := New(base, "", "")
	if err := c.PutFile(context.Background(), "/f.txt", path); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
}

func TestGetInfoNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	base, _ := ParseBaseUrl(srv.URL)
	c := New(base, "", "")
	info, err := c.GetInfo(context.Background(), "/missing.txt")
	if err != nil {
		t.Fatal(err)
	}
	if info.Exists {
		t.Fatal("expected not-exists")
	}
}

func TestGetInfoParsesMultiStatus(t *testing.T) {
	body := `<?xml version="1.0"?>
<D:multistatus xmlns:D="DAV:">
  <D:response>
    <D:href>/a/b.txt</D:href>
    <D:propstat>
      <D:prop>
        <D:getcontentlength>1234</D:getcontentlength>
        <D:getlastmodified>Mon, 02 Jan 2006 15:04:05 GMT</D:getlastmodified>
        <D:resourcetype/>
      </D:prop>
      <D:status>HTTP/1.1 200 OK</D:status>
    </D:propstat>
  </D:response>
</D:multistatus>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(207)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	base, _ := ParseBaseUrl(srv.URL)
	c := New(base, "", "")
	info, err := c.GetInfo(context.Background(), "/a/b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if !info.Exists || info.IsDir {
		t.Fatalf("expected exists file, got %+v", info)
	}
	if info.Size == nil || *info.Size != 1234 {
		t.Fatalf("expected size 1234, got %+v", info.Size)
	}
	if info.LastModified == nil {
		t.Fatal("expected last-modified parsed")
	}
}
