package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/tanq16/roxdl/internal/testutil"
)

func newTestLocator(t *testing.T, g *testutil.Gallery) (*Locator, *testutil.Server) {
	t.Helper()
	srv := testutil.StartServer(t, g)
	return NewLocator(NewFetcher(http.DefaultClient), srv.URL+"/g/"+g.ID+"/"), srv
}

func TestLocateFirstExtension(t *testing.T) {
	g := testutil.NewGallery("42", 3)
	loc, srv := newTestLocator(t, g)

	img, err := loc.Locate(context.Background(), 2)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if img.Ext != "jpg" {
		t.Errorf("expected jpg, got %s", img.Ext)
	}
	if !bytes.Equal(img.Body, g.Images[2].Data) {
		t.Error("body does not match served image")
	}
	if n := srv.Requests("/g/42/2.png"); n != 0 {
		t.Errorf("expected no png probe after a jpg hit, got %d", n)
	}
}

func TestLocateFallsThroughExtensions(t *testing.T) {
	g := testutil.NewGallery("7", 2)
	g.Images[2] = testutil.Image{Ext: "gif", Data: []byte("GIF89a")}
	loc, srv := newTestLocator(t, g)

	img, err := loc.Locate(context.Background(), 2)
	if err != nil {
		t.Fatalf("Locate: %v", err)
	}
	if img.Ext != "gif" || string(img.Body) != "GIF89a" {
		t.Errorf("unexpected image %s %q", img.Ext, img.Body)
	}
	for _, path := range []string{"/g/7/2.jpg", "/g/7/2.png", "/g/7/2.gif"} {
		if n := srv.Requests(path); n != 1 {
			t.Errorf("expected 1 request to %s, got %d", path, n)
		}
	}
}

func TestLocateAbsent(t *testing.T) {
	g := testutil.NewGallery("9", 3)
	delete(g.Images, 2)
	loc, _ := newTestLocator(t, g)

	_, err := loc.Locate(context.Background(), 2)
	if !IsAbsent(err) {
		t.Fatalf("expected ErrPageAbsent, got %v", err)
	}
	var pe *PageError
	if !errors.As(err, &pe) || pe.Page != 2 || pe.Status != http.StatusNotFound {
		t.Errorf("expected PageError for page 2 with 404, got %#v", pe)
	}
}

func TestLocateNetworkFailureIsNotAbsent(t *testing.T) {
	g := testutil.NewGallery("5", 3)
	g.Broken[3] = true
	loc, _ := newTestLocator(t, g)

	_, err := loc.Locate(context.Background(), 3)
	if err == nil {
		t.Fatal("expected error for dropped connection")
	}
	if IsAbsent(err) {
		t.Error("network failure must be distinguishable from an absent page")
	}
	var pe *PageError
	if !errors.As(err, &pe) || pe.Page != 3 {
		t.Errorf("expected PageError for page 3, got %v", err)
	}
}

func TestPageURL(t *testing.T) {
	loc := NewLocator(NewFetcher(http.DefaultClient), "https://img.example.com/g/42//")
	if got := loc.PageURL(10, "png"); got != "https://img.example.com/g/42/10.png" {
		t.Errorf("unexpected URL %s", got)
	}
}

func TestGetNon200(t *testing.T) {
	g := testutil.NewGallery("1", 1)
	srv := testutil.StartServer(t, g)
	f := NewFetcher(http.DefaultClient)

	resp, err := f.Get(context.Background(), srv.URL+"/g/1/1.png")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.Status != http.StatusNotFound || resp.Body != nil {
		t.Errorf("expected bodiless 404, got %d with %d bytes", resp.Status, len(resp.Body))
	}
}

func TestGetCancelled(t *testing.T) {
	g := testutil.NewGallery("1", 1)
	srv := testutil.StartServer(t, g)
	f := NewFetcher(http.DefaultClient)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Get(ctx, srv.URL+"/g/1/1.jpg"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
