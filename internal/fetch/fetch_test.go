package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTML(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/page", http.StatusFound)
		case "/page":
			gotUA = r.Header.Get("User-Agent")
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, `<html><head><title>Hi</title></head></html>`)
		case "/json":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := New(Options{AllowPrivate: true})

	page, err := c.HTML(context.Background(), srv.URL+"/old", BotUserAgent)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if page.URL != srv.URL+"/page" {
		t.Errorf("page.URL = %q, want final URL after redirect", page.URL)
	}
	if !strings.Contains(page.Body, "<title>Hi</title>") {
		t.Errorf("page.Body = %q", page.Body)
	}
	if gotUA != BotUserAgent {
		t.Errorf("User-Agent = %q, want bot agent", gotUA)
	}

	if _, err := c.HTML(context.Background(), srv.URL+"/json", BotUserAgent); !errors.Is(err, ErrNotHTML) {
		t.Errorf("HTML(json) error = %v, want ErrNotHTML", err)
	}

	_, err = c.HTML(context.Background(), srv.URL+"/missing", BotUserAgent)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Errorf("HTML(missing) error = %v, want 404 StatusError", err)
	}
}

func TestHTMLBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, strings.Repeat("x", 4096))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.Client(), 100)
	page, err := c.HTML(context.Background(), srv.URL, BotUserAgent)
	if err != nil {
		t.Fatalf("HTML() error = %v", err)
	}
	if len(page.Body) != 100 {
		t.Errorf("len(Body) = %d, want 100", len(page.Body))
	}
}

func TestHTMLCharset(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"header charset", "text/html; charset=iso-8859-1", "<html><head><title>Caf\xe9 cr\xe8me</title></head></html>"},
		{"meta charset", "text/html", `<html><head><meta charset="windows-1252"><title>Caf` + "\xe9 cr\xe8me</title></head></html>"},
		{"utf-8", "text/html; charset=utf-8", "<html><head><title>Café crème</title></head></html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			page, err := New(Options{AllowPrivate: true}).HTML(context.Background(), srv.URL, BotUserAgent)
			if err != nil {
				t.Fatalf("HTML() error = %v", err)
			}
			if !strings.Contains(page.Body, "<title>Café crème</title>") {
				t.Errorf("page.Body = %q, want decoded title", page.Body)
			}
		})
	}
}

func TestRedirectLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	defer srv.Close()

	c := New(Options{AllowPrivate: true, MaxRedirects: 2})
	if _, err := c.HTML(context.Background(), srv.URL, BotUserAgent); !errors.Is(err, ErrTooManyRedirects) {
		t.Errorf("HTML() error = %v, want ErrTooManyRedirects", err)
	}
}

func TestPrivateAddressRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("private server must not be reached")
	}))
	defer srv.Close()

	c := New(Options{})
	_, err := c.HTML(context.Background(), srv.URL, BotUserAgent)
	if err == nil || !strings.Contains(err.Error(), "private address") {
		t.Errorf("HTML() error = %v, want private address rejection", err)
	}
}

func TestJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"title":"hello"}`)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.Client(), 0)

	var out struct {
		Title string `json:"title"`
	}
	h := http.Header{}
	h.Set("Authorization", "Bearer token")
	if err := c.JSON(context.Background(), srv.URL, h, &out); err != nil {
		t.Fatalf("JSON() error = %v", err)
	}
	if out.Title != "hello" {
		t.Errorf("Title = %q, want hello", out.Title)
	}

	var se *StatusError
	if err := c.JSON(context.Background(), srv.URL, nil, &out); !errors.As(err, &se) || se.Code != http.StatusUnauthorized {
		t.Errorf("JSON() without auth error = %v, want 401", err)
	}
}
