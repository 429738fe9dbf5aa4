package metadata_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"lightbox/internal/metadata"
)

func TestNewFieldSetDropsDuplicateKeys(t *testing.T) {
	set := metadata.NewFieldSet([]metadata.Field{
		{Key: "color", Type: metadata.TypeSelect},
		{Key: "usage", Type: metadata.TypeText},
		{Key: "color", Type: metadata.TypeText},
	})
	if set.Len() != 2 {
		t.Fatalf("expected 2 fields, got %d", set.Len())
	}
	field, ok := set.Get("color")
	if !ok || field.Type != metadata.TypeSelect {
		t.Fatalf("expected first color definition to win, got %#v", field)
	}
}

func TestFieldSetRequiredAndMissingKeys(t *testing.T) {
	set := metadata.NewFieldSet([]metadata.Field{
		{Key: "title", Required: true},
		{Key: "color"},
		{Key: "rights", Required: true},
	})
	required := set.Required()
	if len(required) != 2 || required[0].Key != "title" || required[1].Key != "rights" {
		t.Fatalf("unexpected required fields: %#v", required)
	}

	missing := set.MissingKeys([]string{"color", "orientation", "rights", "dpi"})
	if len(missing) != 2 || missing[0] != "orientation" || missing[1] != "dpi" {
		t.Fatalf("unexpected missing keys: %v", missing)
	}
}

func TestParseFieldType(t *testing.T) {
	if ft, ok := metadata.ParseFieldType(" Multiselect "); !ok || ft != metadata.TypeMultiselect {
		t.Fatalf("expected multiselect, got %q ok=%v", ft, ok)
	}
	if _, ok := metadata.ParseFieldType("richtext"); ok {
		t.Fatal("expected unknown type to fail")
	}
}

func TestClientFieldsForCategory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/categories/cat-7/fields" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-1" {
			t.Fatalf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"fields":[{"key":"color","label":"Color","type":"select","options":["red","blue"],"required":true}]}`))
	}))
	defer server.Close()

	client := metadata.NewClient(metadata.ClientConfig{Endpoint: server.URL, APIKey: "key-1"})
	set, err := client.FieldsForCategory(context.Background(), "cat-7")
	if err != nil {
		t.Fatalf("FieldsForCategory failed: %v", err)
	}
	field, ok := set.Get("color")
	if !ok || !field.Required || len(field.Options) != 2 {
		t.Fatalf("unexpected field: %#v", field)
	}
}

func TestClientRejectsUnknownFieldType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"fields":[{"key":"color","type":"swatch"}]}`))
	}))
	defer server.Close()

	client := metadata.NewClient(metadata.ClientConfig{Endpoint: server.URL})
	if _, err := client.FieldsForCategory(context.Background(), "cat-1"); err == nil {
		t.Fatal("expected error for unknown field type")
	}
}

func TestClientSurfacesHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "category missing", http.StatusNotFound)
	}))
	defer server.Close()

	client := metadata.NewClient(metadata.ClientConfig{Endpoint: server.URL})
	if _, err := client.FieldsForCategory(context.Background(), "cat-404"); err == nil {
		t.Fatal("expected error for 404 response")
	}
}

func TestStaticSource(t *testing.T) {
	src := metadata.StaticSource{
		"cat-1": {{Key: "color"}},
	}
	set, err := src.FieldsForCategory(context.Background(), "cat-1")
	if err != nil || !set.Has("color") {
		t.Fatalf("unexpected result: %v %v", set, err)
	}
	if _, err := src.FieldsForCategory(context.Background(), "cat-2"); err == nil {
		t.Fatal("expected error for unknown category")
	}
}
