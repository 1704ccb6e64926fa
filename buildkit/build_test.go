package buildkit

import "testing"

func TestParseCacheOptions(t *testing.T) {
	entries, err := parseCacheOptions("type=registry,ref=docker.io/user/app:cache,mode=max")
	if err != nil {
		t.Fatalf("parseCacheOptions: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.Type != "registry" {
		t.Errorf("expected type registry, got %q", entry.Type)
	}
	if entry.Attrs["ref"] != "docker.io/user/app:cache" {
		t.Errorf("unexpected ref attr %q", entry.Attrs["ref"])
	}
	if entry.Attrs["mode"] != "max" {
		t.Errorf("unexpected mode attr %q", entry.Attrs["mode"])
	}
}

func TestParseCacheOptionsErrors(t *testing.T) {
	if _, err := parseCacheOptions("ref=docker.io/user/app:cache"); err == nil {
		t.Error("expected an error for a spec without a type")
	}

	if _, err := parseCacheOptions("type=registry,bogus"); err == nil {
		t.Error("expected an error for a field without a value")
	}
}

func TestGetImageName(t *testing.T) {
	if name := getImageName("/some/path/my-app"); name != "my-app" {
		t.Errorf("expected my-app, got %q", name)
	}

	if name := getImageName("/some/path/"); name != "slipway-app" {
		t.Errorf("expected the fallback name, got %q", name)
	}
}
