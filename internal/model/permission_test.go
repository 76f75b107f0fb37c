package model

import (
	"encoding/json"
	"testing"
)

func TestPermissionsAreAdditive(t *testing.T) {
	set := NewPermissions(PermRead)
	if !set.Has(PermRead) {
		t.Fatal("read missing")
	}
	for _, p := range []Permission{PermUpload, PermDelete, PermAlbums} {
		if set.Has(p) {
			t.Errorf("read-only set unexpectedly has %s", p)
		}
	}
}

func TestParsePermissions(t *testing.T) {
	set, err := ParsePermissions([]string{"upload", "albums"})
	if err != nil {
		t.Fatalf("ParsePermissions: %v", err)
	}
	if !set.Has(PermUpload) || !set.Has(PermAlbums) || set.Has(PermRead) {
		t.Errorf("unexpected set %v", set.Names())
	}

	if _, err := ParsePermissions([]string{"read", "admin"}); err == nil {
		t.Error("expected error for unknown permission")
	}
}

func TestPermissionsJSON(t *testing.T) {
	set := NewPermissions(PermDelete, PermRead)
	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `["delete","read"]` {
		t.Errorf("got %s", data)
	}

	var back Permissions
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back != set {
		t.Errorf("round trip: got %v, want %v", back.Names(), set.Names())
	}
}
