package upload

import (
	"errors"
	"testing"

	"github.com/YannKr/photoalbum/internal/apperr"
)

type fakeAlbums struct {
	owned       map[string]string // album -> owner
	fallback    string
	fallbackErr error
	ensureCalls int
}

func (f *fakeAlbums) ValidateOwnership(albumID, owner string) (bool, error) {
	return f.owned[albumID] == owner, nil
}

func (f *fakeAlbums) EnsureOwnerHasAlbum(owner string) (string, error) {
	f.ensureCalls++
	return f.fallback, f.fallbackErr
}

func newValidator(albums *fakeAlbums) *Validator {
	return NewValidator(5<<20, []string{"jpg", "jpeg", "png", "gif"}, albums)
}

func TestValidateOrder(t *testing.T) {
	albums := &fakeAlbums{fallback: "default"}
	v := newValidator(albums)

	// A transfer error wins over every other problem.
	_, err := v.Validate("u1", Candidate{OriginalName: "a.exe", Size: 6 << 20, TransferErr: errors.New("partial")})
	if apperr.CodeOf(err) != apperr.CodeTransferError {
		t.Errorf("got %v, want transfer_error", err)
	}

	// Size is checked before type.
	_, err = v.Validate("u1", Candidate{OriginalName: "a.exe", Size: 6 << 20})
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Code != apperr.CodeSizeExceeded || ae.Limit != 5<<20 {
		t.Errorf("got %v, want size_exceeded with limit", err)
	}

	if albums.ensureCalls != 0 {
		t.Error("album fallback ran before file checks passed")
	}
}

func TestValidateTypes(t *testing.T) {
	v := newValidator(&fakeAlbums{fallback: "default"})

	for _, name := range []string{"a.bmp", "a.webp", "a.exe", "noext", "a.jpg.exe"} {
		if _, err := v.Validate("u1", Candidate{OriginalName: name, Size: 10}); apperr.CodeOf(err) != apperr.CodeUnsupportedType {
			t.Errorf("%s: got %v, want unsupported_type", name, err)
		}
	}
	for _, name := range []string{"a.jpg", "a.JPEG", "b.Png", "c.GIF", "d.jpeg"} {
		acc, err := v.Validate("u1", Candidate{OriginalName: name, Size: 10})
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if acc.AlbumID != "default" {
			t.Errorf("%s: album = %q", name, acc.AlbumID)
		}
	}
}

func TestValidateAlbumResolution(t *testing.T) {
	albums := &fakeAlbums{owned: map[string]string{"mine": "u1", "theirs": "u2"}, fallback: "default"}
	v := newValidator(albums)

	acc, err := v.Validate("u1", Candidate{OriginalName: "a.png", Size: 1, AlbumID: "mine"})
	if err != nil || acc.AlbumID != "mine" {
		t.Fatalf("owned album: %v %v", acc, err)
	}

	acc, err = v.Validate("u1", Candidate{OriginalName: "a.png", Size: 1, AlbumID: "theirs"})
	if err != nil || acc.AlbumID != "default" {
		t.Fatalf("foreign album should fall back: %v %v", acc, err)
	}

	albums.fallbackErr = errors.New("db down")
	_, err = v.Validate("u1", Candidate{OriginalName: "a.png", Size: 1})
	if apperr.CodeOf(err) != apperr.CodeNoAlbumAvailable {
		t.Errorf("got %v, want no_album_available", err)
	}
}
