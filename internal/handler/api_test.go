package handler

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/YannKr/photoalbum/internal/apperr"
	"github.com/YannKr/photoalbum/internal/db"
	"github.com/YannKr/photoalbum/internal/dbtest"
	"github.com/YannKr/photoalbum/internal/model"
)

// apiUser creates an API-enabled user and a token carrying perms.
func apiUser(t *testing.T, srv *testServer, name string, perms ...model.Permission) (string, string) {
	t.Helper()
	u := dbtest.CreateUser(t, srv.h.DB, name)
	if err := db.SetAPIEnabled(srv.h.DB, u.ID, true); err != nil {
		t.Fatal(err)
	}
	token, _, err := srv.h.Gateway.IssueAPIToken(u.ID, name+" token", model.NewPermissions(perms...), nil)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return u.ID, token
}

func apiRequest(t *testing.T, srv *testServer, method, path, token string, body *bytes.Buffer, contentType string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+"/api/v1"+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+"/api/v1"+path, nil)
	}
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func apiUpload(t *testing.T, srv *testServer, token, filename string, data []byte) *http.Response {
	t.Helper()
	r, ct := multipartPhoto(t, filename, data, nil)
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return apiRequest(t, srv, http.MethodPost, "/photos", token, &buf, ct)
}

func TestAPIRejectsMissingAndUnknownTokens(t *testing.T) {
	srv := newTestServer(t)

	for _, token := range []string{"", "pat_0000000000000000000000000000000000000000000000000000000000000000"} {
		body := expectStatus(t, apiRequest(t, srv, http.MethodGet, "/photos", token, nil, ""), http.StatusUnauthorized)
		if body["code"] != apperr.CodeInvalidToken {
			t.Errorf("token %q: code = %v", token, body["code"])
		}
		if _, ok := body["error"].(string); !ok {
			t.Errorf("token %q: no error message in %v", token, body)
		}
	}
}

func TestAPIReadOnlyTokenCannotUpload(t *testing.T) {
	srv := newTestServer(t)
	_, token := apiUser(t, srv, "reader", model.PermRead)

	body := expectStatus(t, apiUpload(t, srv, token, "cat.png", pngBytes(t, 8, 8)), http.StatusForbidden)
	if body["code"] != apperr.CodeInsufficientPermission {
		t.Errorf("code = %v, want %s", body["code"], apperr.CodeInsufficientPermission)
	}

	expectStatus(t, apiRequest(t, srv, http.MethodGet, "/photos", token, nil, ""), http.StatusOK)
}

func TestAPIAcceptsHeaderVariants(t *testing.T) {
	srv := newTestServer(t)
	_, token := apiUser(t, srv, "variant", model.PermRead)

	cases := []struct {
		header, value string
	}{
		{"Authorization", "bearer " + token},
		{"Authorization", "BEARER   " + token},
		{"X-Authorization", "Bearer " + token},
	}
	for _, c := range cases {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/photos", nil)
		req.Header.Set(c.header, c.value)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		expectStatus(t, resp, http.StatusOK)
	}
}

func TestAPIUnknownRouteAndMethod(t *testing.T) {
	srv := newTestServer(t)

	body := expectStatus(t, apiRequest(t, srv, http.MethodGet, "/nope", "", nil, ""), http.StatusNotFound)
	if body["code"] != apperr.CodeNotFound {
		t.Errorf("404 code = %v", body["code"])
	}

	body = expectStatus(t, apiRequest(t, srv, http.MethodPut, "/photos", "", nil, ""), http.StatusMethodNotAllowed)
	if body["code"] != "method_not_allowed" {
		t.Errorf("405 code = %v", body["code"])
	}
}

func TestAPICORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/photos", nil)
	req.Header.Set("Origin", "https://elsewhere.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("preflight status = %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestAPIPhotoLifecycleIsOwnerScoped(t *testing.T) {
	srv := newTestServer(t)
	owner, token := apiUser(t, srv, "owner", model.AllPermissions...)
	_, otherToken := apiUser(t, srv, "intruder", model.AllPermissions...)

	body := expectStatus(t, apiUpload(t, srv, token, "Holiday.PNG", pngBytes(t, 10, 6)), http.StatusCreated)
	id, _ := body["photo_id"].(string)
	rawURL, _ := body["url"].(string)
	if id == "" || !strings.HasPrefix(rawURL, "http://photos.test/uploads/"+owner+"/") {
		t.Fatalf("upload response = %v", body)
	}

	got := expectStatus(t, apiRequest(t, srv, http.MethodGet, "/photos/"+id, token, nil, ""), http.StatusOK)
	if got["original_name"] != "Holiday.PNG" || got["width"] != float64(10) || got["height"] != float64(6) {
		t.Errorf("photo = %v", got)
	}

	// The public media URL serves the stored file.
	u, _ := url.Parse(rawURL)
	resp, err := http.Get(srv.URL + u.Path)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("media file status = %d", resp.StatusCode)
	}

	expectStatus(t, apiRequest(t, srv, http.MethodGet, "/photos/"+id, otherToken, nil, ""), http.StatusNotFound)
	expectStatus(t, apiRequest(t, srv, http.MethodDelete, "/photos/"+id, otherToken, nil, ""), http.StatusNotFound)

	list := expectStatus(t, apiRequest(t, srv, http.MethodGet, "/photos", otherToken, nil, ""), http.StatusOK)
	if list["count"] != float64(0) {
		t.Errorf("intruder sees %v photos", list["count"])
	}

	expectStatus(t, apiRequest(t, srv, http.MethodDelete, "/photos/"+id, token, nil, ""), http.StatusOK)
	expectStatus(t, apiRequest(t, srv, http.MethodGet, "/photos/"+id, token, nil, ""), http.StatusNotFound)
}

func TestAPIUploadValidation(t *testing.T) {
	srv := newTestServer(t)
	_, token := apiUser(t, srv, "validator", model.PermUpload)

	body := expectStatus(t, apiUpload(t, srv, token, "notes.txt", []byte("hello")), http.StatusBadRequest)
	if body["code"] != apperr.CodeUnsupportedType {
		t.Errorf("code = %v", body["code"])
	}

	big := make([]byte, srv.h.Cfg.MaxUploadBytes+10)
	body = expectStatus(t, apiUpload(t, srv, token, "big.png", big), http.StatusBadRequest)
	if body["code"] != apperr.CodeSizeExceeded {
		t.Errorf("code = %v", body["code"])
	}
	if body["limit"] != float64(srv.h.Cfg.MaxUploadBytes) {
		t.Errorf("limit = %v", body["limit"])
	}
}

func TestAPIAlbums(t *testing.T) {
	srv := newTestServer(t)
	_, token := apiUser(t, srv, "albums", model.PermRead, model.PermAlbums)

	create := func() *http.Response {
		return apiRequest(t, srv, http.MethodPost, "/albums", token,
			bytes.NewBufferString(`{"name":"Trips","description":"on the road"}`), "application/json")
	}
	body := expectStatus(t, create(), http.StatusCreated)
	if body["album_id"] == "" {
		t.Errorf("no album_id in %v", body)
	}

	body = expectStatus(t, create(), http.StatusConflict)
	if body["code"] != apperr.CodeDuplicateName {
		t.Errorf("duplicate code = %v", body["code"])
	}

	list := expectStatus(t, apiRequest(t, srv, http.MethodGet, "/albums", token, nil, ""), http.StatusOK)
	if list["count"] != float64(1) {
		t.Errorf("albums = %v", list)
	}
}
