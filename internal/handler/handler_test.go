package handler

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/YannKr/photoalbum/internal/backup"
	"github.com/YannKr/photoalbum/internal/config"
	"github.com/YannKr/photoalbum/internal/dbtest"
	"github.com/YannKr/photoalbum/internal/gateway"
	"github.com/YannKr/photoalbum/internal/imaging"
	"github.com/YannKr/photoalbum/internal/library"
	"github.com/YannKr/photoalbum/internal/sse"
	"github.com/YannKr/photoalbum/internal/storage"
)

type testServer struct {
	*httptest.Server
	h *Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	database := dbtest.Open(t)
	alloc := storage.New(t.TempDir())
	cfg := &config.Config{
		BaseURL:        "http://photos.test",
		SessionSecret:  "handler-test-secret-0123456789ab",
		MaxUploadBytes: 1 << 20,
		AllowedTypes:   []string{"jpg", "jpeg", "png", "gif"},
		APIRatePerMin:  10000,
	}
	h := New(database, cfg,
		library.New(database, alloc, cfg.MaxUploadBytes, cfg.AllowedTypes),
		imaging.New(database, alloc),
		backup.New(database, alloc),
		gateway.New(database),
		sse.New(),
	)

	rl := NewRateLimiter(rate.Inf, 1)
	t.Cleanup(rl.Stop)

	srv := httptest.NewServer(h.Routes(rl))
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, h: h}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.NRGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// multipartPhoto builds a form with the file in the "photo" field.
func multipartPhoto(t *testing.T, filename string, data []byte, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	fw, err := mw.CreateFormFile("photo", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(data)
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode %s response: %v", resp.Request.URL.Path, err)
	}
	return body
}

// webClient drives the session surface: it keeps cookies and sends the CSRF
// token on every unsafe request.
type webClient struct {
	t      *testing.T
	base   string
	client *http.Client
	csrf   string
}

func newWebClient(t *testing.T, srv *testServer) *webClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	c := &webClient{t: t, base: srv.URL, client: &http.Client{Jar: jar}}
	c.refreshCSRF()
	return c
}

func (c *webClient) refreshCSRF() map[string]any {
	c.t.Helper()
	resp, err := c.client.Get(c.base + "/session")
	if err != nil {
		c.t.Fatal(err)
	}
	body := decodeBody(c.t, resp)
	c.csrf, _ = body["csrf_token"].(string)
	if c.csrf == "" {
		c.t.Fatal("no csrf_token in /session")
	}
	return body
}

func (c *webClient) get(path string) *http.Response {
	c.t.Helper()
	resp, err := c.client.Get(c.base + path)
	if err != nil {
		c.t.Fatal(err)
	}
	return resp
}

func (c *webClient) postForm(path string, form url.Values) *http.Response {
	c.t.Helper()
	return c.post(path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (c *webClient) post(path string, body io.Reader, contentType string) *http.Response {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, body)
	if err != nil {
		c.t.Fatal(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-CSRF-Token", c.csrf)
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatal(err)
	}
	return resp
}

func expectStatus(t *testing.T, resp *http.Response, want int) map[string]any {
	t.Helper()
	body := decodeBody(t, resp)
	if resp.StatusCode != want {
		t.Fatalf("%s %s: status %d, want %d (body %v)", resp.Request.Method, resp.Request.URL.Path, resp.StatusCode, want, body)
	}
	return body
}
