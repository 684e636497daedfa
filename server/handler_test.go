package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/esimov/bitsvg"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type upload struct {
	field, name string
	body        []byte
}

func logoPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			c := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			if x >= 2 && x < 6 && y >= 2 && y < 6 {
				c = color.NRGBA{A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path string, files ...upload) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = w.Write(f.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newTestRouter(t *testing.T, cfg bitsvg.ServerConfig) *gin.Engine {
	t.Helper()
	p, err := bitsvg.NewProcessor(bitsvg.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return NewRouter(p, cfg, nil)
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, bitsvg.DefaultConfig().Server)
	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var res HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "ok", res.Status)
	assert.Equal(t, bitsvg.DefaultCacheCapacity, res.Cache.Capacity)
}

func TestVectorize(t *testing.T) {
	r := newTestRouter(t, bitsvg.DefaultConfig().Server)
	w := serve(r, multipartRequest(t, "/api/v1/vectorize", upload{"image", "logo.png", logoPNG(t)}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res VectorizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Equal(t, "logo.png", res.Data.Filename)
	assert.Len(t, res.Data.Key, 64)
	assert.True(t, strings.HasPrefix(res.Data.SVG, "<svg"))
	assert.Contains(t, res.Data.SVG, `viewBox="0 0 8 8"`)
	assert.Equal(t, 2, res.Data.Layers)
	assert.True(t, res.Data.Metrics.Valid)
	assert.Equal(t, len(res.Data.SVG), res.Data.Metrics.Bytes)
}

func TestVectorize_BadRequests(t *testing.T) {
	r := newTestRouter(t, bitsvg.DefaultConfig().Server)

	w := serve(r, multipartRequest(t, "/api/v1/vectorize", upload{"other", "logo.png", logoPNG(t)}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, multipartRequest(t, "/api/v1/vectorize", upload{"image", "logo.png", []byte("not an image")}))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var res ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestVectorize_UploadLimit(t *testing.T) {
	cfg := bitsvg.DefaultConfig().Server
	cfg.MaxUploadSize = 64
	r := newTestRouter(t, cfg)

	big := bytes.Repeat([]byte{0xff}, 4096)
	w := serve(r, multipartRequest(t, "/api/v1/vectorize", upload{"image", "big.png", big}))
	assert.GreaterOrEqual(t, w.Code, http.StatusBadRequest)
	assert.Less(t, w.Code, http.StatusInternalServerError)
}

func TestVectorizeBatch(t *testing.T) {
	r := newTestRouter(t, bitsvg.DefaultConfig().Server)
	logo := logoPNG(t)
	w := serve(r, multipartRequest(t, "/api/v1/vectorize/batch",
		upload{"images", "a.png", logo},
		upload{"images", "broken.png", []byte("garbage")},
		upload{"images", "b.png", logo},
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res BatchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "2 of 3 images vectorized", res.Message)
	require.Len(t, res.Data, 3)

	assert.Equal(t, "a.png", res.Data[0].Filename)
	require.NotNil(t, res.Data[0].Data)
	assert.Empty(t, res.Data[0].Error)

	assert.Equal(t, "broken.png", res.Data[1].Filename)
	assert.Nil(t, res.Data[1].Data)
	assert.NotEmpty(t, res.Data[1].Error)

	require.NotNil(t, res.Data[2].Data)
	assert.Equal(t, res.Data[0].Data.SVG, res.Data[2].Data.SVG)
	assert.Equal(t, res.Data[0].Data.Key, res.Data[2].Data.Key)
}

func TestVectorizeBatch_NoFiles(t *testing.T) {
	r := newTestRouter(t, bitsvg.DefaultConfig().Server)
	w := serve(r, multipartRequest(t, "/api/v1/vectorize/batch", upload{"image", "a.png", logoPNG(t)}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewHandler_Defaults(t *testing.T) {
	cfg := bitsvg.DefaultConfig().Server
	cfg.Workers = 0
	h := NewHandler(nil, cfg, nil)
	assert.Equal(t, 1, h.cfg.Workers)
	assert.NotNil(t, h.logger)

	cfg.Workers = 6
	assert.Equal(t, 6, NewHandler(nil, cfg, nil).cfg.Workers)
}
