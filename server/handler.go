// Package server exposes the vectorizer over HTTP.
package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/esimov/bitsvg"
	"github.com/esimov/bitsvg/utils"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Handler serves the vectorization endpoints.
type Handler struct {
	proc   *bitsvg.Processor
	cfg    bitsvg.ServerConfig
	logger *zap.Logger
}

func NewHandler(p *bitsvg.Processor, cfg bitsvg.ServerConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.Workers = utils.Max(cfg.Workers, 1)
	return &Handler{proc: p, cfg: cfg, logger: logger}
}

// Health reports the service status.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
		Cache:  h.proc.CacheStats(),
	})
}

// Vectorize converts the image uploaded in the "image" form field.
func (h *Handler) Vectorize(c *gin.Context) {
	h.limitBody(c)

	file, err := c.FormFile("image")
	if err != nil {
		h.badUpload(c, "please upload an image file", err)
		return
	}

	data, err := h.vectorize(c.Request.Context(), file)
	if err != nil {
		h.logger.Error("failed to vectorize image",
			zap.String("filename", file.Filename),
			zap.Error(err),
		)
		c.JSON(statusOf(err), ErrorResponse{
			Success: false,
			Message: "image vectorization failed",
			Error:   err.Error(),
		})
		return
	}

	msg := "image vectorized"
	if !data.Metrics.Accepted {
		msg = "image vectorized, quality below threshold"
	}
	c.JSON(http.StatusOK, VectorizeResponse{
		Success: true,
		Message: msg,
		Data:    data,
	})
}

// VectorizeBatch converts every image uploaded in the "images" form field.
// The images are processed in parallel and a failing image does not abort
// the others.
func (h *Handler) VectorizeBatch(c *gin.Context) {
	h.limitBody(c)

	form, err := c.MultipartForm()
	if err != nil {
		h.badUpload(c, "please upload the image files", err)
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Message: "please upload the image files",
			Error:   "no files in the images field",
		})
		return
	}

	items := make([]BatchItem, len(files))
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.SetLimit(h.cfg.Workers)
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			items[i].Filename = file.Filename
			data, err := h.vectorize(ctx, file)
			if err != nil {
				h.logger.Warn("failed to vectorize batch image",
					zap.String("filename", file.Filename),
					zap.Error(err),
				)
				items[i].Error = err.Error()
				return nil
			}
			items[i].Data = data
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, it := range items {
		if it.Error != "" {
			failed++
		}
	}
	c.JSON(http.StatusOK, BatchResponse{
		Success: failed < len(items),
		Message: fmt.Sprintf("%d of %d images vectorized", len(items)-failed, len(items)),
		Data:    items,
	})
}

// vectorize runs the pipeline over one uploaded file. A failed quality
// check still yields the document, flagged with a warning.
func (h *Handler) vectorize(ctx context.Context, file *multipart.FileHeader) (*VectorizeData, error) {
	f, err := file.Open()
	if err != nil {
		return nil, errors.Wrap(err, "unable to open the uploaded file")
	}
	defer f.Close()

	hash := sha256.New()
	res, err := h.proc.VectorizeReader(ctx, io.TeeReader(f, hash))
	if res == nil {
		return nil, err
	}

	doc := res.Document.Minified
	if h.proc.Config.SVG.Pretty {
		doc = res.Document.Pretty
	}
	data := &VectorizeData{
		Filename:   file.Filename,
		Key:        hex.EncodeToString(hash.Sum(nil)),
		SVG:        doc,
		Layers:     res.Layers,
		Primitives: res.Primitives,
		Metrics:    res.Metrics,
	}
	if err != nil {
		data.Warning = err.Error()
	}
	return data, nil
}

func (h *Handler) limitBody(c *gin.Context) {
	if h.cfg.MaxUploadSize > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize)
	}
}

func (h *Handler) badUpload(c *gin.Context, msg string, err error) {
	status := http.StatusBadRequest
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		status = http.StatusRequestEntityTooLarge
		msg = fmt.Sprintf("upload exceeds the limit of %d bytes", maxErr.Limit)
	}
	h.logger.Warn("invalid upload", zap.Error(err))
	c.JSON(status, ErrorResponse{
		Success: false,
		Message: msg,
		Error:   err.Error(),
	})
}

// statusOf maps a pipeline error to an HTTP status code.
func statusOf(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusUnprocessableEntity
	}
}
