package server

import (
	"github.com/esimov/bitsvg"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the handlers of p into a gin engine.
func NewRouter(p *bitsvg.Processor, cfg bitsvg.ServerConfig, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(Logger(logger))
	if cfg.MaxUploadSize > 0 {
		r.MaxMultipartMemory = cfg.MaxUploadSize
	}

	h := NewHandler(p, cfg, logger)
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	{
		api.POST("/vectorize", h.Vectorize)
		api.POST("/vectorize/batch", h.VectorizeBatch)
	}
	return r
}
