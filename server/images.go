package server

import (
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prism-labs/prism/core"
)

// defaultBackend serves requests that name no backend. A local self-hosted
// server is the one target that needs no credentials to be useful.
const defaultBackend = "a1111"

// imageDatum is one OpenAI-style output entry: url or b64_json, never both.
type imageDatum struct {
	URL     string `json:"url,omitempty"`
	B64JSON string `json:"b64_json,omitempty"`
}

type imagesResponse struct {
	Created int64        `json:"created"`
	Data    []imageDatum `json:"data"`
}

// routeFromHeaders assembles the routing context: X-Backend picks the
// adapter, Authorization carries the provider key, X-Base-Url overrides the
// provider endpoint.
func routeFromHeaders(c *gin.Context) *core.RoutingContext {
	backend := c.GetHeader("X-Backend")
	if backend == "" {
		backend = defaultBackend
	}
	return &core.RoutingContext{
		BackendID: backend,
		APIKey:    core.NewSecret(bearerToken(c.GetHeader("Authorization"))),
		BaseURL:   c.GetHeader("X-Base-Url"),
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return header
}

// GenerateImages handles POST /v1/images/generations.
func (h *Handler) GenerateImages(c *gin.Context) {
	requestID := uuid.New().String()
	c.Header("X-Request-Id", requestID)

	var req core.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Message: "malformed request body: " + err.Error(),
			Type:    "invalid_request_error",
		}})
		return
	}

	route := routeFromHeaders(c)
	resp, err := h.dispatch(c.Request.Context(), &req, route, h.sink)
	if err != nil {
		writeError(c, err)
		return
	}

	data := make([]imageDatum, 0, len(resp.Images))
	for _, img := range resp.Images {
		if img.IsInline() {
			data = append(data, imageDatum{B64JSON: base64.StdEncoding.EncodeToString(img.Data)})
		} else {
			data = append(data, imageDatum{URL: img.URL})
		}
	}
	c.JSON(http.StatusOK, imagesResponse{Created: time.Now().Unix(), Data: data})
}
