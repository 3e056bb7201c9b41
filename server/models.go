package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prism-labs/prism/backends"
)

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

type modelList struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

// ListModels handles GET /v1/models, presenting each registered backend as
// a selectable model so stock OpenAI clients can enumerate them.
func (h *Handler) ListModels(c *gin.Context) {
	ids := backends.List()
	entries := make([]modelEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, modelEntry{ID: id, Object: "model", OwnedBy: "prism"})
	}
	c.JSON(http.StatusOK, modelList{Object: "list", Data: entries})
}

// RelayModels handles GET /proxy/models: fetches a provider's model list on
// behalf of a browser client that CORS would otherwise block, passing the
// upstream JSON through untouched.
func (h *Handler) RelayModels(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Message: "url query parameter is required",
			Type:    "invalid_request_error",
		}})
		return
	}

	req, err := http.NewRequestWithContext(c.Request.Context(), http.MethodGet, target, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Message: "invalid url: " + err.Error(),
			Type:    "invalid_request_error",
		}})
		return
	}
	if key := c.Query("key"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		c.JSON(http.StatusBadGateway, errorBody{Error: errorDetail{
			Message: "upstream fetch failed: " + err.Error(),
			Type:    "backend_error",
		}})
		return
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	c.DataFromReader(resp.StatusCode, resp.ContentLength, contentType, resp.Body, nil)
}
