package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/prism-labs/prism/core"
)

// chatDefaultBackend serves the completions shim: pollinations needs no
// credentials, so any chat client gets images out of the box.
const chatDefaultBackend = "pollinations"

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages" binding:"required,min=1"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// imageVerbs are the request phrasings the shim accepts. Anything else is
// not an image request and gets rejected rather than silently mishandled.
var imageVerbs = []string{"generate", "draw", "create", "make", "paint", "imagine"}

var imageNouns = []string{"image", "picture", "photo", "art", "illustration"}

// looksLikeImageRequest applies a keyword heuristic to a chat message: an
// image verb plus an image noun, or the bare "imagine" prompt style.
func looksLikeImageRequest(content string) bool {
	lower := strings.ToLower(content)
	if strings.HasPrefix(strings.TrimSpace(lower), "imagine ") {
		return true
	}
	verb := false
	for _, v := range imageVerbs {
		if strings.Contains(lower, v) {
			verb = true
			break
		}
	}
	if !verb {
		return false
	}
	for _, n := range imageNouns {
		if strings.Contains(lower, n) {
			return true
		}
	}
	return false
}

// ChatCompletions handles POST /v1/chat/completions: a shim that lets plain
// chat clients request images. The last user message becomes the prompt and
// the reply embeds the results as markdown images.
func (h *Handler) ChatCompletions(c *gin.Context) {
	requestID := uuid.New().String()
	c.Header("X-Request-Id", requestID)

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Message: "malformed request body: " + err.Error(),
			Type:    "invalid_request_error",
		}})
		return
	}

	var prompt string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			prompt = req.Messages[i].Content
			break
		}
	}
	if prompt == "" || !looksLikeImageRequest(prompt) {
		c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{
			Message: "last user message is not an image request",
			Type:    "invalid_request_error",
		}})
		return
	}

	route := routeFromHeaders(c)
	if c.GetHeader("X-Backend") == "" {
		route.BackendID = chatDefaultBackend
	}

	genReq := core.GenerationRequest{Prompt: prompt}
	resp, err := h.dispatch(c.Request.Context(), &genReq, route, h.sink)
	if err != nil {
		writeError(c, err)
		return
	}

	var reply strings.Builder
	for i, img := range resp.Images {
		if i > 0 {
			reply.WriteString("\n\n")
		}
		reply.WriteString("![generated image](")
		reply.WriteString(img.DataURI())
		reply.WriteString(")")
	}

	c.JSON(http.StatusOK, chatResponse{
		ID:      "chatcmpl-" + requestID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   route.BackendID,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: reply.String()},
			FinishReason: "stop",
		}},
	})
}
