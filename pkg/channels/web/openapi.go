package web

import (
	"net/http"
	"sync"

	"agentapi/pkg/tools"
)

var (
	openAPIOnce sync.Once
	openAPIDoc  map[string]any
)

func jsonBody(schema any) map[string]any {
	return map[string]any{"content": map[string]any{"application/json": map[string]any{"schema": schema}}}
}

func op(summary string, extra map[string]any) map[string]any {
	o := map[string]any{
		"summary":   summary,
		"responses": map[string]any{"200": map[string]any{"description": "OK"}},
	}
	for k, v := range extra {
		o[k] = v
	}
	return o
}

func pathParam(name string) map[string]any {
	return map[string]any{"name": name, "in": "path", "required": true, "schema": map[string]any{"type": "string"}}
}

// OpenAPI describes the HTTP routes. Request bodies are reflected from the
// same structs the handlers decode.
func OpenAPI() map[string]any {
	openAPIOnce.Do(func() {
		processBody := tools.GenerateSchema[ProcessRequest]()
		openAPIDoc = map[string]any{
			"openapi": "3.1.0",
			"info":    map[string]any{"title": "Agent API Service", "version": "v1"},
			"paths": map[string]any{
				"/":             map[string]any{"get": op("Welcome message", nil)},
				"/ping":         map[string]any{"get": op("Liveness check", nil)},
				"/api/v1/ping":  map[string]any{"get": op("Liveness check", nil)},
				"/api/v1/tools": map[string]any{"get": op("List registered tools", nil)},
				"/api/v1/process": map[string]any{"post": op("Answer user input within a session", map[string]any{
					"requestBody": jsonBody(processBody),
				})},
				"/api/v1/process/{session_id}": map[string]any{"get": op("Answer user input within a session", map[string]any{
					"parameters": []any{
						pathParam("session_id"),
						map[string]any{"name": "user_input", "in": "query", "required": true, "schema": map[string]any{"type": "string"}},
					},
				})},
				"/api/v1/sessions/{session_id}/history": map[string]any{"get": op("Session history", map[string]any{
					"parameters": []any{pathParam("session_id")},
				})},
				"/api/v1/sessions/{session_id}": map[string]any{"delete": op("Forget a session", map[string]any{
					"parameters": []any{pathParam("session_id")},
				})},
				"/api/v1/tools/{name}": map[string]any{"post": op("Invoke a tool", map[string]any{
					"parameters":  []any{pathParam("name")},
					"requestBody": jsonBody(map[string]any{"type": "object"}),
				})},
				"/api/v1/ws": map[string]any{"get": op("Websocket; frames carry the POST /api/v1/process body", nil)},
			},
		}
	})
	return openAPIDoc
}

func (h *handler) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OpenAPI())
}
