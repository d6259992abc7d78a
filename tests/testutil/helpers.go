package testutil

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockMessage is one scripted assistant message unit.
type MockMessage struct {
	Text             string         `json:"text"`
	Animation        string         `json:"animation,omitempty"`
	FacialExpression string         `json:"facialExpression,omitempty"`
	Audio            string         `json:"audio,omitempty"`
	Lipsync          map[string]any `json:"lipsync,omitempty"`
}

// MockBackendScript configures the mock assistant backend's responses.
type MockBackendScript struct {
	Messages []MockMessage
	Products []map[string]any
}

// EncodeAudio base64-encodes a payload the way the wire format does.
func EncodeAudio(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// LipsyncPayload builds a phoneme transcript object for a scripted
// message.
func LipsyncPayload(duration float64, cues ...[3]any) map[string]any {
	mouthCues := make([]map[string]any, 0, len(cues))
	for _, c := range cues {
		mouthCues = append(mouthCues, map[string]any{
			"start": c[0], "end": c[1], "value": c[2],
		})
	}
	return map[string]any{
		"metadata":  map[string]any{"duration": duration},
		"mouthCues": mouthCues,
	}
}

// CreateMockBackend serves the assistant API with scripted responses.
func CreateMockBackend(t *testing.T, script MockBackendScript) *httptest.Server {
	t.Helper()

	var history []map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/llm/get-response":
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var req map[string]string
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]any{"statusCode": 400, "message": "bad request"})
				return
			}
			history = append(history, map[string]any{"role": "user", "content": req["query"]})
			for _, m := range script.Messages {
				history = append(history, map[string]any{"role": "assistant", "content": m.Text})
			}
			json.NewEncoder(w).Encode(map[string]any{
				"statusCode": 200,
				"data": map[string]any{
					"messages": script.Messages,
					"products": script.Products,
				},
			})

		case "/api/v1/llm/chat-history":
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"statusCode": 200,
				"data":       map[string]any{"history": history},
			})

		case "/api/v1/llm/clear-history":
			if r.Method != http.MethodPost {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			history = nil
			json.NewEncoder(w).Encode(map[string]any{
				"statusCode": 200,
				"data":       map[string]any{},
			})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}
