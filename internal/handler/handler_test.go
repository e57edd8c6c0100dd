package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naveenkul/pocket-soul/internal/model/persona"
	"github.com/naveenkul/pocket-soul/internal/registry"
	"github.com/naveenkul/pocket-soul/internal/service/assets"
	"github.com/naveenkul/pocket-soul/internal/service/conversation"
	"github.com/naveenkul/pocket-soul/internal/service/pipeline"
	"github.com/naveenkul/pocket-soul/internal/vision"
)

type stubGenerator struct {
	url string
	err error
}

func (g *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return g.url, g.err
}

type testEnv struct {
	server   *httptest.Server
	registry *registry.Registry
	cache    *assets.Cache
}

func newTestEnv(t *testing.T, cache *assets.Cache) *testEnv {
	t.Helper()

	log := zerolog.Nop()
	store := conversation.NewStore()
	reg := registry.New(log)

	videosDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(videosDir, "joy_wave.mp4"), []byte("clip"), 0o644))
	resolver := assets.NewResolver(videosDir, log)

	var characterCache pipeline.CharacterCache
	generatedDir := t.TempDir()
	if cache != nil {
		characterCache = cache
		generatedDir = cache.Dir()
	}

	pipe := pipeline.New(pipeline.Deps{
		Conversations: store,
		Registry:      reg,
		Cache:         characterCache,
		Resolver:      resolver,
		Persona:       persona.Seed()[0],
		Log:           log,
	})

	visionClient := vision.NewClient("", log)

	router := NewRouter(
		NewWSHandler(reg, store, pipe, log),
		NewCharacterHandler(cache, resolver, visionClient, log),
		NewStreamHandler(reg, log),
		videosDir,
		generatedDir,
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, registry: reg, cache: cache}
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return decoded
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/healthz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestParseEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.server.URL+"/api/character/parse", map[string]string{
		"prompt": "be a grumpy pirate",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["isCharacterRequest"])
	assert.Equal(t, "neutral", body["emotion"])
	assert.Equal(t, "grumpy pirate", body["description"])
}

func TestGenerateEndpointWithoutCache(t *testing.T) {
	env := newTestEnv(t, nil)

	resp := postJSON(t, env.server.URL+"/api/character/generate", map[string]string{
		"prompt": "be a grumpy pirate",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGenerateEndpoint(t *testing.T) {
	artifacts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	defer artifacts.Close()

	cache, err := assets.NewCache(t.TempDir(), &stubGenerator{url: artifacts.URL + "/clip.mp4"}, 0, zerolog.Nop())
	require.NoError(t, err)

	env := newTestEnv(t, cache)

	resp := postJSON(t, env.server.URL+"/api/character/generate", map[string]string{
		"prompt": "be a grumpy pirate",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["cached"])
	assert.Equal(t, "grumpy pirate", body["description"])
	videoPath, _ := body["videoPath"].(string)
	require.True(t, strings.HasPrefix(videoPath, "/videos/custom/"))

	// The generated artifact is served back under its video path.
	fileResp, err := http.Get(env.server.URL + videoPath)
	require.NoError(t, err)
	defer fileResp.Body.Close()
	assert.Equal(t, http.StatusOK, fileResp.StatusCode)

	// A repeat request is a cache hit.
	resp = postJSON(t, env.server.URL+"/api/character/generate", map[string]string{
		"prompt": "be a grumpy pirate",
	})
	body = decodeBody(t, resp)
	assert.Equal(t, true, body["cached"])
}

func TestGenerateEndpointRequiresPrompt(t *testing.T) {
	cache, err := assets.NewCache(t.TempDir(), &stubGenerator{}, 0, zerolog.Nop())
	require.NoError(t, err)
	env := newTestEnv(t, cache)

	resp := postJSON(t, env.server.URL+"/api/character/generate", map[string]string{"prompt": "  "})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCacheListAndClear(t *testing.T) {
	artifacts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("video-bytes"))
	}))
	defer artifacts.Close()

	cache, err := assets.NewCache(t.TempDir(), &stubGenerator{url: artifacts.URL + "/clip.mp4"}, 0, zerolog.Nop())
	require.NoError(t, err)
	env := newTestEnv(t, cache)

	postJSON(t, env.server.URL+"/api/character/generate", map[string]string{"prompt": "be a pirate"}).Body.Close()

	resp, err := http.Get(env.server.URL + "/api/character/cache")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, float64(1), body["count"])

	req, err := http.NewRequest(http.MethodDelete, env.server.URL+"/api/character/cache", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	delResp.Body.Close()
	require.Equal(t, http.StatusOK, delResp.StatusCode)

	resp, err = http.Get(env.server.URL + "/api/character/cache")
	require.NoError(t, err)
	body = decodeBody(t, resp)
	assert.Equal(t, float64(0), body["count"])
}

func TestAssetsEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/api/assets?refresh=1")
	require.NoError(t, err)
	body := decodeBody(t, resp)

	standard, ok := body["standard"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, standard, "joy")
}

func TestPresenceEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/api/presence")
	require.NoError(t, err)
	body := decodeBody(t, resp)
	assert.Equal(t, false, body["fresh"])
}

func TestStandardVideoServing(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, err := http.Get(env.server.URL + "/videos/joy_wave.mp4")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t, nil)

	req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/api/assets", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func readUntil(t *testing.T, conn *websocket.Conn, eventType string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var event map[string]any
		require.NoError(t, conn.ReadJSON(&event), "waiting for %q", eventType)
		if event["type"] == eventType {
			return event
		}
	}
}

func sendMessage(t *testing.T, conn *websocket.Conn, msgType string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":      msgType,
		"data":      data,
		"timestamp": time.Now().Unix(),
	}))
}

func TestWebSocketConversationFlow(t *testing.T) {
	env := newTestEnv(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.server), nil)
	require.NoError(t, err)
	defer conn.Close()

	connected := readUntil(t, conn, "connected")
	assert.NotEmpty(t, connected["sessionId"])

	sendMessage(t, conn, "identify", map[string]string{"role": "initiator"})
	readUntil(t, conn, "identified")

	sendMessage(t, conn, "text", map[string]string{"text": "hello there"})

	complete := readUntil(t, conn, "conversation-complete")
	data, ok := complete["data"].(map[string]any)
	require.True(t, ok)

	// No model is configured, so the reply is one of the persona's
	// in-character fallback lines.
	reply, _ := data["replyText"].(string)
	assert.Contains(t, persona.Seed()[0].FallbackLines, reply)
	assert.Equal(t, "voice synthesis disabled", data["audioError"])
}

func TestWebSocketRejectsInputBeforeIdentify(t *testing.T) {
	env := newTestEnv(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.server), nil)
	require.NoError(t, err)
	defer conn.Close()

	readUntil(t, conn, "connected")

	sendMessage(t, conn, "text", map[string]string{"text": "hello"})

	errEvent := readUntil(t, conn, "error")
	data, ok := errEvent["data"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, data["message"], "identify")
}

func TestWebSocketViewerCannotSubmit(t *testing.T) {
	env := newTestEnv(t, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(env.server), nil)
	require.NoError(t, err)
	defer conn.Close()

	readUntil(t, conn, "connected")
	sendMessage(t, conn, "identify", map[string]string{"role": "viewer"})
	readUntil(t, conn, "identified")

	sendMessage(t, conn, "text", map[string]string{"text": "hello"})
	readUntil(t, conn, "error")
}
