package assets

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// CharacterGenerator chains the external image and video synthesis
// collaborators: an OpenAI-compatible image model renders the character
// still, then the video provider animates it.
type CharacterGenerator struct {
	images   *openai.Client
	videoURL string
	videoKey string
	client   *http.Client
	interval time.Duration
	log      zerolog.Logger
}

// NewCharacterGenerator wires both providers. videoURL is the base URL of
// the video synthesis API; its key may be empty for unauthenticated
// deployments.
func NewCharacterGenerator(images *openai.Client, videoURL, videoKey string, log zerolog.Logger) *CharacterGenerator {
	return &CharacterGenerator{
		images:   images,
		videoURL: videoURL,
		videoKey: videoKey,
		client:   &http.Client{Timeout: 30 * time.Second},
		interval: 3 * time.Second,
		log:      log.With().Str("component", "character-generator").Logger(),
	}
}

// Generate renders the character image and submits it for animation,
// polling until the video job settles. The returned URL points at the
// finished artifact; the caller downloads and stores it.
func (g *CharacterGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	imageURL, err := g.renderImage(ctx, prompt)
	if err != nil {
		return "", err
	}
	return g.animate(ctx, prompt, imageURL)
}

func (g *CharacterGenerator) renderImage(ctx context.Context, prompt string) (string, error) {
	resp, err := g.images.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          openai.CreateImageModelDallE3,
		N:              1,
		Size:           openai.CreateImageSize1024x1792,
		ResponseFormat: openai.CreateImageResponseFormatURL,
	})
	if err != nil {
		return "", fmt.Errorf("image synthesis: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", errors.New("image synthesis: empty response")
	}
	return resp.Data[0].URL, nil
}

type videoJobRequest struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
}

type videoJobResponse struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	VideoURL string `json:"videoUrl"`
	Error    string `json:"error,omitempty"`
}

func (g *CharacterGenerator) animate(ctx context.Context, prompt, imageURL string) (string, error) {
	job, err := g.submitJob(ctx, videoJobRequest{ImageURL: imageURL, Prompt: prompt})
	if err != nil {
		return "", err
	}

	g.log.Debug().Str("job", job.ID).Msg("video job submitted")

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("video synthesis: %w", ctx.Err())
		case <-ticker.C:
			state, err := g.pollJob(ctx, job.ID)
			if err != nil {
				return "", err
			}
			switch state.Status {
			case "succeeded":
				if state.VideoURL == "" {
					return "", errors.New("video synthesis: job succeeded without artifact")
				}
				return state.VideoURL, nil
			case "failed":
				return "", fmt.Errorf("video synthesis: job failed: %s", state.Error)
			}
		}
	}
}

func (g *CharacterGenerator) submitJob(ctx context.Context, reqBody videoJobRequest) (*videoJobResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode video job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.videoURL+"/generations", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build video job request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	g.authorize(req)

	return g.doJobRequest(req)
}

func (g *CharacterGenerator) pollJob(ctx context.Context, id string) (*videoJobResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.videoURL+"/generations/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("build video poll request: %w", err)
	}
	g.authorize(req)

	return g.doJobRequest(req)
}

func (g *CharacterGenerator) doJobRequest(req *http.Request) (*videoJobResponse, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("video provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("video provider: unexpected status %d", resp.StatusCode)
	}

	var job videoJobResponse
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf("decode video provider response: %w", err)
	}
	return &job, nil
}

func (g *CharacterGenerator) authorize(req *http.Request) {
	if g.videoKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.videoKey)
	}
}
