package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ImageProducer turns a player's prompt into a URL addressing a renderable
// image, or fails. The game only ever handles the URL string; it does not
// retry, and it never interprets image content.
type ImageProducer interface {
	Produce(ctx context.Context, prompt string) (string, error)
}

const produceTimeout = 30 * time.Second

// pollinationsProducer builds a pollinations.ai render URL and verifies it
// with a single fetch before handing it back.
type pollinationsProducer struct {
	client *http.Client
	base   string
	model  string
	size   int
	seed   func() int
}

// newPollinationsProducer draws render seeds from rng. Productions run
// concurrently, so the rng is guarded here rather than shared with anything
// else.
func newPollinationsProducer(cfg *Config, rng *rand.Rand) *pollinationsProducer {
	var mu sync.Mutex

	return &pollinationsProducer{
		client: &http.Client{Timeout: produceTimeout},
		base:   "https://pollinations.ai",
		model:  cfg.imageModel,
		size:   cfg.imageSize,
		seed: func() int {
			mu.Lock()
			defer mu.Unlock()
			return rng.IntN(999999)
		},
	}
}

func (p *pollinationsProducer) renderURL(prompt string, seed int) string {
	return fmt.Sprintf("%s/p/%s?width=%d&height=%d&seed=%d&model=%s",
		p.base, url.QueryEscape(prompt), p.size, p.size, seed, p.model)
}

func (p *pollinationsProducer) Produce(ctx context.Context, prompt string) (string, error) {
	imageURL := p.renderURL(prompt, p.seed())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("image generation failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image generation failed: %s", resp.Status)
	}

	return imageURL, nil
}
