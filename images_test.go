package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderURL(t *testing.T) {
	p := &pollinationsProducer{
		base:  "https://pollinations.ai",
		model: "flux",
		size:  1024,
	}

	got := p.renderURL("a cat, wearing a hat & scarf", 42)

	assert.True(t, strings.HasPrefix(got, "https://pollinations.ai/p/"))
	assert.Contains(t, got, "a+cat%2C+wearing+a+hat+%26+scarf")
	assert.Contains(t, got, "width=1024")
	assert.Contains(t, got, "height=1024")
	assert.Contains(t, got, "seed=42")
	assert.Contains(t, got, "model=flux")
}

func TestProduceVerifiesImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/p/"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newPollinationsProducer(testConfig(), testRNG())
	p.client = srv.Client()
	p.base = srv.URL

	url, err := p.Produce(context.Background(), "a haunted toaster")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, srv.URL+"/p/"))
}

func TestProduceSeedIsDeterministic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	producer := func() *pollinationsProducer {
		p := newPollinationsProducer(testConfig(), testRNG())
		p.client = srv.Client()
		p.base = srv.URL
		return p
	}

	first, err := producer().Produce(context.Background(), "a haunted toaster")
	require.NoError(t, err)
	second, err := producer().Produce(context.Background(), "a haunted toaster")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestProduceReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := newPollinationsProducer(testConfig(), testRNG())
	p.client = srv.Client()
	p.base = srv.URL

	_, err := p.Produce(context.Background(), "a haunted toaster")
	assert.ErrorContains(t, err, "image generation failed")
}
