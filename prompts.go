package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
)

// PromptPool is the static set of round themes. Selection is uniform and
// independent of history, so repeats across rounds are possible.
type PromptPool struct {
	prompts []string
}

// newPromptPool loads prompts from path, or from the embedded default set
// when path is empty.
func newPromptPool(path string) (*PromptPool, error) {
	var (
		data []byte
		err  error
	)

	if path == "" {
		data, err = assets.ReadFile("assets/prompts.txt")
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("loading prompts: %w", err)
	}

	var prompts []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		prompts = append(prompts, line)
	}

	if len(prompts) == 0 {
		return nil, errors.New("prompt pool is empty")
	}

	return &PromptPool{prompts: prompts}, nil
}

func (p *PromptPool) pick(rng *rand.Rand) string {
	return p.prompts[rng.IntN(len(p.prompts))]
}

func (p *PromptPool) size() int {
	return len(p.prompts)
}
