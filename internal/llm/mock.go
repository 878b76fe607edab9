package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

// MockClient is an offline client for local runs and tests. With no Respond
// func it answers every prompt with a well-formed score derived from the
// prompt text, so repeated runs are reproducible.
type MockClient struct {
	Respond func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

func (m *MockClient) Model() string { return "mock" }

func (m *MockClient) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.Respond != nil {
		return m.Respond(prompt)
	}
	return MockReply(prompt), nil
}

// MockReply is the default MockClient answer for prompt.
func MockReply(prompt string) string {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	score := 1 + h.Sum32()%5
	return fmt.Sprintf(`{"reasoning": "离线评估", "result": {"score": %d, "explanation": "模拟评分 %d"}}`, score, score)
}

// Prompts returns every prompt received so far.
func (m *MockClient) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// Calls returns the number of prompts received so far.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
