package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yolodolo42/sitepilot/internal/domain"
	"github.com/yolodolo42/sitepilot/internal/llm"
	"github.com/yolodolo42/sitepilot/internal/store"
)

// scriptedProvider replays canned responses and records every request.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*llm.ChatResponse
	err       error
	requests  []llm.ChatRequest
}

func newScriptedProvider(responses ...*llm.ChatResponse) *scriptedProvider {
	return &scriptedProvider{responses: responses}
}

func (p *scriptedProvider) ID() llm.ProviderID  { return "test" }
func (p *scriptedProvider) Name() string        { return "Test Provider" }
func (p *scriptedProvider) SupportsTools() bool { return true }
func (p *scriptedProvider) Models() []llm.Model {
	return []llm.Model{{ID: "test-model", SupportsTools: true}}
}
func (p *scriptedProvider) DefaultModel() string     { return "test-model" }
func (p *scriptedProvider) SetModel(id string) error { return llm.ValidateModelID(id, p.Models()) }

func (p *scriptedProvider) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cp := *req
	cp.Messages = append([]llm.Message(nil), req.Messages...)
	p.requests = append(p.requests, cp)

	if p.err != nil {
		return nil, p.err
	}
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("no scripted response left")
	}
	resp := p.responses[0]
	p.responses = p.responses[1:]
	return resp, nil
}

func (p *scriptedProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

func (p *scriptedProvider) lastRequest() llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[len(p.requests)-1]
}

// loopingProvider always asks for another tool call.
type loopingProvider struct{ scriptedProvider }

func (p *loopingProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	p.requests = append(p.requests, *req)
	n := len(p.requests)
	p.mu.Unlock()
	return &llm.ChatResponse{ToolCalls: []llm.ToolCall{
		{ID: fmt.Sprintf("call_%d", n), Name: "get_site_context"},
	}}, nil
}

func toolCall(id, name, input string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Input: []byte(input)}
}

func final(text string) *llm.ChatResponse {
	return &llm.ChatResponse{Content: text, StopReason: "end_turn", Usage: llm.Usage{InputTokens: 10, OutputTokens: 5}}
}

func calling(calls ...llm.ToolCall) *llm.ChatResponse {
	return &llm.ChatResponse{ToolCalls: calls, StopReason: "tool_use", Usage: llm.Usage{InputTokens: 20, OutputTokens: 3}}
}

var errStoreDown = errors.New("connection refused")

// faultyRepo fails selected writes.
type faultyRepo struct {
	*store.MemoryStore
	failSectionWrites bool
	failAudit         bool
}

func (r *faultyRepo) UpdateSectionContent(ctx context.Context, id string, content any) error {
	if r.failSectionWrites {
		return errStoreDown
	}
	return r.MemoryStore.UpdateSectionContent(ctx, id, content)
}

func (r *faultyRepo) AppendAudit(ctx context.Context, e *domain.AuditEntry) error {
	if r.failAudit {
		return errStoreDown
	}
	return r.MemoryStore.AppendAudit(ctx, e)
}
