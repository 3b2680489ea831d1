package agent

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zhstock/dsa/internal/events"
	"github.com/zhstock/dsa/internal/llm"
	"github.com/zhstock/dsa/pkg/strategy"
)

// Chat is the minimal llm.Router surface the executor needs.
type Chat interface {
	Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error)
}

// Executor runs the bounded ReAct loop (§4.6).
type Executor struct {
	log      zerolog.Logger
	chat     Chat
	registry *ToolRegistry
	bus      *events.Bus
	maxSteps int
}

// NewExecutor builds an Executor with the given step budget
// (AGENT_MAX_STEPS).
func NewExecutor(chat Chat, registry *ToolRegistry, bus *events.Bus, maxSteps int, log zerolog.Logger) *Executor {
	if maxSteps <= 0 {
		maxSteps = 8
	}
	return &Executor{
		log:      log.With().Str("component", "agent-executor").Logger(),
		chat:     chat,
		registry: registry,
		bus:      bus,
		maxSteps: maxSteps,
	}
}

// Result is the outcome of one Run.
type Result struct {
	FinalText string
	Steps     int
	Messages  []llm.ChatMessage
}

// Run composes the system prompt from the named strategies, then
// drives the tool-call loop until the model returns a final message
// or the step budget is exhausted.
func (e *Executor) Run(ctx context.Context, sessionID string, strategies map[string]strategy.Strategy, strategyNames []string, userPrompt string) (Result, error) {
	systemPrompt, err := strategy.ComposeSystemPrompt(strategies, strategyNames)
	if err != nil {
		return Result{}, fmt.Errorf("agent: compose system prompt: %w", err)
	}

	requiredTools := strategy.RequiredTools(strategies, strategyNames)
	registry := e.registry.Restrict(requiredTools)

	messages := []llm.ChatMessage{
		{Role: "system", Content: []llm.ContentPart{{Type: "text", Text: systemPrompt}}},
		{Role: "user", Content: []llm.ContentPart{{Type: "text", Text: userPrompt}}},
	}

	tools := toLLMTools(registry.Declarations())

	for step := 0; step < e.maxSteps; step++ {
		e.emit(sessionID, events.AgentThinking, "", "")

		resp, err := e.chat.Chat(ctx, llm.ChatRequest{Messages: messages, Tools: tools})
		if err != nil {
			e.emit(sessionID, events.AgentError, "", err.Error())
			return Result{}, fmt.Errorf("agent: chat step %d: %w", step, err)
		}

		messages = append(messages, resp.Message)

		if len(resp.Message.ToolCalls) == 0 {
			e.emit(sessionID, events.AgentDone, "", "")
			return Result{FinalText: textOf(resp.Message), Steps: step + 1, Messages: messages}, nil
		}

		for _, call := range resp.Message.ToolCalls {
			e.emit(sessionID, events.AgentToolStart, call.Function.Name, "")
			result, err := registry.Dispatch(ctx, call.Function.Name, call.Function.Arguments)
			if err != nil {
				result = fmt.Sprintf(`{"error":%q}`, err.Error())
			}
			e.emit(sessionID, events.AgentToolDone, call.Function.Name, "")

			messages = append(messages, llm.ChatMessage{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    []llm.ContentPart{{Type: "text", Text: result}},
			})
		}
	}

	e.emit(sessionID, events.AgentDone, "", "step budget exhausted")
	return Result{FinalText: lastAssistantText(messages), Steps: e.maxSteps, Messages: messages}, nil
}

func (e *Executor) emit(sessionID string, kind events.EventType, toolName, message string) {
	if e.bus == nil {
		return
	}
	e.bus.Emit("agent", events.AgentStepData{SessionID: sessionID, Kind: kind, ToolName: toolName, Message: message})
}

func toLLMTools(decls []ToolDeclaration) []llm.Tool {
	out := make([]llm.Tool, 0, len(decls))
	for _, d := range decls {
		out = append(out, llm.Tool{
			Type: "function",
			Function: llm.Function{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

func textOf(m llm.ChatMessage) string {
	out := ""
	for _, part := range m.Content {
		if part.Type == "text" {
			out += part.Text
		}
	}
	return out
}

func lastAssistantText(messages []llm.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "assistant" {
			return textOf(messages[i])
		}
	}
	return ""
}
