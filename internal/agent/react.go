// Package agent runs the advisor: a bounded ReAct loop where the model may call
// a tool between replies before giving its final answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"finarth/internal/core"
	"finarth/internal/log"
)

// MaxIterations bounds the number of model calls per insight.
const MaxIterations = 3

var (
	ErrNotConfigured = errors.New("advisor is not configured")
	ErrUpstream      = errors.New("advisor upstream failure")
)

type Step struct {
	Thought     string
	Action      string
	Input       string
	Observation string
}

type Insight struct {
	Answer     string
	Steps      []Step
	Iterations int
	Final      bool
}

type Advisor struct {
	llm    ChatCompleter
	tools  map[string]Tool
	logger *log.Logger
}

// NewAdvisor returns an advisor. A nil llm yields ErrNotConfigured on every call.
func NewAdvisor(llm ChatCompleter, logger *log.Logger, tools ...Tool) *Advisor {
	return &Advisor{
		llm:    llm,
		tools:  toolIndex(tools),
		logger: logger.WithComponent(log.ComponentAgent),
	}
}

func (a *Advisor) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are FinArth, a careful personal-finance advisor. ")
	b.WriteString("Answer the user's question using the tools below when they help.\n\nTools:\n")
	if len(a.tools) == 0 {
		b.WriteString("- none\n")
	}
	for _, name := range sortedToolNames(a.tools) {
		fmt.Fprintf(&b, "- %s: %s\n", name, a.tools[name].Description())
	}
	b.WriteString(`
Use exactly this format:
Thought: what you need to find out
Action: one tool name
Action Input: the tool input

You will then receive "Observation: <result>". When you know the answer, reply:
Thought: I can answer now
Final Answer: your advice in plain language`)
	return b.String()
}

// GenerateInsight runs at most MaxIterations model calls. Without a final
// answer the last reply is returned as the insight.
func (a *Advisor) GenerateInsight(ctx context.Context, query string, userID int64) (Insight, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Insight{}, core.ErrMissingQuery
	}
	if a.llm == nil {
		return Insight{}, ErrNotConfigured
	}

	messages := []Message{
		{Role: RoleSystem, Content: a.systemPrompt()},
		{Role: RoleUser, Content: query},
	}

	var out Insight
	var last string
	for out.Iterations < MaxIterations {
		out.Iterations++

		reply, err := a.llm.Complete(ctx, messages)
		if err != nil {
			return Insight{}, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		last = reply
		r := parseReply(reply)

		if r.final != "" {
			out.Answer = r.final
			out.Final = true
			if r.thought != "" {
				out.Steps = append(out.Steps, Step{Thought: r.thought})
			}
			return out, nil
		}
		if r.action == "" {
			// free-form reply, nothing to run
			out.Answer = strings.TrimSpace(reply)
			return out, nil
		}

		obs := a.runTool(ctx, r.action, r.input, userID)
		a.logger.DebugContext(ctx, "Advisor step",
			log.FieldIteration, out.Iterations,
			log.FieldTool, r.action)

		out.Steps = append(out.Steps, Step{
			Thought:     r.thought,
			Action:      r.action,
			Input:       r.input,
			Observation: obs,
		})
		messages = append(messages,
			Message{Role: RoleAssistant, Content: strings.TrimSpace(reply)},
			Message{Role: RoleUser, Content: "Observation: " + obs},
		)
	}

	out.Answer = strings.TrimSpace(last)
	a.logger.InfoContext(ctx, "Advisor stopped without final answer", log.FieldIteration, out.Iterations)
	return out, nil
}

func (a *Advisor) runTool(ctx context.Context, name, input string, userID int64) string {
	tool, ok := a.tools[name]
	if !ok {
		return fmt.Sprintf("unknown tool %q, available tools: %s", name, toolNames(a.tools))
	}
	obs, err := tool.Run(ctx, input, userID)
	if err != nil {
		a.logger.WarnContext(ctx, "Advisor tool failed", log.FieldTool, name, log.FieldError, err)
		return "tool error: " + err.Error()
	}
	return obs
}

type reply struct {
	thought string
	action  string
	input   string
	final   string
}

func parseReply(text string) reply {
	var r reply
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case hasPrefixFold(trimmed, "Final Answer:"):
			rest := strings.TrimSpace(trimmed[len("Final Answer:"):])
			tail := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			r.final = strings.TrimSpace(strings.Join([]string{rest, tail}, "\n"))
			return r
		case hasPrefixFold(trimmed, "Thought:"):
			if r.thought == "" {
				r.thought = strings.TrimSpace(trimmed[len("Thought:"):])
			}
		case hasPrefixFold(trimmed, "Action Input:"):
			if r.input == "" {
				r.input = strings.Trim(strings.TrimSpace(trimmed[len("Action Input:"):]), `"`)
			}
		case hasPrefixFold(trimmed, "Action:"):
			if r.action == "" {
				r.action = strings.TrimSpace(trimmed[len("Action:"):])
			}
		case hasPrefixFold(trimmed, "Observation:"):
			// the model must not invent observations; ignore the rest
			return r
		}
	}
	return r
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
