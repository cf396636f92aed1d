// Package chat keeps per-visitor conversations with the remote assistant.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/kalambet/glowkit/internal/catalog"
	"github.com/kalambet/glowkit/internal/proxy"
)

// Completer sends a conversation history and returns the assistant reply.
// Implemented by proxy.Client.
type Completer interface {
	Complete(ctx context.Context, messages []proxy.Message) (string, error)
}

// Sender identifies who a chat bubble belongs to.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Bubble is one entry in the chat window. Pending bubbles are transient
// placeholders and never correspond to a conversation message.
type Bubble struct {
	ID      int    `json:"id"`
	Sender  Sender `json:"sender"`
	Text    string `json:"text"`
	Pending bool   `json:"pending,omitempty"`
}

// Outcome reports what a Submit or GenerateRoutine call did.
type Outcome string

const (
	OutcomeIgnored        Outcome = "ignored"
	OutcomeReplied        Outcome = "replied"
	OutcomeInvalidReply   Outcome = "invalid_reply"
	OutcomeFailed         Outcome = "failed"
	OutcomeEmptySelection Outcome = "empty_selection"
	// OutcomePending means the exchange was started but not waited for.
	OutcomePending Outcome = "pending"
)

// Snapshot is a consistent copy of a session's visible state.
type Snapshot struct {
	ID           string          `json:"id"`
	Window       []Bubble        `json:"window"`
	History      []proxy.Message `json:"history"`
	LastQuestion string          `json:"last_question"`
}

// Waiting reports whether a reply is still outstanding.
func (s Snapshot) Waiting() bool {
	for _, b := range s.Window {
		if b.Pending {
			return true
		}
	}
	return false
}

// ProductInfo is the per-product payload sent when generating a routine.
type ProductInfo struct {
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// Session is one visitor's conversation. History starts with the system
// prompt and only grows. Exchanges on the same session are not serialized
// against each other: a second submission while one is in flight shows a
// second placeholder and replies land in completion order.
type Session struct {
	id        string
	completer Completer
	logger    *slog.Logger

	mu           sync.Mutex
	history      []proxy.Message
	window       []Bubble
	nextBubble   int
	lastQuestion string
}

// SessionOption configures a Session.
type SessionOption func(*sessionConfig)

type sessionConfig struct {
	pick func(n int) int
}

// WithPicker replaces the random greeting choice.
func WithPicker(pick func(n int) int) SessionOption {
	return func(c *sessionConfig) { c.pick = pick }
}

// NewSession starts a conversation seeded with the system prompt and shows a
// greeting.
func NewSession(id string, completer Completer, opts ...SessionOption) *Session {
	cfg := sessionConfig{pick: rand.IntN}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Session{
		id:        id,
		completer: completer,
		logger:    slog.Default().With("session", id),
		history:   []proxy.Message{{Role: proxy.RoleSystem, Content: SystemPrompt}},
	}
	s.addBubbleLocked(SenderBot, Greetings[cfg.pick(len(Greetings))], false)
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Submit sends a user message and waits for the reply. Blank input is
// ignored.
func (s *Session) Submit(ctx context.Context, text string) Outcome {
	x, outcome := s.StartSubmit(text)
	if x == nil {
		return outcome
	}
	return x.Wait(ctx)
}

// StartSubmit records a user message and shows the placeholder, returning
// the exchange to wait on. Blank input returns a nil Exchange and
// OutcomeIgnored.
func (s *Session) StartSubmit(text string) (*Exchange, Outcome) {
	prompt := strings.TrimSpace(text)
	if prompt == "" {
		return nil, OutcomeIgnored
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, proxy.Message{Role: proxy.RoleUser, Content: prompt})
	s.addBubbleLocked(SenderUser, prompt, false)
	s.lastQuestion = prompt
	return s.beginLocked(), OutcomePending
}

// GenerateRoutine asks the assistant for a routine built from products and
// waits for the reply. With no products it shows guidance and makes no
// remote call.
func (s *Session) GenerateRoutine(ctx context.Context, products []catalog.Product) Outcome {
	x, outcome := s.StartRoutine(products)
	if x == nil {
		return outcome
	}
	return x.Wait(ctx)
}

// StartRoutine is the first half of GenerateRoutine. It returns a nil
// Exchange when there is nothing to send.
func (s *Session) StartRoutine(products []catalog.Product) (*Exchange, Outcome) {
	if len(products) == 0 {
		s.Notify(EmptySelectionText)
		return nil, OutcomeEmptySelection
	}

	content, err := RoutinePrompt(products)
	if err != nil {
		s.logger.Error("building routine prompt", "error", err)
		s.Notify(FailureText)
		return nil, OutcomeFailed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.addBubbleLocked(SenderBot, GeneratingText, false)
	s.history = append(s.history, proxy.Message{Role: proxy.RoleUser, Content: content})
	return s.beginLocked(), OutcomePending
}

// Notify shows a bot bubble that is not part of the conversation.
func (s *Session) Notify(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addBubbleLocked(SenderBot, text, false)
}

// RoutinePrompt renders the user message that asks for a routine.
func RoutinePrompt(products []catalog.Product) (string, error) {
	infos := make([]ProductInfo, len(products))
	for i, p := range products {
		infos[i] = ProductInfo{
			Name:        p.Name,
			Brand:       p.Brand,
			Category:    p.Category,
			Description: p.Description,
		}
	}
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding selected products: %w", err)
	}
	return routinePreamble + string(data) + routineRequest, nil
}

// Exchange is a request whose placeholder is already showing.
type Exchange struct {
	s           *Session
	placeholder int
	history     []proxy.Message
}

func (s *Session) beginLocked() *Exchange {
	history := make([]proxy.Message, len(s.history))
	copy(history, s.history)
	return &Exchange{
		s:           s,
		placeholder: s.addBubbleLocked(SenderBot, ThinkingText, true),
		history:     history,
	}
}

// Wait posts the history and shows the reply. The placeholder bubble is
// removed whatever the outcome. Wait must be called once.
func (x *Exchange) Wait(ctx context.Context) Outcome {
	s := x.s
	reply, err := s.completer.Complete(ctx, x.history)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeBubbleLocked(x.placeholder)

	switch {
	case err == nil:
		s.history = append(s.history, proxy.Message{Role: proxy.RoleAssistant, Content: reply})
		s.addBubbleLocked(SenderBot, reply, false)
		return OutcomeReplied
	case errors.Is(err, proxy.ErrMalformedResponse):
		s.logger.Warn("chat endpoint returned an invalid reply")
		s.addBubbleLocked(SenderBot, InvalidReplyText, false)
		return OutcomeInvalidReply
	default:
		s.logger.Error("chat exchange failed", "error", err)
		s.addBubbleLocked(SenderBot, FailureText, false)
		return OutcomeFailed
	}
}

func (s *Session) addBubbleLocked(sender Sender, text string, pending bool) int {
	s.nextBubble++
	s.window = append(s.window, Bubble{ID: s.nextBubble, Sender: sender, Text: text, Pending: pending})
	return s.nextBubble
}

func (s *Session) removeBubbleLocked(id int) {
	for i, b := range s.window {
		if b.ID == id {
			s.window = append(s.window[:i], s.window[i+1:]...)
			return
		}
	}
}

// History returns a copy of the conversation sent to the endpoint.
func (s *Session) History() []proxy.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]proxy.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Window returns a copy of the chat window.
func (s *Session) Window() []Bubble {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Bubble, len(s.window))
	copy(out, s.window)
	return out
}

// Snapshot returns the window, history and last question together.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:           s.id,
		Window:       make([]Bubble, len(s.window)),
		History:      make([]proxy.Message, len(s.history)),
		LastQuestion: s.lastQuestion,
	}
	copy(snap.Window, s.window)
	copy(snap.History, s.history)
	return snap
}
