// Package chat runs the per-incident AI assistant conversation. Chat turns
// are not a separate table: each one is an incident log of type "chat" with
// the IsAI flag distinguishing assistant turns, so the transcript shows up
// in the same list the timeline and report builders consume.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/calegrette/leaseguard/internal/ai"
	"github.com/calegrette/leaseguard/internal/incident"
)

const systemPrompt = "You are a tenant-rights assistant helping a renter document and resolve a rental dispute. " +
	"Be practical and specific; when the tenant describes events, suggest what evidence to capture and which follow-up steps to take."

type Service struct {
	incidents         *incident.Service
	registry          *ai.Registry
	providerName      string
	model             string
	contextWindowSize int
}

func NewService(incidents *incident.Service, registry *ai.Registry, providerName, model string, contextWindowSize int) *Service {
	if contextWindowSize <= 0 || contextWindowSize > 100 {
		contextWindowSize = 20
	}
	return &Service{
		incidents:         incidents,
		registry:          registry,
		providerName:      providerName,
		model:             model,
		contextWindowSize: contextWindowSize,
	}
}

func (s *Service) provider(ctx context.Context) (ai.Provider, error) {
	return s.registry.Get(ctx, s.providerName, s.model)
}

// buildContext turns the most recent chat logs into provider messages,
// oldest first, with the system prompt at the head.
func (s *Service) buildContext(ctx context.Context, incidentID uint64) ([]ai.Message, error) {
	recentDesc, err := s.incidents.RecentChatLogsDesc(ctx, incidentID, s.contextWindowSize)
	if err != nil {
		return nil, err
	}
	msgs := make([]ai.Message, 0, len(recentDesc)+1)
	msgs = append(msgs, ai.Message{Role: "system", Content: systemPrompt})
	for i := len(recentDesc) - 1; i >= 0; i-- {
		l := recentDesc[i]
		role := "user"
		if l.IsAI {
			role = "assistant"
		}
		msgs = append(msgs, ai.Message{Role: role, Content: l.Content})
	}
	return msgs, nil
}

func (s *Service) insertChatLog(ctx context.Context, incidentID uint64, content string, isAI bool) (*incident.Log, error) {
	l := &incident.Log{
		IncidentID: incidentID,
		Type:       incident.LogChat,
		Content:    content,
		IsAI:       isAI,
	}
	if err := s.incidents.AddLog(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// SendMessage stores the user's turn, asks the provider for a reply with the
// recent conversation as context, and stores the assistant's turn.
func (s *Service) SendMessage(ctx context.Context, userID, incidentID uint64, content string) (reply string, assistantLogID uint64, err error) {
	if strings.TrimSpace(content) == "" {
		return "", 0, errors.New("empty message")
	}

	// 1) verify incident ownership
	if _, err := s.incidents.GetOwned(ctx, userID, incidentID); err != nil {
		return "", 0, err
	}

	provider, err := s.provider(ctx)
	if err != nil {
		return "", 0, err
	}

	// 2) store user turn (strong consistency)
	if _, err := s.insertChatLog(ctx, incidentID, content, false); err != nil {
		return "", 0, err
	}

	// 3) build provider messages from recent history
	providerMsgs, err := s.buildContext(ctx, incidentID)
	if err != nil {
		return "", 0, err
	}

	// 4) call provider
	reply, err = provider.Chat(ctx, providerMsgs)
	if err != nil {
		return "", 0, err
	}

	// 5) store assistant turn
	assistantLog, err := s.insertChatLog(ctx, incidentID, reply, true)
	if err != nil {
		return "", 0, err
	}

	return reply, assistantLog.ID, nil
}

// SendMessageStream stores the user turn immediately, streams assistant
// chunks, and stores the assistant turn after streaming completes.
func (s *Service) SendMessageStream(ctx context.Context, userID, incidentID uint64, content string) (chunks <-chan string, done <-chan struct{}, assistantLogID <-chan uint64, errs <-chan error) {
	outChunks := make(chan string, 16)
	outDone := make(chan struct{})
	outLogID := make(chan uint64, 1)
	outErrs := make(chan error, 1)

	go func() {
		defer close(outChunks)
		defer close(outDone)
		defer close(outLogID)
		defer close(outErrs)

		if strings.TrimSpace(content) == "" {
			outErrs <- errors.New("empty message")
			return
		}

		if _, err := s.incidents.GetOwned(ctx, userID, incidentID); err != nil {
			outErrs <- err
			return
		}

		provider, err := s.provider(ctx)
		if err != nil {
			outErrs <- err
			return
		}

		if _, err := s.insertChatLog(ctx, incidentID, content, false); err != nil {
			outErrs <- err
			return
		}

		providerMsgs, err := s.buildContext(ctx, incidentID)
		if err != nil {
			outErrs <- err
			return
		}

		sp, ok := provider.(ai.StreamProvider)
		if !ok {
			outErrs <- errors.New("provider does not support streaming")
			return
		}

		pChunks, pErrs := sp.StreamChat(ctx, providerMsgs)

		var b strings.Builder
		for c := range pChunks {
			b.WriteString(c)
			outChunks <- c
		}

		// provider error (if any)
		select {
		case err := <-pErrs:
			if err != nil {
				outErrs <- err
				return
			}
		default:
			// no error sent
		}

		assistantLog, err := s.insertChatLog(ctx, incidentID, b.String(), true)
		if err != nil {
			outErrs <- err
			return
		}

		outLogID <- assistantLog.ID
	}()

	return outChunks, outDone, outLogID, outErrs
}
