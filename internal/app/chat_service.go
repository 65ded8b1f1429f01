package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"gopherai-chat/internal/ai"
	"gopherai-chat/internal/cache"
	"gopherai-chat/internal/model"
	"gopherai-chat/internal/pkg/convtrim"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSessionNotFound  = errors.New("session not found")
	ErrMessageEmpty     = errors.New("message content is empty")
	ErrCompletionFailed = errors.New("completion failed")
)

type ChatStore interface {
	ListSessions(ctx context.Context) ([]model.Session, error)
	ListMessages(ctx context.Context, sessionID string) ([]model.Message, error)
	InsertSession(ctx context.Context, session *model.Session) error
	UpdateSession(ctx context.Context, session *model.Session) error
	InsertMessage(ctx context.Context, message *model.Message) (*model.Message, error)
	UpsertMessages(ctx context.Context, messages ...model.Message) error
	DeleteSessionAndMessages(ctx context.Context, sessionID string) error
}

type Completer interface {
	Ask(ctx context.Context, sessionID, conversation string) (*ai.Completion, error)
	Summarize(ctx context.Context, sessionID, prompt string) (string, error)
	MaxTokens() int
}

type UsagePublisher interface {
	PublishUsage(ctx context.Context, usage model.TokenUsage) error
}

// ChatService serves sessions and messages out of an in-memory cache, loading
// from the store lazily and writing every mutation through to it.
//
// The cache is updated before the store. When a store write fails the error
// is returned and the cache keeps the change; nothing reconciles the two
// until the next ListSessions refresh.
type ChatService struct {
	store     ChatStore
	completer Completer
	trimmer   convtrim.Trimmer
	publisher UsagePublisher
	model     string
	sessions  *cache.SessionCache
}

// NewChatService treats a nil trimmer as Chars. publisher may be nil.
func NewChatService(
	store ChatStore,
	completer Completer,
	trimmer convtrim.Trimmer,
	publisher UsagePublisher,
	modelName string,
) *ChatService {
	if trimmer == nil {
		trimmer = convtrim.Chars{}
	}
	return &ChatService{
		store:     store,
		completer: completer,
		trimmer:   trimmer,
		publisher: publisher,
		model:     modelName,
		sessions:  cache.NewSessionCache(),
	}
}

// Cached messages are dropped and load again on demand.
func (s *ChatService) ListSessions(ctx context.Context) ([]model.Session, error) {
	sessions, err := s.store.ListSessions(ctx)
	if err != nil {
		return nil, err
	}
	s.sessions.Replace(sessions)
	return s.sessions.Snapshot(), nil
}

func (s *ChatService) CachedSessions() []model.Session {
	return s.sessions.Snapshot()
}

func (s *ChatService) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidInput
	}
	session, release, ok := s.sessions.Acquire(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	defer release()

	record := session.Record()
	return &record, nil
}

// An unknown session yields an empty list.
func (s *ChatService) GetMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, ErrInvalidInput
	}
	session, release, ok := s.sessions.Acquire(sessionID)
	if !ok {
		return []model.Message{}, nil
	}
	defer release()

	if err := s.loadMessages(ctx, session); err != nil {
		return nil, err
	}
	out := make([]model.Message, len(session.Messages))
	copy(out, session.Messages)
	return out, nil
}

func (s *ChatService) CreateSession(ctx context.Context) (*model.Session, error) {
	session := model.NewSession()
	s.sessions.Add(session)

	record := session.Record()
	if err := s.store.InsertSession(ctx, &record); err != nil {
		return nil, err
	}
	log.Debug().Str("session_id", session.ID).Msg("session created")
	return &record, nil
}

func (s *ChatService) RenameSession(ctx context.Context, sessionID, name string) (*model.Session, error) {
	name = strings.TrimSpace(name)
	if strings.TrimSpace(sessionID) == "" || name == "" {
		return nil, ErrInvalidInput
	}
	session, release, ok := s.sessions.Acquire(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	defer release()

	session.Name = name
	record := session.Record()
	if err := s.store.UpdateSession(ctx, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *ChatService) DeleteSession(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrInvalidInput
	}
	if !s.sessions.Remove(sessionID) {
		return ErrSessionNotFound
	}
	if err := s.store.DeleteSessionAndMessages(ctx, sessionID); err != nil {
		return err
	}
	log.Debug().Str("session_id", sessionID).Msg("session deleted")
	return nil
}

func (s *ChatService) Ask(ctx context.Context, sessionID, prompt string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidInput
	}
	if strings.TrimSpace(prompt) == "" {
		return "", ErrMessageEmpty
	}
	session, release, ok := s.sessions.Acquire(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}
	defer release()

	if err := s.loadMessages(ctx, session); err != nil {
		return "", err
	}

	promptMessage := model.NewMessage(sessionID, model.RoleUser, 0, prompt)
	session.AddMessage(promptMessage)
	if _, err := s.store.InsertMessage(ctx, &promptMessage); err != nil {
		return "", err
	}

	conversation, err := s.conversation(session)
	if err != nil {
		return "", err
	}

	completion, err := s.completer.Ask(ctx, sessionID, conversation)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}

	reply := model.NewMessage(sessionID, model.RoleAssistant, completion.ResponseTokens, completion.Text)
	session.AddMessage(reply)

	promptMessage.Tokens = completion.PromptTokens
	if err := session.UpdateMessage(promptMessage); err != nil {
		return "", fmt.Errorf("update prompt message failed: %w", err)
	}
	if err := s.store.UpsertMessages(ctx, promptMessage, reply); err != nil {
		return "", err
	}

	s.publishUsage(ctx, reply, completion)
	return completion.Text, nil
}

func (s *ChatService) SummarizeAndRename(ctx context.Context, sessionID, prompt string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", ErrInvalidInput
	}
	if !s.sessions.Contains(sessionID) {
		return "", ErrSessionNotFound
	}

	summary, err := s.completer.Summarize(ctx, sessionID, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCompletionFailed, err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("%w: empty summary", ErrCompletionFailed)
	}
	if _, err := s.RenameSession(ctx, sessionID, summary); err != nil {
		return "", err
	}
	return summary, nil
}

func (s *ChatService) ConversationBudget() int {
	return s.completer.MaxTokens() / 2
}

func (s *ChatService) loadMessages(ctx context.Context, session *model.Session) error {
	if len(session.Messages) > 0 {
		return nil
	}
	messages, err := s.store.ListMessages(ctx, session.ID)
	if err != nil {
		return err
	}
	session.Messages = messages
	return nil
}

func (s *ChatService) conversation(session *model.Session) (string, error) {
	texts := make([]string, len(session.Messages))
	for i, m := range session.Messages {
		texts[i] = m.Text
	}
	trimmed, err := s.trimmer.Trim(convtrim.Join(texts), s.ConversationBudget())
	if err != nil {
		return "", fmt.Errorf("trim conversation failed: %w", err)
	}
	return trimmed, nil
}

func (s *ChatService) publishUsage(ctx context.Context, reply model.Message, completion *ai.Completion) {
	if s.publisher == nil {
		return
	}
	usage := model.TokenUsage{
		SessionID:        reply.SessionID,
		MessageID:        reply.ID,
		Model:            s.model,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.ResponseTokens,
		TotalTokens:      completion.PromptTokens + completion.ResponseTokens,
	}
	if err := s.publisher.PublishUsage(ctx, usage); err != nil {
		log.Warn().Err(err).Str("session_id", reply.SessionID).Msg("publish token usage failed")
	}
}
