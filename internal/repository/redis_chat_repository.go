package repository

import (
	"context"
	"encoding/json"
	"fmt"

	redisv9 "github.com/redis/go-redis/v9"

	"gopherai-chat/internal/model"
)

// RedisChatRepository stores one JSON document per session and per message,
// partitioned by session id:
//
//	<prefix>:sessions                 zset of session ids, scored by creation time
//	<prefix>:session:<id>             session document
//	<prefix>:session:<id>:messages    zset of message ids, scored by timestamp
//	<prefix>:session:<id>:docs        hash of message id to message document
type RedisChatRepository struct {
	client redisv9.UniversalClient
	prefix string
}

func NewRedisChatRepository(client redisv9.UniversalClient, prefix string) *RedisChatRepository {
	if prefix == "" {
		prefix = "chat"
	}
	return &RedisChatRepository{client: client, prefix: prefix}
}

func (r *RedisChatRepository) ListSessions(ctx context.Context) ([]model.Session, error) {
	ids, err := r.client.ZRange(ctx, r.sessionsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list sessions failed: %w", err)
	}
	if len(ids) == 0 {
		return []model.Session{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.sessionKey(id)
	}
	raws, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get sessions failed: %w", err)
	}

	sessions := make([]model.Session, 0, len(raws))
	for _, raw := range raws {
		doc, ok := raw.(string)
		if !ok {
			continue
		}
		var session model.Session
		if err := json.Unmarshal([]byte(doc), &session); err != nil {
			return nil, fmt.Errorf("unmarshal session failed: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, nil
}

func (r *RedisChatRepository) InsertSession(ctx context.Context, session *model.Session) error {
	payload, err := json.Marshal(session.Record())
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.Set(ctx, r.sessionKey(session.ID), payload, 0)
		pipe.ZAdd(ctx, r.sessionsKey(), redisv9.Z{
			Score:  float64(session.CreatedAt.UnixMicro()),
			Member: session.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis create session failed: %w", err)
	}
	return nil
}

func (r *RedisChatRepository) UpdateSession(ctx context.Context, session *model.Session) error {
	payload, err := json.Marshal(session.Record())
	if err != nil {
		return fmt.Errorf("marshal session failed: %w", err)
	}
	if err := r.client.Set(ctx, r.sessionKey(session.ID), payload, 0).Err(); err != nil {
		return fmt.Errorf("redis update session failed: %w", err)
	}
	return nil
}

func (r *RedisChatRepository) DeleteSessionAndMessages(ctx context.Context, sessionID string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		pipe.ZRem(ctx, r.sessionsKey(), sessionID)
		pipe.Del(ctx, r.sessionKey(sessionID), r.messagesKey(sessionID), r.docsKey(sessionID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete session failed: %w", err)
	}
	return nil
}

func (r *RedisChatRepository) ListMessages(ctx context.Context, sessionID string) ([]model.Message, error) {
	ids, err := r.client.ZRange(ctx, r.messagesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list messages failed: %w", err)
	}
	if len(ids) == 0 {
		return []model.Message{}, nil
	}

	raws, err := r.client.HMGet(ctx, r.docsKey(sessionID), ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get messages failed: %w", err)
	}

	messages := make([]model.Message, 0, len(raws))
	for _, raw := range raws {
		doc, ok := raw.(string)
		if !ok {
			continue
		}
		var message model.Message
		if err := json.Unmarshal([]byte(doc), &message); err != nil {
			return nil, fmt.Errorf("unmarshal message failed: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (r *RedisChatRepository) InsertMessage(ctx context.Context, message *model.Message) (*model.Message, error) {
	if err := r.UpsertMessages(ctx, *message); err != nil {
		return nil, err
	}
	stored := *message
	return &stored, nil
}

// UpsertMessages writes every message in one MULTI/EXEC block. Existing
// messages keep their position.
func (r *RedisChatRepository) UpsertMessages(ctx context.Context, messages ...model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	type doc struct {
		message model.Message
		payload []byte
	}
	docs := make([]doc, 0, len(messages))
	for _, m := range messages {
		payload, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message failed: %w", err)
		}
		docs = append(docs, doc{message: m, payload: payload})
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redisv9.Pipeliner) error {
		for _, d := range docs {
			pipe.HSet(ctx, r.docsKey(d.message.SessionID), d.message.ID, d.payload)
			pipe.ZAddNX(ctx, r.messagesKey(d.message.SessionID), redisv9.Z{
				Score:  float64(d.message.TimeStamp.UnixMicro()),
				Member: d.message.ID,
			})
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis upsert messages failed: %w", err)
	}
	return nil
}

func (r *RedisChatRepository) sessionsKey() string {
	return r.prefix + ":sessions"
}

func (r *RedisChatRepository) sessionKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", r.prefix, sessionID)
}

func (r *RedisChatRepository) messagesKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s:messages", r.prefix, sessionID)
}

func (r *RedisChatRepository) docsKey(sessionID string) string {
	return fmt.Sprintf("%s:session:%s:docs", r.prefix, sessionID)
}
