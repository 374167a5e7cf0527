// Package redisstore implements the session repository on Redis. Sessions
// are JSON documents; the conditional write runs under WATCH/MULTI.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/misaelnieto/itm-2025-soa-u5/internal/domain"
	"github.com/misaelnieto/itm-2025-soa-u5/internal/session"
)

const (
	seqKey   = "ajedrez:session:seq"
	indexKey = "ajedrez:sessions"
)

func sessionKey(id int64) string { return "ajedrez:session:" + strconv.FormatInt(id, 10) }

// Store is a session.Repository backed by Redis.
type Store struct {
	rdb     *redis.Client
	timeout time.Duration
	now     func() time.Time
}

var _ session.Repository = (*Store)(nil)

// Open parses redisURL, connects and pings.
func Open(ctx context.Context, redisURL string, timeout time.Duration) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required for the redis store")
	}
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb, timeout: timeout, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func parseRedisURL(raw string) (*redis.Options, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if u.Scheme != "redis" && u.Scheme != "rediss" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	db := 0
	if p := strings.TrimPrefix(u.Path, "/"); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q", p)
		}
		db = n
	}
	pass, _ := u.User.Password()
	return &redis.Options{Addr: u.Host, Username: u.User.Username(), Password: pass, DB: db}, nil
}

// record is the stored JSON form. Timestamps are unix millis.
type record struct {
	ID          int64  `json:"id"`
	WhitePlayer int64  `json:"white_player"`
	BlackPlayer int64  `json:"black_player"`
	State       string `json:"state"`
	FEN         string `json:"fen_state"`
	PGN         string `json:"pgn_state"`
	Version     int64  `json:"version"`
	Created     *int64 `json:"created,omitempty"`
	Updated     *int64 `json:"updated,omitempty"`
}

func toRecord(s *domain.Session) record {
	r := record{
		ID:          s.ID,
		WhitePlayer: s.WhitePlayer,
		BlackPlayer: s.BlackPlayer,
		State:       s.State.String(),
		FEN:         s.FEN,
		PGN:         s.PGN,
		Version:     s.Version,
	}
	if s.Created != nil {
		ms := s.Created.UTC().UnixMilli()
		r.Created = &ms
	}
	if s.Updated != nil {
		ms := s.Updated.UTC().UnixMilli()
		r.Updated = &ms
	}
	return r
}

func (r record) session() (*domain.Session, error) {
	st, err := domain.ParseState(r.State)
	if err != nil {
		return nil, fmt.Errorf("decode session %d: %w", r.ID, err)
	}
	s := &domain.Session{
		ID:          r.ID,
		WhitePlayer: r.WhitePlayer,
		BlackPlayer: r.BlackPlayer,
		State:       st,
		FEN:         r.FEN,
		PGN:         r.PGN,
		Version:     r.Version,
	}
	if r.Created != nil {
		t := time.UnixMilli(*r.Created).UTC()
		s.Created = &t
	}
	if r.Updated != nil {
		t := time.UnixMilli(*r.Updated).UTC()
		s.Updated = &t
	}
	return s, nil
}

func decode(raw []byte) (*domain.Session, error) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return r.session()
}

func (s *Store) Create(ctx context.Context, whitePlayer, blackPlayer int64) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	id, err := s.rdb.Incr(ctx, seqKey).Result()
	if err != nil {
		return nil, fmt.Errorf("allocate session id: %w", err)
	}
	now := time.UnixMilli(s.now().UnixMilli()).UTC()
	sess := session.NewSession(whitePlayer, blackPlayer, now)
	sess.ID = id
	created, updated := now, now
	sess.Created = &created
	sess.Updated = &updated

	raw, err := json.Marshal(toRecord(sess))
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, sessionKey(id), raw, 0)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(id), Member: id})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

func (s *Store) List(ctx context.Context, limit int) ([]*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	limit = session.NormalizeLimit(limit)
	ids, err := s.rdb.ZRange(ctx, indexKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Session{}, nil
	}
	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid session index member %q", raw)
		}
		keys = append(keys, sessionKey(id))
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	out := make([]*domain.Session, 0, len(vals))
	for _, v := range vals {
		str, ok := v.(string)
		if !ok {
			continue
		}
		sess, err := decode([]byte(str))
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}
	return decode(raw)
}

func (s *Store) ConditionalUpdate(ctx context.Context, upd session.Update) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	key := sessionKey(upd.ID)
	var affected int64
	err := s.rdb.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var cur record
		if err := json.Unmarshal(raw, &cur); err != nil {
			return fmt.Errorf("unmarshal session: %w", err)
		}
		if cur.Version != upd.ExpectedVersion {
			return nil
		}
		cur.State = upd.State.String()
		cur.FEN = upd.FEN
		cur.PGN = upd.PGN
		cur.Version++
		ms := s.now().UTC().UnixMilli()
		cur.Updated = &ms
		next, err := json.Marshal(cur)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, next, 0)
			return nil
		})
		if err != nil {
			return err
		}
		affected = 1
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("update session %d: %w", upd.ID, err)
	}
	return affected, nil
}
