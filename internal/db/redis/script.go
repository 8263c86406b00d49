package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/discovery/internal/db"
)

// EvalInt runs a Lua script via EVALSHA, falling back to EVAL on NOSCRIPT.
func (s *Store) EvalInt(ctx context.Context, script *db.Script, keys, args []string) (int64, error) {
	n, err := s.lua(script.Body).Exec(ctx, s.client, keys, args).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpEval + " " + script.Name, Err: err}
	}
	return n, nil
}

func (s *Store) lua(body string) *rueidis.Lua {
	if l, ok := s.scripts.Load(body); ok {
		return l.(*rueidis.Lua)
	}
	l, _ := s.scripts.LoadOrStore(body, rueidis.NewLuaScript(body))
	return l.(*rueidis.Lua)
}
