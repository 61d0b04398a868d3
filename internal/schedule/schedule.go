// Package schedule wires cron with the logging facade. Jobs run with
// skip-if-still-running semantics, so a slow tick is never overlapped
// by the next one.
package schedule

import (
	"github.com/robfig/cron/v3"

	"herdwatch/pkg/logx"
)

func New(log logx.Logger) *cron.Cron {
	cl := cronLog{log: log}
	return cron.New(
		cron.WithChain(cron.SkipIfStillRunning(cl)),
		cron.WithLogger(cl),
	)
}

type cronLog struct {
	log logx.Logger
}

func (c cronLog) Info(msg string, keysAndValues ...any) {
	c.log.Debug(msg, fields(keysAndValues)...)
}

func (c cronLog) Error(err error, msg string, keysAndValues ...any) {
	c.log.Error(msg, append(fields(keysAndValues), logx.Err(err))...)
}

func fields(kv []any) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
