package obs

import (
	"context"
	"time"
)

// Time logs the duration of op when the returned func is deferred.
// Pass a pointer to the named error result to have failures recorded.
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	log := Logger(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Warn().Str("op", name).Int64("dur_ms", dur.Milliseconds()).Err(*errp).Msg("op failed")
			return
		}
		log.Debug().Str("op", name).Int64("dur_ms", dur.Milliseconds()).Msg("op done")
	}
}
