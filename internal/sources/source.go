// Package sources fetches upcoming contests from each platform and
// normalizes them into contest.Contest records.
package sources

import (
	"context"
	"time"

	"github.com/user/contestcal/internal/config"
	"github.com/user/contestcal/internal/contest"
	"github.com/user/contestcal/pkg/logger"
)

// Source fetches only future contests for one platform.
type Source interface {
	Platform() contest.Platform
	Fetch(ctx context.Context) ([]contest.Contest, error)
}

// Clock returns the current instant. Sources that filter on "now" take one
// so tests can pin it.
type Clock func() time.Time

// New builds every enabled source from configuration.
func New(cfg config.SourcesConfig, now Clock) []Source {
	if now == nil {
		now = time.Now
	}

	var list []Source
	if cfg.Codeforces.Enabled {
		list = append(list, NewCodeforces(cfg.Codeforces))
	}
	if cfg.LeetCode.Enabled {
		list = append(list, NewLeetCode(cfg.LeetCode, now))
	}
	if cfg.CodeChef.Enabled {
		list = append(list, NewCodeChef(cfg.CodeChef))
	}

	platforms := make([]string, 0, len(list))
	for _, s := range list {
		platforms = append(platforms, string(s.Platform()))
	}
	logger.Info().Strs("platforms", platforms).Msg("Contest sources configured")

	return list
}
