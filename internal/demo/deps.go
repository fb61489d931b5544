package demo

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"
)

// DefaultCatalog is searched by DefaultDeps.
var DefaultCatalog = []string{"apple", "apricot", "banana", "blueberry", "cherry", "grape"}

// Timing of the demo effects.
const (
	SearchDebounce = 300 * time.Millisecond
	SaveThrottle   = time.Second
	AutosaveDelay  = 500 * time.Millisecond
	AsyncValue     = 42
)

// Deps are the App's collaborators.
type Deps struct {
	// Search returns matches for query. Must honor ctx.
	Search func(ctx context.Context, query string) ([]string, error)
	Logger *slog.Logger
}

// DefaultDeps searches catalog case-insensitively by substring.
func DefaultDeps(catalog []string, logger *slog.Logger) Deps {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	items := append([]string(nil), catalog...)
	sort.Strings(items)
	return Deps{
		Search: func(ctx context.Context, query string) ([]string, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			q := strings.ToLower(query)
			out := []string{}
			for _, item := range items {
				if strings.Contains(strings.ToLower(item), q) {
					out = append(out, item)
				}
			}
			return out, nil
		},
		Logger: logger,
	}
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}
