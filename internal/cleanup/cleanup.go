// Package cleanup removes video-only recordings from the dataset tree.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/fexlab/auviz/internal/config"
	"github.com/fexlab/auviz/pkg/util"
)

// Run deletes every file matching the configured pattern in each actor
// directory and returns the number of deletions. The first removal or
// glob error aborts the run; deletions already made stay deleted.
func Run(cfg *config.Config, logger zerolog.Logger) (int, error) {
	deleted := 0

	for actor := cfg.Cleanup.ActorStart; actor < cfg.Cleanup.ActorEnd; actor++ {
		dir := filepath.Join(cfg.Cleanup.Root, util.ActorDir(actor))
		pattern := filepath.Join(dir, cfg.Cleanup.Pattern)

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return deleted, fmt.Errorf("bad glob pattern %s: %w", pattern, err)
		}

		for _, path := range matches {
			if err := os.Remove(path); err != nil {
				return deleted, fmt.Errorf("failed to delete %s: %w", path, err)
			}
			logger.Info().Str("file", path).Msg("deleted")
			deleted++
		}
	}

	logger.Info().Int("deleted", deleted).Msg("cleanup complete")
	return deleted, nil
}
