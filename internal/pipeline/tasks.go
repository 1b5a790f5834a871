package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/fexlab/auviz/internal/config"
	"github.com/fexlab/auviz/pkg/util"
)

// Actor 18 has no song recordings in the dataset, so song-mode runs
// skip it entirely.
const songlessActor = 18

// EnumerateTasks walks the configured actor range and builds the static
// task list: one task per CSV file, with the output video mirroring the
// actor subdirectory layout under the video root. Missing output actor
// directories are created here; a missing input actor directory fails
// the enumeration.
func EnumerateTasks(cfg *config.Config, logger zerolog.Logger) ([]Task, error) {
	var tasks []Task

	for actor := cfg.ActorStart; actor < cfg.ActorEnd; actor++ {
		if cfg.SongMode && actor == songlessActor {
			continue
		}

		folder := util.ActorDir(actor)
		csvDir := filepath.Join(cfg.CSVRoot, folder)
		videoDir := filepath.Join(cfg.VideoRoot, folder)

		if !util.FileExists(videoDir) {
			if err := util.EnsureDir(videoDir); err != nil {
				return nil, fmt.Errorf("failed to create output folder %s: %w", videoDir, err)
			}
			logger.Info().Str("folder", videoDir).Msg("created output folder")
		}

		entries, err := os.ReadDir(csvDir)
		if err != nil {
			return nil, fmt.Errorf("failed to list input folder %s: %w", csvDir, err)
		}

		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			csvPath := filepath.Join(csvDir, entry.Name())
			videoPath := filepath.Join(videoDir, util.BaseName(entry.Name())+".mp4")
			tasks = append(tasks, Task{CSVPath: csvPath, VideoPath: videoPath})
		}
	}

	return tasks, nil
}
