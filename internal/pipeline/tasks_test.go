package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/fexlab/auviz/internal/config"
	"github.com/fexlab/auviz/pkg/util"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg, err := config.Load(filepath.Join(root, "no-config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.CSVRoot = filepath.Join(root, "smoothed")
	cfg.VideoRoot = filepath.Join(root, "video")
	cfg.Cleanup.Root = filepath.Join(root, "dataset")
	cfg.Workers = 1
	cfg.Render.DPI = 10
	return cfg
}

func addActorCSVs(t *testing.T, cfg *config.Config, actor int, names ...string) {
	t.Helper()
	dir := filepath.Join(cfg.CSVRoot, util.ActorDir(actor))
	if err := util.EnsureDir(dir); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("stub"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestEnumerateTasks(t *testing.T) {
	cfg := testConfig(t)
	cfg.ActorStart, cfg.ActorEnd = 1, 3
	addActorCSVs(t, cfg, 1, "01-01.csv", "01-02.csv")
	addActorCSVs(t, cfg, 2, "02-01.csv")

	tasks, err := EnumerateTasks(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("EnumerateTasks failed: %v", err)
	}

	if len(tasks) != 3 {
		t.Fatalf("got %d tasks, want 3", len(tasks))
	}

	want := filepath.Join(cfg.VideoRoot, "Actor_01", "01-01.mp4")
	if tasks[0].VideoPath != want {
		t.Errorf("first video path %q, want %q", tasks[0].VideoPath, want)
	}

	// output actor directories are created during enumeration
	for _, actor := range []string{"Actor_01", "Actor_02"} {
		if !util.FileExists(filepath.Join(cfg.VideoRoot, actor)) {
			t.Errorf("output folder for %s was not created", actor)
		}
	}
}

func TestEnumerateTasksSongModeSkipsActor18(t *testing.T) {
	cfg := testConfig(t)
	cfg.ActorStart, cfg.ActorEnd = 17, 20
	cfg.SongMode = true
	addActorCSVs(t, cfg, 17, "a.csv")
	addActorCSVs(t, cfg, 19, "b.csv")
	// no Actor_18 input dir on disk; song mode must not even look

	tasks, err := EnumerateTasks(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("EnumerateTasks failed: %v", err)
	}

	if len(tasks) != 2 {
		t.Fatalf("got %d tasks, want 2", len(tasks))
	}
	for _, task := range tasks {
		if filepath.Base(filepath.Dir(task.CSVPath)) == "Actor_18" {
			t.Errorf("actor 18 task present in song mode: %+v", task)
		}
	}
}

func TestEnumerateTasksWithoutSongModeVisitsActor18(t *testing.T) {
	cfg := testConfig(t)
	cfg.ActorStart, cfg.ActorEnd = 18, 19

	// input dir missing and song mode off: hard enumeration error
	if _, err := EnumerateTasks(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing input folder")
	}
}

func TestEnumerateTasksMissingInputDir(t *testing.T) {
	cfg := testConfig(t)
	cfg.ActorStart, cfg.ActorEnd = 1, 2

	if _, err := EnumerateTasks(cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected error for missing input folder")
	}
}

func TestEnumerateTasksSkipsSubdirectories(t *testing.T) {
	cfg := testConfig(t)
	cfg.ActorStart, cfg.ActorEnd = 1, 2
	addActorCSVs(t, cfg, 1, "x.csv")
	if err := util.EnsureDir(filepath.Join(cfg.CSVRoot, "Actor_01", "nested")); err != nil {
		t.Fatal(err)
	}

	tasks, err := EnumerateTasks(cfg, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 {
		t.Errorf("got %d tasks, want 1", len(tasks))
	}
}
