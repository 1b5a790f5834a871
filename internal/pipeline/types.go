package pipeline

// Task is one CSV-to-video unit of work. Immutable once built.
type Task struct {
	CSVPath   string
	VideoPath string
}

// FrameError records one frame that failed to plot within a task
type FrameError struct {
	Frame  int
	Reason string
}

// Result is the structured outcome of one rendered task
type Result struct {
	Task          Task
	Skipped       bool
	TotalFrames   int
	FramesWritten int
	Failed        []FrameError
}

// RunStats aggregates outcomes across a batch run
type RunStats struct {
	Total         int
	Rendered      int
	Skipped       int
	Failed        int
	FramesWritten int
	FramesFailed  int
}
