package worker

// Status is the outcome class of one video conversion.
type Status string

const (
	// StatusSuccess means every chunk was rewritten by the model.
	StatusSuccess Status = "success"
	// StatusDegraded means the book was produced but one or more chunks
	// fell back to raw transcript text.
	StatusDegraded Status = "degraded"
	// StatusFailed means no book was produced for this video.
	StatusFailed Status = "failed"
)

// Result is the per-video outcome. Failures are contained here rather than
// propagated as errors, so one video never aborts a batch.
type Result struct {
	RunID          string
	URL            string
	Title          string
	Status         Status
	Reason         string
	DegradedChunks int
	TotalChunks    int
	OutputPath     string
}
