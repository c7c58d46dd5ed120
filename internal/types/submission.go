package types

import "time"

type (
	SubmissionResult struct {
		ID     string           `json:"id"`
		Slug   string           `json:"slug"`
		Status SubmissionStatus `json:"status"`
		// milliseconds
		ExecutionTime float64 `json:"execution_time"`
		// kilobytes
		MemoryUsed float64 `json:"memory_used"`
	}

	// Observable state of a submission, sent to live listeners and returned on re-fetch
	SubmissionSnapshot struct {
		ID          string             `json:"id"`
		AuthorID    string             `json:"author_id"`
		ProblemID   *string            `json:"problem_id"`
		ContestID   *string            `json:"contest_id"`
		Language    string             `json:"language"`
		Status      SubmissionStatus   `json:"status"`
		TotalScore  float64            `json:"total_score"`
		Log         string             `json:"log"`
		SubmittedAt time.Time          `json:"submitted_at"`
		UpdatedAt   time.Time          `json:"updated_at"`
		Results     []SubmissionResult `json:"results"`
	}
)
