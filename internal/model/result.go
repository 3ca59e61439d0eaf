package model

import "time"

// ImageResult describes one downloaded product image.
type ImageResult struct {
	ProductURL string `json:"product_url"`
	Path       string `json:"path"`
	Size       int64  `json:"size"`
	// Digest is the hex SHA3-256 of the file content.
	Digest string `json:"digest"`
}

// Failure records a URL that could not be processed by a step.
type Failure struct {
	Step  string `json:"step"`
	URL   string `json:"url"`
	Error string `json:"error"`
}

// CategoryResult is the state a category pipeline works on. Each step reads
// what previous steps produced and adds its own output.
type CategoryResult struct {
	Category Category        `json:"category"`
	Products []ProductRecord `json:"products,omitempty"`
	CSVPath  string          `json:"csv_path,omitempty"`
	Images   []ImageResult   `json:"images,omitempty"`
	Failures []Failure       `json:"failures,omitempty"`

	// PerformedSteps lists the names of steps that completed, in order.
	PerformedSteps []string `json:"performed_steps,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewCategoryResult starts a result for the category with the given slug.
func NewCategoryResult(slug string) *CategoryResult {
	return &CategoryResult{
		Category:  Category{Slug: slug},
		StartedAt: time.Now(),
	}
}

// AddFailure records that url could not be processed by step.
func (r *CategoryResult) AddFailure(step, url string, err error) {
	f := Failure{Step: step, URL: url}
	if err != nil {
		f.Error = err.Error()
	}
	r.Failures = append(r.Failures, f)
}

// AddStep records a completed step.
func (r *CategoryResult) AddStep(name string) {
	r.PerformedSteps = append(r.PerformedSteps, name)
}

// Finish stamps the completion time.
func (r *CategoryResult) Finish() {
	r.FinishedAt = time.Now()
}
