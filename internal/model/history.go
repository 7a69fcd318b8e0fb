package model

import "time"

// SearchRun is one persisted search: the query, when it ran and the records
// it produced. Businesses is only populated when a single run is loaded.
type SearchRun struct {
	ID          string           `json:"id" yaml:"id"`
	Query       string           `json:"query" yaml:"query"`
	Location    string           `json:"location,omitempty" yaml:"location,omitempty"`
	ResultCount int              `json:"result_count" yaml:"result_count"`
	Businesses  []BusinessRecord `json:"businesses,omitempty" yaml:"businesses,omitempty"`
	CreatedAt   time.Time        `json:"created_at" yaml:"created_at"`
}
