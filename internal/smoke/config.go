package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL     string        // Base URL of the essay API
	Email       string        // Identity to log in as; generated when empty
	Submissions int           // Sequential submissions after the concurrent pair
	Timeout     time.Duration // HTTP request timeout
	Seed        int64         // Seed for generated essays
	Verbose     bool          // Log every request
}

// Stats holds the outcome of a smoke run.
type Stats struct {
	Submitted           int
	Committed           int
	Rejected            int // refused because another submission was running
	Failed              int
	Average             float64
	StartTime           time.Time
	EndTime             time.Time
	Duration            time.Duration
	Identity            string
	Scores              []float64
	ConcurrentCommitted int
}
