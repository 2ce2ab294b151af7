package reconcile

import "github.com/minios-linux/objtrans/metadata"

// Summary splits results into successes and failures (import).
type Summary struct {
	Success []metadata.SaveResult `json:"success"`
	Failure []metadata.SaveResult `json:"failure"`
}

// CountSummary reports successes as a count (deploy).
type CountSummary struct {
	Success int                   `json:"success"`
	Failure []metadata.SaveResult `json:"failure"`
}

// Summarize partitions results, keeping their order.
func Summarize(results []metadata.SaveResult) Summary {
	s := Summary{Success: []metadata.SaveResult{}, Failure: []metadata.SaveResult{}}
	for _, r := range results {
		if r.Success {
			s.Success = append(s.Success, r)
		} else {
			s.Failure = append(s.Failure, r)
		}
	}
	return s
}

// Count counts successes and collects failures.
func Count(results []metadata.SaveResult) CountSummary {
	s := CountSummary{Failure: []metadata.SaveResult{}}
	for _, r := range results {
		if r.Success {
			s.Success++
		} else {
			s.Failure = append(s.Failure, r)
		}
	}
	return s
}
