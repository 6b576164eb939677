package garagem

import "fmt"

// GetHistory returns the most recent reminder check runs, newest first.
func (s *GarageService) GetHistory(limit int) ([]*CheckRun, error) {
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.database.ListCheckRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing check runs: %w", err)
	}
	return runs, nil
}
