package service

import (
	"context"
	"time"

	"payauth-platform/internal/core/domain"
	"payauth-platform/internal/core/ports"

	"github.com/google/uuid"
)

// reportingPageSize is how many rows Summary fetches per page; it keeps
// paging until it reaches a row created before since or a short page.
const reportingPageSize = 500

// ReportingService implements ports.ReportingService, aggregating the
// synchronous read model for the dashboard.
type ReportingService struct {
	readModel ports.ReadModelRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(readModel ports.ReadModelRepository) *ReportingService {
	return &ReportingService{readModel: readModel}
}

// Summary tallies authorization requests for restaurantID created at or
// after since, grouped by status (terminal and non-terminal alike).
func (s *ReportingService) Summary(ctx context.Context, restaurantID uuid.UUID, since time.Time) (map[domain.AuthRequestStatus]int64, error) {
	counts := make(map[domain.AuthRequestStatus]int64)

	offset := 0
	for {
		states, err := s.readModel.ListByRestaurant(ctx, restaurantID, reportingPageSize, offset)
		if err != nil {
			return nil, err
		}
		if len(states) == 0 {
			break
		}

		reachedCutoff := false
		for _, state := range states {
			if state.CreatedAt.Before(since) {
				reachedCutoff = true
				break
			}
			counts[state.Status]++
		}
		if reachedCutoff || len(states) < reportingPageSize {
			break
		}
		offset += reportingPageSize
	}

	return counts, nil
}
