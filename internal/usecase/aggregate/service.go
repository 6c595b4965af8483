// Package aggregate resolves records across tenant boundaries: several
// applications may hold copies of the same public identifier, and a
// reader wants one representative view plus the merged attachments.
package aggregate

import (
	"context"
	"sort"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/record"
)

// Service resolves cross-tenant views of a public identifier.
type Service struct {
	repo Repository
}

// New creates an aggregation service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Representative returns the viewer's own copy of a resource when one
// exists, otherwise the oldest copy (lowest storage id) across tenants.
func (s *Service) Representative(ctx context.Context, viewer domain.Application, id string) (record.Record, error) {
	copies, err := s.repo.ResourcesByPublicID(ctx, id)
	if err != nil {
		return record.Record{}, err
	}
	if len(copies) == 0 {
		return record.Record{}, domain.ErrResourceNotFound
	}
	for _, c := range copies {
		if c.ApplicationID() == viewer.ID() {
			return c, nil
		}
	}
	// Copies arrive ordered by storage id; the first is the oldest.
	return copies[0], nil
}

// Union merges one attachment kind across every tenant's copy of a
// resource. Attachments are deduplicated by their public identifier
// with the viewer's copy taking precedence; the merged list is ordered
// by storage id.
func (s *Service) Union(ctx context.Context, viewer domain.Application, kind domain.Kind, resourceID string) ([]record.Record, error) {
	copies, err := s.repo.ResourcesByPublicID(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if len(copies) == 0 {
		return nil, domain.ErrResourceNotFound
	}

	ids := make([]int64, len(copies))
	for i, c := range copies {
		ids[i] = c.ID()
	}
	attachments, err := s.repo.AttachmentsOfResources(ctx, kind, ids)
	if err != nil {
		return nil, err
	}

	// Attachments arrive ordered by storage id, so the first copy seen
	// for an identifier is the oldest; the viewer's own copy replaces
	// it regardless of age.
	chosen := make(map[string]record.Record)
	for _, a := range attachments {
		cur, seen := chosen[a.UUID()]
		switch {
		case !seen:
			chosen[a.UUID()] = a
		case a.ApplicationID() == viewer.ID() && cur.ApplicationID() != viewer.ID():
			chosen[a.UUID()] = a
		}
	}

	merged := make([]record.Record, 0, len(chosen))
	for _, a := range chosen {
		merged = append(merged, a)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID() < merged[j].ID() })
	return merged, nil
}
