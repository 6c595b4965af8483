// Package resource implements resource lifecycle: create, read, list,
// update, delete, with synchronous index maintenance.
package resource

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
	"github.com/kailas-cloud/metarepo/internal/domain/search/result"
)

// Params are the writable fields of a resource.
type Params struct {
	UUID         string
	URI          string
	ResourceType string
	Title        string
	Content      string
	Language     string
	UserUUID     string
}

// Service handles resource lifecycle for one tenant at a time.
type Service struct {
	repo  Repository
	index Indexer
	users UserResolver
}

// New creates a resource service.
func New(repo Repository, index Indexer, users UserResolver) *Service {
	return &Service{repo: repo, index: index, users: users}
}

// Create validates, stores and indexes a new resource. A missing UUID
// is generated.
func (s *Service) Create(ctx context.Context, app domain.Application, p *Params) (record.Record, error) {
	id := p.UUID
	if id == "" {
		id = uuid.NewString()
	}
	rec, err := record.NewResource(id, p.URI, p.ResourceType, p.Title, p.Content, app.ID(), 0)
	if err != nil {
		return record.Record{}, err
	}
	rec = rec.WithLanguage(p.Language)

	userID, err := s.users.EnsureUser(ctx, app.ID(), p.UserUUID)
	if err != nil {
		return record.Record{}, err
	}

	created, err := s.repo.CreateResource(ctx, &rec, userID)
	if err != nil {
		return record.Record{}, err
	}
	if err := s.index.IndexRecord(&created); err != nil {
		return record.Record{}, fmt.Errorf("failed to index resource: %w", err)
	}
	return created, nil
}

// Get loads a tenant's resource by public identifier.
func (s *Service) Get(ctx context.Context, app domain.Application, id string) (record.Record, error) {
	return s.repo.GetResource(ctx, app.ID(), id)
}

// List returns one page of a tenant's resources. Pagination follows
// search semantics: a non-positive page size reports an empty set, an
// out-of-range page keeps the true total.
func (s *Service) List(ctx context.Context, app domain.Application, orderTokens []string, pageNum, perPage int) (result.Result, error) {
	if perPage < 1 {
		return result.New(nil, 0, pageNum, perPage), nil
	}
	spec := order.Parse(domain.KindResource, orderTokens)

	limit, offset := perPage, (pageNum-1)*perPage
	if pageNum < 1 {
		limit, offset = 0, 0
	}
	recs, total, err := s.repo.ListResources(ctx, app.ID(), &spec, limit, offset)
	if err != nil {
		return result.Result{}, err
	}
	return result.New(recs, total, pageNum, perPage), nil
}

// Update validates and stores a replacement, reindexes the resource,
// and refreshes the index documents of its attachments when the text
// they embed has changed.
func (s *Service) Update(ctx context.Context, app domain.Application, id string, p *Params) (record.Record, error) {
	existing, err := s.repo.GetResource(ctx, app.ID(), id)
	if err != nil {
		return record.Record{}, err
	}

	rec, err := record.NewResource(existing.UUID(), p.URI, p.ResourceType, p.Title, p.Content, app.ID(), existing.FormatID())
	if err != nil {
		return record.Record{}, err
	}
	rec = rec.WithLanguage(p.Language).WithID(existing.ID())

	updated, err := s.repo.UpdateResource(ctx, &rec)
	if err != nil {
		return record.Record{}, err
	}
	if err := s.index.IndexRecord(&updated); err != nil {
		return record.Record{}, fmt.Errorf("failed to reindex resource: %w", err)
	}

	if existing.Title() != updated.Title() || existing.Content() != updated.Content() {
		if err := s.reindexAttachments(ctx, updated.ID()); err != nil {
			return record.Record{}, err
		}
	}
	return updated, nil
}

// Delete removes a resource, its attachments (cascaded by the store)
// and all of their index documents.
func (s *Service) Delete(ctx context.Context, app domain.Application, id string) error {
	existing, err := s.repo.GetResource(ctx, app.ID(), id)
	if err != nil {
		return err
	}

	// Attachment rows cascade on delete; collect them first so their
	// index documents can be removed too.
	attachments := map[domain.Kind][]record.Record{}
	for _, kind := range []domain.Kind{domain.KindMetadata, domain.KindStats} {
		recs, err := s.repo.AttachmentsOfResource(ctx, kind, existing.ID())
		if err != nil {
			return err
		}
		attachments[kind] = recs
	}

	if err := s.repo.Delete(ctx, domain.KindResource, existing.ID()); err != nil {
		return err
	}
	if err := s.index.DeleteRecord(domain.KindResource, existing.ID()); err != nil {
		return fmt.Errorf("failed to deindex resource: %w", err)
	}
	for kind, recs := range attachments {
		for i := range recs {
			if err := s.index.DeleteRecord(kind, recs[i].ID()); err != nil {
				return fmt.Errorf("failed to deindex %s: %w", kind, err)
			}
		}
	}
	return nil
}

func (s *Service) reindexAttachments(ctx context.Context, resourceID int64) error {
	for _, kind := range []domain.Kind{domain.KindMetadata, domain.KindStats} {
		recs, err := s.repo.AttachmentsOfResource(ctx, kind, resourceID)
		if err != nil {
			return err
		}
		if err := s.index.IndexBatch(kind, recs); err != nil {
			return fmt.Errorf("failed to refresh %s index documents: %w", kind, err)
		}
	}
	return nil
}
