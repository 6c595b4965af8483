// Package attachment implements metadata and stats lifecycle. One
// service instance serves one attachment kind; both share every code
// path except ranking, which lives in the index layer.
package attachment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kailas-cloud/metarepo/internal/domain"
	"github.com/kailas-cloud/metarepo/internal/domain/record"
	"github.com/kailas-cloud/metarepo/internal/domain/search/order"
	"github.com/kailas-cloud/metarepo/internal/domain/search/result"
)

// Params are the writable fields of an attachment.
type Params struct {
	UUID     string
	Value    json.RawMessage
	Language string
	UserUUID string
}

// Service handles attachment lifecycle for one kind.
type Service struct {
	kind  domain.Kind
	repo  Repository
	index Indexer
	users UserResolver
}

// New creates an attachment service for a kind.
func New(kind domain.Kind, repo Repository, index Indexer, users UserResolver) (*Service, error) {
	if !kind.Attachment() {
		return nil, fmt.Errorf("%q is not an attachment kind", kind)
	}
	return &Service{kind: kind, repo: repo, index: index, users: users}, nil
}

// Kind returns the attachment kind this service manages.
func (s *Service) Kind() domain.Kind { return s.kind }

// Create validates, stores and indexes an attachment under a parent
// resource. A missing UUID is generated.
func (s *Service) Create(ctx context.Context, app domain.Application, resourceUUID string, p *Params) (record.Record, error) {
	parent, err := s.repo.GetResource(ctx, app.ID(), resourceUUID)
	if err != nil {
		return record.Record{}, err
	}

	id := p.UUID
	if id == "" {
		id = uuid.NewString()
	}
	rec, err := record.NewAttachment(s.kind, id, p.Value, app.ID(), parent.ID(), 0)
	if err != nil {
		return record.Record{}, err
	}
	rec = rec.WithLanguage(p.Language)

	userID, err := s.users.EnsureUser(ctx, app.ID(), p.UserUUID)
	if err != nil {
		return record.Record{}, err
	}

	created, err := s.repo.CreateAttachment(ctx, &rec, userID)
	if err != nil {
		return record.Record{}, err
	}
	if err := s.index.IndexRecord(&created); err != nil {
		return record.Record{}, fmt.Errorf("failed to index %s: %w", s.kind, err)
	}
	return created, nil
}

// Get loads a tenant's attachment by public identifier.
func (s *Service) Get(ctx context.Context, app domain.Application, id string) (record.Record, error) {
	return s.repo.GetAttachment(ctx, s.kind, app.ID(), id)
}

// List returns one page of a tenant's attachments, optionally narrowed
// to one parent resource by its public identifier.
func (s *Service) List(ctx context.Context, app domain.Application, resourceUUID string, orderTokens []string, pageNum, perPage int) (result.Result, error) {
	var resourceID int64
	if resourceUUID != "" {
		parent, err := s.repo.GetResource(ctx, app.ID(), resourceUUID)
		if err != nil {
			return result.Result{}, err
		}
		resourceID = parent.ID()
	}

	if perPage < 1 {
		return result.New(nil, 0, pageNum, perPage), nil
	}
	spec := order.Parse(s.kind, orderTokens)

	limit, offset := perPage, (pageNum-1)*perPage
	if pageNum < 1 {
		limit, offset = 0, 0
	}
	recs, total, err := s.repo.ListAttachments(ctx, s.kind, app.ID(), resourceID, &spec, limit, offset)
	if err != nil {
		return result.Result{}, err
	}
	return result.New(recs, total, pageNum, perPage), nil
}

// Update validates and stores a replacement value, then reindexes.
func (s *Service) Update(ctx context.Context, app domain.Application, id string, p *Params) (record.Record, error) {
	existing, err := s.repo.GetAttachment(ctx, s.kind, app.ID(), id)
	if err != nil {
		return record.Record{}, err
	}

	rec, err := record.NewAttachment(s.kind, existing.UUID(), p.Value, app.ID(), existing.ResourceID(), existing.FormatID())
	if err != nil {
		return record.Record{}, err
	}
	rec = rec.WithLanguage(p.Language).WithID(existing.ID())

	updated, err := s.repo.UpdateAttachment(ctx, &rec)
	if err != nil {
		return record.Record{}, err
	}
	if err := s.index.IndexRecord(&updated); err != nil {
		return record.Record{}, fmt.Errorf("failed to reindex %s: %w", s.kind, err)
	}
	return updated, nil
}

// Delete removes an attachment and its index document.
func (s *Service) Delete(ctx context.Context, app domain.Application, id string) error {
	existing, err := s.repo.GetAttachment(ctx, s.kind, app.ID(), id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, s.kind, existing.ID()); err != nil {
		return err
	}
	if err := s.index.DeleteRecord(s.kind, existing.ID()); err != nil {
		return fmt.Errorf("failed to deindex %s: %w", s.kind, err)
	}
	return nil
}
