package records

import (
	"context"
	"strings"
)

// Service exposes read access to Records for the homepage and API.
type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// List returns every Record, most recently updated first.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	recs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	sortRecords(recs)
	return recs, nil
}

func (s *Service) Get(ctx context.Context, key string) (Record, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Record{}, ErrNotFound
	}
	return s.Repo.Get(ctx, key)
}

func (s *Service) Upsert(ctx context.Context, rec Record) error {
	return s.Repo.Upsert(ctx, rec)
}
