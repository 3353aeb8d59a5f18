package travel

import (
	"context"
	"time"

	"github.com/alpe89/booking-poc/internal/domain"
	"github.com/alpe89/booking-poc/internal/observability"
	"github.com/google/uuid"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Store is the read-only slice of storage the catalog needs.
type Store interface {
	ListTravels(ctx context.Context, offset, limit int) ([]domain.Travel, error)
	CountTravels(ctx context.Context) (int, error)
	GetTravelBySlug(ctx context.Context, slug string) (*domain.Travel, error)
	ActiveSeats(ctx context.Context, travelID uuid.UUID, now time.Time) (int, error)
}

// Cache stores whole listing pages. The catalog is immutable, so pages can be
// cached; availability never is.
type Cache interface {
	GetTravelPage(ctx context.Context, page, limit int) (*Page, error)
	SetTravelPage(ctx context.Context, page, limit int, p *Page) error
}

type Page struct {
	Travels []domain.Travel `json:"travels"`
	Total   int             `json:"total"`
	Page    int             `json:"page"`
	Limit   int             `json:"limit"`
}

type Details struct {
	Travel         *domain.Travel
	AvailableSeats int
}

type Service struct {
	store Store
	cache Cache
	log   observability.Logger
}

func NewService(store Store, cache Cache, log observability.Logger) *Service {
	return &Service{store: store, cache: cache, log: log}
}

// List returns one catalog page ordered by starting date. Out-of-range paging
// parameters are clamped rather than rejected.
func (s *Service) List(ctx context.Context, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > MaxPageLimit {
		limit = DefaultPageLimit
	}

	if s.cache != nil {
		if cached, err := s.cache.GetTravelPage(ctx, page, limit); err != nil {
			s.log.Warn("travel page cache read failed", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	travels, err := s.store.ListTravels(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountTravels(ctx)
	if err != nil {
		return nil, err
	}

	p := &Page{Travels: travels, Total: total, Page: page, Limit: limit}
	if s.cache != nil {
		if err := s.cache.SetTravelPage(ctx, page, limit, p); err != nil {
			s.log.Warn("travel page cache write failed", err)
		}
	}
	return p, nil
}

// GetBySlug returns the travel plus its availability, computed on demand from
// booking rows.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Details, error) {
	t, err := s.store.GetTravelBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	booked, err := s.store.ActiveSeats(ctx, t.ID, time.Now())
	if err != nil {
		return nil, err
	}
	return &Details{Travel: t, AvailableSeats: domain.AvailableSeats(t.TotalSeats, booked)}, nil
}
