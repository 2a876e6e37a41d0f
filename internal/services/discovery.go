package services

import (
	"context"
	"fmt"
	"time"

	"dating-backend/internal/auth"
	"dating-backend/internal/metrics"
	"dating-backend/internal/models"
	"dating-backend/internal/pagination"
	"dating-backend/internal/repository"
)

const (
	DefaultMinAge = 18
	DefaultMaxAge = 99

	OrderByCreated    = "created"
	OrderByLastActive = "lastActive"
)

// DiscoveryParams are the normalized discovery filters
type DiscoveryParams struct {
	Page    pagination.Params
	Gender  string
	MinAge  int
	MaxAge  int
	OrderBy string
	Likers  bool
	Likees  bool
}

// NewDiscoveryParams normalizes raw filter values. Invalid ages fall back to
// the defaults, unknown orderings fall back to lastActive, and when both
// like restrictions are requested only the likers one is kept.
func NewDiscoveryParams(page pagination.Params, gender string, minAge, maxAge int, orderBy string, likers, likees bool) DiscoveryParams {
	if minAge < 0 || maxAge < 0 || minAge > maxAge {
		minAge, maxAge = DefaultMinAge, DefaultMaxAge
	}
	if orderBy != OrderByCreated {
		orderBy = OrderByLastActive
	}
	if likers {
		likees = false
	}
	return DiscoveryParams{
		Page:    page,
		Gender:  gender,
		MinAge:  minAge,
		MaxAge:  maxAge,
		OrderBy: orderBy,
		Likers:  likers,
		Likees:  likees,
	}
}

// DefaultAgeRange reports whether the age filter is the no-op default
func (p DiscoveryParams) DefaultAgeRange() bool {
	return p.MinAge == DefaultMinAge && p.MaxAge == DefaultMaxAge
}

// BirthDateWindow returns the inclusive birth date range for an age range
func BirthDateWindow(today time.Time, minAge, maxAge int) (from, to time.Time) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(-maxAge-1, 0, 0), day.AddDate(-minAge, 0, 0)
}

// OppositeGender is the gender shown to a viewer who does not pick one
func OppositeGender(gender string) string {
	if gender == "male" {
		return "female"
	}
	return "male"
}

// SocialGraph answers who likes whom
type SocialGraph interface {
	LikersOf(ctx context.Context, accountID string) ([]string, error)
	LikeesOf(ctx context.Context, accountID string) ([]string, error)
}

// DiscoveryService composes the candidate feed for a viewer
type DiscoveryService struct {
	accounts AccountStore
	graph    SocialGraph
	metrics  metrics.Recorder
	now      func() time.Time
}

// NewDiscoveryService creates a new discovery service
func NewDiscoveryService(accounts AccountStore, graph SocialGraph, rec metrics.Recorder) *DiscoveryService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &DiscoveryService{
		accounts: accounts,
		graph:    graph,
		metrics:  rec,
		now:      time.Now,
	}
}

// buildFilter turns params into a store filter for the given viewer.
// ids is consulted only when a like restriction is active.
func buildFilter(viewer *models.Account, p DiscoveryParams, ids []string, today time.Time) repository.AccountFilter {
	f := repository.AccountFilter{
		ExcludeID: viewer.ID,
		Gender:    p.Gender,
		Order:     repository.OrderLastActive,
	}
	if f.Gender == "" {
		f.Gender = OppositeGender(viewer.Gender)
	}
	if p.Likers || p.Likees {
		f.RestrictIDs = true
		f.IDs = ids
	}
	if !p.DefaultAgeRange() {
		f.BornFrom, f.BornTo = BirthDateWindow(today, p.MinAge, p.MaxAge)
	}
	if p.OrderBy == OrderByCreated {
		f.Order = repository.OrderCreated
	}
	return f
}

// Discover returns one page of candidates for the caller
func (s *DiscoveryService) Discover(ctx context.Context, claims auth.Claims, p DiscoveryParams) (*pagination.Page[models.AccountSummary], error) {
	if err := auth.Authorize(claims, ""); err != nil {
		return nil, err
	}

	viewer, err := s.accounts.GetByID(ctx, claims.Subject)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load viewer: %w", err)
	}

	var ids []string
	switch {
	case p.Likers:
		ids, err = s.graph.LikersOf(ctx, viewer.ID)
	case p.Likees:
		ids, err = s.graph.LikeesOf(ctx, viewer.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load likes: %w", err)
	}

	today := s.now()
	page, err := pagination.Paginate(ctx, s.accounts.Discover(buildFilter(viewer, p, ids, today)), p.Page)
	if err != nil {
		return nil, fmt.Errorf("failed to discover accounts: %w", err)
	}
	s.metrics.RecordDiscoveryQuery()

	return pagination.Map(page, func(a *models.Account) models.AccountSummary {
		return a.Summary(today)
	}), nil
}
