// Package dashboard implements the read side for operational monitoring:
// tier counts over the active caseload and the approaching-deadline listing.
// Results are cached because every view requires a full scan of active cases,
// and the listing is polled aggressively by clinic dashboards.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	appcompliance "github.com/medregula/casetrack/internal/application/compliance"
	"github.com/medregula/casetrack/internal/domain/cases"
	"github.com/medregula/casetrack/internal/infrastructure/monitoring/logging"
	"github.com/medregula/casetrack/pkg/errors"
)

// CachePort is the byte cache the dashboard uses.  The redis implementation
// lives in infrastructure/database/redis; tests use an in-memory fake or no
// cache at all.
type CachePort interface {
	GetOrSet(ctx context.Context, key string, ttl time.Duration, loader func(ctx context.Context) ([]byte, error)) ([]byte, error)
	Delete(ctx context.Context, keys ...string) error
}

// Overview aggregates the active caseload by alert tier.
type Overview struct {
	GeneratedAt time.Time `json:"generated_at"`
	Active      int       `json:"active"`
	Critical    int       `json:"critical"`
	Attention   int       `json:"attention"`
	Info        int       `json:"info"`
	Overdue     int       `json:"overdue"`
}

const (
	overviewKey       = "dashboard:overview"
	approachingKeyFmt = "dashboard:approaching:%d"
	cacheTTL          = time.Minute
)

// Service computes dashboard views from the case store.
type Service struct {
	store cases.Store
	log   logging.Logger
	cache CachePort
	nowFn func() time.Time

	// horizons records every withinDays value a listing was cached under,
	// so invalidation reaches all of them.
	mu       sync.Mutex
	horizons map[int]struct{}
}

// Option customizes a Service.
type Option func(*Service)

// WithCache attaches a cache; without one every call scans the store.
func WithCache(c CachePort) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock injects a time source.
func WithClock(nowFn func() time.Time) Option {
	return func(s *Service) { s.nowFn = nowFn }
}

// NewService constructs the dashboard read service.
func NewService(store cases.Store, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		log:      log.Named("dashboard"),
		nowFn:    time.Now,
		horizons: make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// activeViews builds live deadline views for every active case.
func (s *Service) activeViews(ctx context.Context) ([]*appcompliance.DeadlineView, error) {
	active, err := s.store.Cases().FindActive(ctx)
	if err != nil {
		return nil, err
	}
	now := s.nowFn().UTC()
	views := make([]*appcompliance.DeadlineView, 0, len(active))
	for _, c := range active {
		views = append(views, appcompliance.BuildDeadlineView(c, now))
	}
	return views, nil
}

// Overview returns tier counts over the active caseload.
func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	if s.cache == nil {
		return s.computeOverview(ctx)
	}
	data, err := s.cache.GetOrSet(ctx, overviewKey, cacheTTL, func(ctx context.Context) ([]byte, error) {
		o, err := s.computeOverview(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(o)
	})
	if err != nil {
		return nil, err
	}
	var o Overview
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "corrupt cached overview")
	}
	return &o, nil
}

func (s *Service) computeOverview(ctx context.Context) (*Overview, error) {
	views, err := s.activeViews(ctx)
	if err != nil {
		return nil, err
	}
	o := &Overview{GeneratedAt: s.nowFn().UTC(), Active: len(views)}
	for _, v := range views {
		switch v.Tier {
		case cases.TierCritical:
			o.Critical++
		case cases.TierAttention:
			o.Attention++
		default:
			o.Info++
		}
		if v.DaysRemaining < 0 {
			o.Overdue++
		}
	}
	return o, nil
}

// ApproachingDeadlines lists active cases with at most withinDays days left
// before their effective deadline, most urgent first.  Overdue cases are
// always included.
func (s *Service) ApproachingDeadlines(ctx context.Context, withinDays int) ([]*appcompliance.DeadlineView, error) {
	if withinDays < 0 {
		return nil, errors.InvalidParam("withinDays must not be negative")
	}
	if s.cache == nil {
		return s.computeApproaching(ctx, withinDays)
	}
	s.mu.Lock()
	s.horizons[withinDays] = struct{}{}
	s.mu.Unlock()
	key := fmt.Sprintf(approachingKeyFmt, withinDays)
	data, err := s.cache.GetOrSet(ctx, key, cacheTTL, func(ctx context.Context) ([]byte, error) {
		views, err := s.computeApproaching(ctx, withinDays)
		if err != nil {
			return nil, err
		}
		return json.Marshal(views)
	})
	if err != nil {
		return nil, err
	}
	var views []*appcompliance.DeadlineView
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "corrupt cached listing")
	}
	return views, nil
}

func (s *Service) computeApproaching(ctx context.Context, withinDays int) ([]*appcompliance.DeadlineView, error) {
	views, err := s.activeViews(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*appcompliance.DeadlineView, 0, len(views))
	for _, v := range views {
		if v.DaysRemaining <= withinDays {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysRemaining < out[j].DaysRemaining
	})
	return out, nil
}

// Invalidate drops the cached overview and every approaching listing
// populated so far, whatever horizon it was requested under.  Called after
// writes that change the active caseload; safe without a cache.
func (s *Service) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := []string{overviewKey}
	s.mu.Lock()
	for d := range s.horizons {
		keys = append(keys, fmt.Sprintf(approachingKeyFmt, d))
	}
	s.mu.Unlock()
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.log.Warn("cache invalidation failed", logging.Err(err))
	}
}
