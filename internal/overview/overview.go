// Package overview summarizes an organization's stores and open alerts per platform.
package overview

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/merchant-ops/backend/internal/alerts"
	"github.com/merchant-ops/backend/internal/filter"
	"github.com/merchant-ops/backend/internal/listing"
	"github.com/merchant-ops/backend/internal/models"
	"github.com/merchant-ops/backend/internal/stores"
)

// StoreLister loads the organization's stores.
type StoreLister interface {
	Load(ctx context.Context, scope *uuid.UUID, f stores.Filter) (*listing.Result[models.Store], error)
}

// AlertLister loads the organization's alerts.
type AlertLister interface {
	Load(ctx context.Context, scope *uuid.UUID, f alerts.Filter) (*listing.Result[models.Alert], error)
}

// PlatformSummary is one row of the overview.
type PlatformSummary struct {
	Platform      string     `json:"platform"`
	Stores        int        `json:"stores"`
	Active        int        `json:"active"`
	Expired       int        `json:"expired"`
	OpenAlerts    int        `json:"open_alerts"`
	CriticalOpen  int        `json:"critical_open"`
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

// Summary is the overview of one organization.
type Summary struct {
	Platforms  []PlatformSummary `json:"platforms"`
	Stores     int               `json:"stores"`
	OpenAlerts int               `json:"open_alerts"`
}

// Service builds overviews from the stores and alerts lists.
type Service struct {
	stores StoreLister
	alerts AlertLister
}

// NewService creates an overview service.
func NewService(s StoreLister, a AlertLister) *Service {
	return &Service{stores: s, alerts: a}
}

// Summarize loads stores and open alerts side by side and groups them by platform.
// A nil scope yields an empty summary.
func (s *Service) Summarize(ctx context.Context, scope *uuid.UUID) (*Summary, error) {
	if scope == nil {
		return &Summary{Platforms: []PlatformSummary{}}, nil
	}
	var (
		storeRows []models.Store
		alertRows []models.Alert
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := s.stores.Load(gctx, scope, stores.Filter{Platform: filter.All, Status: filter.All})
		if err != nil {
			return err
		}
		storeRows = res.Rows
		return nil
	})
	g.Go(func() error {
		res, err := s.alerts.Load(gctx, scope, alerts.Filter{
			Platform: filter.All,
			Severity: filter.All,
			Resolved: filter.StateOpen,
		})
		if err != nil {
			return err
		}
		alertRows = res.Rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Build(storeRows, alertRows), nil
}

// Build groups stores and open alerts by platform. Platforms appear in the canonical order,
// followed by any unknown platform in first-seen order; platforms with neither are omitted.
func Build(storeRows []models.Store, openAlerts []models.Alert) *Summary {
	byPlatform := make(map[string]*PlatformSummary)
	var order []string
	get := func(p string) *PlatformSummary {
		if ps, ok := byPlatform[p]; ok {
			return ps
		}
		ps := &PlatformSummary{Platform: p}
		byPlatform[p] = ps
		order = append(order, p)
		return ps
	}

	sum := &Summary{}
	for _, st := range storeRows {
		ps := get(st.Platform)
		ps.Stores++
		switch st.AuthStatus {
		case models.AuthStatusActive:
			ps.Active++
		case models.AuthStatusExpired:
			ps.Expired++
		}
		if st.LastHealthCheck != nil && (ps.LastCheckedAt == nil || st.LastHealthCheck.After(*ps.LastCheckedAt)) {
			at := *st.LastHealthCheck
			ps.LastCheckedAt = &at
		}
		sum.Stores++
	}
	for _, a := range openAlerts {
		if !a.IsOpen() {
			continue
		}
		ps := get(a.Platform)
		ps.OpenAlerts++
		if a.Severity == models.SeverityCritical {
			ps.CriticalOpen++
		}
		sum.OpenAlerts++
	}

	sum.Platforms = make([]PlatformSummary, 0, len(byPlatform))
	for _, p := range models.Platforms {
		if ps, ok := byPlatform[p]; ok {
			sum.Platforms = append(sum.Platforms, *ps)
			delete(byPlatform, p)
		}
	}
	for _, p := range order {
		if ps, ok := byPlatform[p]; ok {
			sum.Platforms = append(sum.Platforms, *ps)
		}
	}
	return sum
}
