package contract

import (
	"context"
	"encoding/json"

	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/store"
	"github.com/biorbit/biorbit/internal/store/schema"
)

// RegisterAreaParams carries one registration request
type RegisterAreaParams struct {
	Caller      domain.Address
	Payment     domain.Amount
	Name        string
	Description string
	Photo       string
	GeoJSON     []byte
	Country     string
}

// RegisterArea creates a protected area from a qualifying donation. The
// payment must meet the donation minimum and the name must be unused. The
// caller becomes the area's first donor and the payment is credited to the
// registry (or the configured relay).
func (c *Contract) RegisterArea(ctx context.Context, params RegisterAreaParams) (*schema.ProtectedArea, error) {
	if params.Caller.IsZero() {
		return nil, domain.ErrInvalidAddress
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	minimum, err := c.parameter(ctx, domain.ParamDonation)
	if err != nil {
		return nil, err
	}
	if params.Payment.Cmp(minimum) < 0 {
		return nil, domain.ErrInsufficientDonation
	}

	txID := newTxID()
	var ev *domain.Event

	area, err := c.store.RegisterArea(ctx, store.RegisterAreaInput{
		Name:        params.Name,
		Description: params.Description,
		Photo:       params.Photo,
		GeoJSON:     params.GeoJSON,
		Country:     params.Country,
		Donor:       params.Caller.String(),
		Payment:     params.Payment.String(),
		CreditTo:    c.donationTarget().String(),
		TxID:        txID,
		BuildEvent: func(stored *schema.ProtectedArea) (*domain.Event, error) {
			ev, err = c.newEvent(domain.EventAreaRegistered, txID, domain.AreaRegisteredPayload{
				AreaID:      stored.AreaID,
				Name:        stored.Name,
				Description: stored.Description,
				Photo:       stored.Photo,
				GeoJSON:     json.RawMessage(stored.GeoJSON),
				Country:     stored.Country,
				Donor:       params.Caller,
				Donation:    params.Payment,
			})
			return ev, err
		},
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, ev)
	return area, nil
}

// MonitoringParams carries one monitoring submission
type MonitoringParams struct {
	Caller                domain.Address
	AreaID                uint64
	Name                  string
	LastDetectionDate     string
	TotalExtension        string
	DetectionDates        []string
	ForestCoverExtensions []string
}

// RecordMonitoringData populates an area's monitoring snapshot. Admin only.
// The name must match the record stored at the id, the two series must be
// parallel, and the snapshot can be written exactly once.
func (c *Contract) RecordMonitoringData(ctx context.Context, params MonitoringParams) (*schema.ProtectedArea, error) {
	if err := c.requireRole(ctx, domain.RoleAdmin, params.Caller); err != nil {
		return nil, err
	}
	if len(params.DetectionDates) != len(params.ForestCoverExtensions) {
		return nil, domain.ErrMonitoringSeries
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	txID := newTxID()
	var ev *domain.Event

	area, err := c.store.RecordMonitoring(ctx, store.RecordMonitoringInput{
		AreaID:                params.AreaID,
		Name:                  params.Name,
		LastDetectionDate:     params.LastDetectionDate,
		TotalExtension:        params.TotalExtension,
		DetectionDates:        params.DetectionDates,
		ForestCoverExtensions: params.ForestCoverExtensions,
		Recorder:              params.Caller.String(),
		TxID:                  txID,
		BuildEvent: func(stored *schema.ProtectedArea) (*domain.Event, error) {
			var err error
			ev, err = c.newEvent(domain.EventMonitoringRecorded, txID, domain.MonitoringRecordedPayload{
				AreaID:            stored.AreaID,
				Name:              stored.Name,
				LastDetectionDate: params.LastDetectionDate,
				TotalExtension:    params.TotalExtension,
				DetectionDates:    params.DetectionDates,
				ForestCover:       params.ForestCoverExtensions,
				Recorder:          params.Caller,
				RecordedAt:        c.clock.Now().UTC(),
			})
			return ev, err
		},
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, ev)
	return area, nil
}
