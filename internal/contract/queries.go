package contract

import (
	"context"

	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/store"
	"github.com/biorbit/biorbit/internal/store/schema"
)

// AreaByID returns the area stored at id
func (c *Contract) AreaByID(ctx context.Context, areaID uint64) (*schema.ProtectedArea, error) {
	area, err := c.store.GetArea(ctx, areaID)
	if err != nil {
		return nil, err
	}
	if area == nil {
		return nil, domain.ErrAreaNotFound
	}
	return area, nil
}

// Areas returns registered areas ordered by id plus the total count
func (c *Contract) Areas(ctx context.Context, limit, offset int) ([]*schema.ProtectedArea, uint64, error) {
	return c.store.ListAreas(ctx, limit, offset)
}

// AreasByName returns every area whose name matches exactly
func (c *Contract) AreasByName(ctx context.Context, name string) ([]*schema.ProtectedArea, error) {
	areas, _, err := c.store.ListAreasByName(ctx, name, -1, 0)
	return areas, err
}

// AreasByNamePage returns the pagination window
// [page*pageSize, page*pageSize+pageSize) over the areas matching name, upper
// bound clamped to the match count. A window starting at or past the match
// count fails with ErrPageOutOfRange.
func (c *Contract) AreasByNamePage(ctx context.Context, name string, page, pageSize int) ([]*schema.ProtectedArea, error) {
	if page < 0 || pageSize < 0 {
		return nil, domain.ErrPageOutOfRange
	}

	start := page * pageSize
	areas, total, err := c.store.ListAreasByName(ctx, name, pageSize, start)
	if err != nil {
		return nil, err
	}
	if uint64(start) >= total {
		return nil, domain.ErrPageOutOfRange
	}
	return areas, nil
}

// IsNameUsed reports whether an area name has been registered
func (c *Contract) IsNameUsed(ctx context.Context, name string) (bool, error) {
	return c.store.IsNameUsed(ctx, name)
}

// ImageByID returns the satellite image stored at id
func (c *Contract) ImageByID(ctx context.Context, imageID uint64) (*schema.SatelliteImage, error) {
	image, err := c.store.GetImage(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, domain.ErrImageNotFound
	}
	return image, nil
}

// Images returns minted images ordered by id plus the total count
func (c *Contract) Images(ctx context.Context, limit, offset int) ([]*schema.SatelliteImage, uint64, error) {
	return c.store.ListImages(ctx, limit, offset)
}

// ImagesByArea returns an area's image collection
func (c *Contract) ImagesByArea(ctx context.Context, areaID uint64) ([]*schema.SatelliteImage, error) {
	if _, err := c.AreaByID(ctx, areaID); err != nil {
		return nil, err
	}
	return c.store.ListImagesByArea(ctx, areaID)
}

// Balance returns the on-ledger balance of an address
func (c *Contract) Balance(ctx context.Context, address domain.Address) (domain.Amount, error) {
	raw, err := c.store.GetBalance(ctx, address.String())
	if err != nil {
		return domain.ZeroAmount(), err
	}
	return domain.NewAmount(raw)
}

// RegistryBalance returns the registry's own accumulated balance
func (c *Contract) RegistryBalance(ctx context.Context) (domain.Amount, error) {
	return c.Balance(ctx, c.config.RegistryAddress)
}

// Events queries the event journal
func (c *Contract) Events(ctx context.Context, filter store.EventFilter) ([]*schema.ContractEvent, uint64, error) {
	return c.store.ListEvents(ctx, filter)
}
