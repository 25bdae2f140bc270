package contract

import (
	"context"

	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/store"
	"github.com/biorbit/biorbit/internal/store/schema"
)

// MintImage tokenizes a satellite image for a protected area. Admin only.
// The name/id pair is validated the same way monitoring is; the image price is
// the current global price and the token is issued to the caller.
func (c *Contract) MintImage(ctx context.Context, caller domain.Address, areaName string, areaID uint64, uri string) (*schema.SatelliteImage, error) {
	if err := c.requireRole(ctx, domain.RoleAdmin, caller); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	price, err := c.parameter(ctx, domain.ParamPrice)
	if err != nil {
		return nil, err
	}

	txID := newTxID()
	var ev *domain.Event

	image, err := c.store.MintImage(ctx, store.MintImageInput{
		AreaID:   areaID,
		AreaName: areaName,
		URI:      uri,
		Price:    price.String(),
		Seller:   caller.String(),
		TxID:     txID,
		BuildEvent: func(stored *schema.SatelliteImage) (*domain.Event, error) {
			var err error
			ev, err = c.newEvent(domain.EventImageMinted, txID, domain.ImageMintedPayload{
				ImageID:  stored.ImageID,
				AreaID:   stored.AreaID,
				AreaName: stored.AreaName,
				URI:      stored.URI,
				Price:    price,
				Seller:   caller,
			})
			return ev, err
		},
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, ev)
	return image, nil
}

// SellImage lists an image for sale by escrowing its token to the registry.
// Admin only. The caller must own the token and the registry must hold a
// transfer approval from the caller. Nested sell/buy invocations are rejected.
func (c *Contract) SellImage(ctx context.Context, caller domain.Address, imageID uint64) error {
	if err := c.requireRole(ctx, domain.RoleAdmin, caller); err != nil {
		return err
	}
	if err := c.beginTrade(); err != nil {
		return err
	}
	defer c.endTrade()

	c.mu.Lock()
	defer c.mu.Unlock()

	txID := newTxID()
	ev, err := c.newEvent(domain.EventImageListed, txID, domain.ImageListedPayload{
		ImageID: imageID,
		Seller:  caller,
	})
	if err != nil {
		return err
	}

	err = c.store.EscrowImage(ctx, store.EscrowImageInput{
		ImageID:         imageID,
		Seller:          caller.String(),
		RegistryAddress: c.config.RegistryAddress.String(),
		TxID:            txID,
		Event:           ev,
	})
	if err != nil {
		return err
	}

	c.publish(ctx, ev)
	return nil
}

// BuyImage purchases an image. The payment must equal the image's price
// exactly; sold images cannot be bought again. The token transfers to the
// buyer and the image's price is paid out to its seller. Nested sell/buy
// invocations are rejected.
func (c *Contract) BuyImage(ctx context.Context, caller domain.Address, payment domain.Amount, imageID uint64) (*schema.SatelliteImage, error) {
	if caller.IsZero() {
		return nil, domain.ErrInvalidAddress
	}
	if err := c.beginTrade(); err != nil {
		return nil, err
	}
	defer c.endTrade()

	c.mu.Lock()
	defer c.mu.Unlock()

	image, err := c.store.GetImage(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if image == nil {
		return nil, domain.ErrImageNotFound
	}

	price, err := domain.NewAmount(image.Price)
	if err != nil {
		return nil, err
	}

	txID := newTxID()
	ev, err := c.newEvent(domain.EventImageSold, txID, domain.ImageSoldPayload{
		ImageID: imageID,
		Buyer:   caller,
		Seller:  domain.Address(image.Seller),
		Price:   price,
	})
	if err != nil {
		return nil, err
	}

	// Sold flag and payment are re-checked inside the purchase transaction
	sold, err := c.store.PurchaseImage(ctx, store.PurchaseImageInput{
		ImageID:         imageID,
		Buyer:           caller.String(),
		Payment:         payment.String(),
		RegistryAddress: c.config.RegistryAddress.String(),
		TxID:            txID,
		Event:           ev,
	})
	if err != nil {
		return nil, err
	}

	c.publish(ctx, ev)
	return sold, nil
}
