package contract

import (
	"context"

	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/store"
)

// SetDonation updates the minimum registration payment. Admin only.
func (c *Contract) SetDonation(ctx context.Context, caller domain.Address, value domain.Amount) error {
	return c.setParameter(ctx, caller, domain.ParamDonation, value)
}

// SetPrice updates the per-image mint price. Admin only.
func (c *Contract) SetPrice(ctx context.Context, caller domain.Address, value domain.Amount) error {
	return c.setParameter(ctx, caller, domain.ParamPrice, value)
}

func (c *Contract) setParameter(ctx context.Context, caller domain.Address, key string, value domain.Amount) error {
	if err := c.requireRole(ctx, domain.RoleAdmin, caller); err != nil {
		return err
	}
	if value.IsZero() {
		return domain.ErrZeroValue
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.parameter(ctx, key)
	if err != nil {
		return err
	}
	if value.Equal(current) {
		return domain.ErrSameValue
	}

	txID := newTxID()
	ev, err := c.newEvent(domain.EventParameterUpdated, txID, domain.ParameterUpdatedPayload{
		Key:      key,
		Previous: current,
		Current:  value,
	})
	if err != nil {
		return err
	}

	err = c.store.SetParameter(ctx, store.SetParameterInput{
		Key:   key,
		Value: value.String(),
		TxID:  txID,
		Event: ev,
	})
	if err != nil {
		return err
	}

	c.publish(ctx, ev)
	return nil
}

// Donation returns the current minimum registration payment
func (c *Contract) Donation(ctx context.Context) (domain.Amount, error) {
	return c.parameter(ctx, domain.ParamDonation)
}

// Price returns the current per-image mint price
func (c *Contract) Price(ctx context.Context) (domain.Amount, error) {
	return c.parameter(ctx, domain.ParamPrice)
}

// Withdraw drains the full registry balance to the calling admin. Fails when
// the balance is zero.
func (c *Contract) Withdraw(ctx context.Context, caller domain.Address) (domain.Amount, error) {
	if err := c.requireRole(ctx, domain.RoleAdmin, caller); err != nil {
		return domain.ZeroAmount(), err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	txID := newTxID()
	var ev *domain.Event

	drained, err := c.store.Withdraw(ctx, store.WithdrawInput{
		RegistryAddress: c.config.RegistryAddress.String(),
		To:              caller.String(),
		TxID:            txID,
		BuildEvent: func(amount string) (*domain.Event, error) {
			parsed, err := domain.NewAmount(amount)
			if err != nil {
				return nil, err
			}
			ev, err = c.newEvent(domain.EventFundsWithdrawn, txID, domain.FundsWithdrawnPayload{
				To:     caller,
				Amount: parsed,
			})
			return ev, err
		},
	})
	if err != nil {
		return domain.ZeroAmount(), err
	}

	c.publish(ctx, ev)
	return domain.NewAmount(drained)
}

// GrantRole grants a role to an address. Default admin only; granting a held
// role is a no-op.
func (c *Contract) GrantRole(ctx context.Context, caller domain.Address, role domain.Role, address domain.Address) error {
	return c.changeRole(ctx, caller, role, address, true)
}

// RevokeRole revokes a role from an address. Default admin only; revoking an
// unheld role fails.
func (c *Contract) RevokeRole(ctx context.Context, caller domain.Address, role domain.Role, address domain.Address) error {
	return c.changeRole(ctx, caller, role, address, false)
}

func (c *Contract) changeRole(ctx context.Context, caller domain.Address, role domain.Role, address domain.Address, grant bool) error {
	if err := c.requireRole(ctx, domain.RoleDefaultAdmin, caller); err != nil {
		return err
	}
	if !domain.IsValidRole(role) {
		return domain.ErrRoleNotGranted
	}
	if address.IsZero() {
		return domain.ErrInvalidAddress
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	txID := newTxID()
	typ := domain.EventRoleGranted
	if !grant {
		typ = domain.EventRoleRevoked
	}
	ev, err := c.newEvent(typ, txID, domain.RoleChangedPayload{
		Role:    role,
		Address: address,
		By:      caller,
	})
	if err != nil {
		return err
	}

	input := store.RoleChangeInput{
		Role:    string(role),
		Address: address.String(),
		By:      caller.String(),
		TxID:    txID,
		Event:   ev,
	}
	if grant {
		err = c.store.GrantRole(ctx, input)
	} else {
		err = c.store.RevokeRole(ctx, input)
	}
	if err != nil {
		return err
	}

	c.publish(ctx, ev)
	return nil
}

// HasRole reports whether an address holds a role
func (c *Contract) HasRole(ctx context.Context, role domain.Role, address domain.Address) (bool, error) {
	return c.store.HasRole(ctx, string(role), address.String())
}
