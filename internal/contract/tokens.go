package contract

import (
	"context"

	"github.com/biorbit/biorbit/internal/domain"
)

// Approve sets the approved address for a token. The caller must own the
// token or hold an operator approval from its owner.
func (c *Contract) Approve(ctx context.Context, caller, approved domain.Address, tokenID uint64) error {
	if caller.IsZero() {
		return domain.ErrInvalidAddress
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	owner, err := c.tokens.OwnerOf(ctx, tokenID)
	if err != nil {
		return err
	}

	txID := newTxID()
	ev, err := c.newEvent(domain.EventTokenApproved, txID, domain.TokenApprovedPayload{
		TokenID:  tokenID,
		Owner:    owner,
		Approved: approved,
	})
	if err != nil {
		return err
	}

	if err := c.tokens.Approve(ctx, caller, approved, tokenID, txID, ev); err != nil {
		return err
	}

	c.publish(ctx, ev)
	return nil
}

// SetApprovalForAll grants or revokes a blanket operator approval from the
// caller. Approving the registry this way is the precondition for selling.
func (c *Contract) SetApprovalForAll(ctx context.Context, caller, operator domain.Address, approved bool) error {
	if caller.IsZero() || operator.IsZero() {
		return domain.ErrInvalidAddress
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	txID := newTxID()
	ev, err := c.newEvent(domain.EventOperatorApprovalSet, txID, domain.OperatorApprovalPayload{
		Owner:    caller,
		Operator: operator,
		Approved: approved,
	})
	if err != nil {
		return err
	}

	if err := c.tokens.SetApprovalForAll(ctx, caller, operator, approved, txID, ev); err != nil {
		return err
	}

	c.publish(ctx, ev)
	return nil
}

// OwnerOf returns the current owner of a token
func (c *Contract) OwnerOf(ctx context.Context, tokenID uint64) (domain.Address, error) {
	return c.tokens.OwnerOf(ctx, tokenID)
}

// GetApproved returns the approved address for a token, zero when unset
func (c *Contract) GetApproved(ctx context.Context, tokenID uint64) (domain.Address, error) {
	return c.tokens.GetApproved(ctx, tokenID)
}

// IsApprovedForAll reports whether operator holds a blanket approval from owner
func (c *Contract) IsApprovedForAll(ctx context.Context, owner, operator domain.Address) (bool, error) {
	return c.tokens.IsApprovedForAll(ctx, owner, operator)
}
