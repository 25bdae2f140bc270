// Package token implements ownership bookkeeping for satellite image tokens:
// per-token ownership, single-address approvals and blanket operator
// approvals, with the transfer guards of a non-fungible token ledger.
package token

import (
	"context"

	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/store"
)

// Ledger answers ownership and approval questions and applies approval
// changes. Ownership transfers themselves happen inside the store's composite
// sale operations so they stay atomic with the rest of the sale.
type Ledger struct {
	store store.Store
}

// NewLedger creates a token ledger backed by the given store
func NewLedger(s store.Store) *Ledger {
	return &Ledger{store: s}
}

// OwnerOf returns the current owner of a token
func (l *Ledger) OwnerOf(ctx context.Context, tokenID uint64) (domain.Address, error) {
	tok, err := l.store.GetToken(ctx, tokenID)
	if err != nil {
		return domain.ZeroAddress, err
	}
	if tok == nil {
		return domain.ZeroAddress, domain.ErrTokenNotFound
	}
	return domain.Address(tok.Owner), nil
}

// GetApproved returns the single approved address for a token, or the zero
// address when none is set
func (l *Ledger) GetApproved(ctx context.Context, tokenID uint64) (domain.Address, error) {
	tok, err := l.store.GetToken(ctx, tokenID)
	if err != nil {
		return domain.ZeroAddress, err
	}
	if tok == nil {
		return domain.ZeroAddress, domain.ErrTokenNotFound
	}
	if tok.Approved == nil {
		return domain.ZeroAddress, nil
	}
	return domain.Address(*tok.Approved), nil
}

// IsApprovedForAll reports whether operator holds a blanket approval from owner
func (l *Ledger) IsApprovedForAll(ctx context.Context, owner, operator domain.Address) (bool, error) {
	return l.store.IsOperator(ctx, owner.String(), operator.String())
}

// CanTransfer reports whether caller may move the token: it is the owner, the
// approved address, or an approved operator of the owner
func (l *Ledger) CanTransfer(ctx context.Context, caller domain.Address, tokenID uint64) (bool, error) {
	tok, err := l.store.GetToken(ctx, tokenID)
	if err != nil {
		return false, err
	}
	if tok == nil {
		return false, domain.ErrTokenNotFound
	}
	if tok.Owner == caller.String() {
		return true, nil
	}
	if tok.Approved != nil && *tok.Approved == caller.String() {
		return true, nil
	}
	return l.store.IsOperator(ctx, tok.Owner, caller.String())
}

// Approve sets the approved address for a token. The caller must be the
// token's owner or one of the owner's operators.
func (l *Ledger) Approve(ctx context.Context, caller, approved domain.Address, tokenID uint64, txID string, ev *domain.Event) error {
	tok, err := l.store.GetToken(ctx, tokenID)
	if err != nil {
		return err
	}
	if tok == nil {
		return domain.ErrTokenNotFound
	}
	if tok.Owner != caller.String() {
		isOperator, err := l.store.IsOperator(ctx, tok.Owner, caller.String())
		if err != nil {
			return err
		}
		if !isOperator {
			return domain.ErrNotApproved
		}
	}

	return l.store.ApproveToken(ctx, store.ApproveTokenInput{
		TokenID:  tokenID,
		Owner:    tok.Owner,
		Approved: approved.String(),
		TxID:     txID,
		Event:    ev,
	})
}

// SetApprovalForAll grants or revokes a blanket operator approval from the
// caller. Self-approval is rejected.
func (l *Ledger) SetApprovalForAll(ctx context.Context, caller, operator domain.Address, approved bool, txID string, ev *domain.Event) error {
	if caller == operator {
		return domain.ErrSameValue
	}

	return l.store.SetOperatorApproval(ctx, store.OperatorApprovalInput{
		Owner:    caller.String(),
		Operator: operator.String(),
		Approved: approved,
		TxID:     txID,
		Event:    ev,
	})
}
