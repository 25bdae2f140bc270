// Package contract implements the Biorbit registry state machine: protected
// area registration funded by donations, write-once monitoring snapshots,
// tokenized satellite imagery with mint/sell/buy flows, role gating, global
// parameters and a withdrawable registry balance. Every mutating entry point
// runs as one atomic store transaction, appends a journaled event and
// publishes it to the broker after commit.
package contract

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/biorbit/biorbit/internal/adapter"
	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/logger"
	"github.com/biorbit/biorbit/internal/messaging"
	"github.com/biorbit/biorbit/internal/store"
	"github.com/biorbit/biorbit/internal/token"
)

// Config holds the registry's deployment parameters
type Config struct {
	// RegistryAddress is the contract's own account. It escrows listed tokens
	// and accumulates donations and purchase payments.
	RegistryAddress domain.Address
	// RelayAddress, when set, receives donations instead of the registry
	RelayAddress domain.Address
	// Deployer is granted both roles at bootstrap
	Deployer domain.Address
	// InitialDonation is the starting minimum registration payment
	InitialDonation domain.Amount
	// InitialPrice is the starting per-image mint price
	InitialPrice domain.Amount
}

// Contract is the registry state machine. Mutating entry points are
// serialized; the sell/buy paths additionally reject nested invocations.
type Contract struct {
	store     store.Store
	tokens    *token.Ledger
	publisher messaging.Publisher
	clock     adapter.Clock
	config    Config

	mu      sync.Mutex
	trading atomic.Bool
}

// New creates a registry contract over the given store
func New(cfg Config, st store.Store, publisher messaging.Publisher, clock adapter.Clock) *Contract {
	return &Contract{
		store:     st,
		tokens:    token.NewLedger(st),
		publisher: publisher,
		clock:     clock,
		config:    cfg,
	}
}

// Tokens exposes the token ownership ledger
func (c *Contract) Tokens() *token.Ledger {
	return c.tokens
}

// Bootstrap grants the deployer both roles and seeds the donation and price
// parameters. Safe to call on every startup; existing values are kept.
func (c *Contract) Bootstrap(ctx context.Context) error {
	txID := newTxID()

	for _, role := range []domain.Role{domain.RoleDefaultAdmin, domain.RoleAdmin} {
		held, err := c.store.HasRole(ctx, string(role), c.config.Deployer.String())
		if err != nil {
			return err
		}
		if held {
			continue
		}

		ev, err := c.newEvent(domain.EventRoleGranted, txID, domain.RoleChangedPayload{
			Role:    role,
			Address: c.config.Deployer,
			By:      c.config.Deployer,
		})
		if err != nil {
			return err
		}
		err = c.store.GrantRole(ctx, store.RoleChangeInput{
			Role:    string(role),
			Address: c.config.Deployer.String(),
			By:      c.config.Deployer.String(),
			TxID:    txID,
			Event:   ev,
		})
		if err != nil {
			return err
		}
		c.publish(ctx, ev)
	}

	seeds := map[string]domain.Amount{
		domain.ParamDonation: c.config.InitialDonation,
		domain.ParamPrice:    c.config.InitialPrice,
	}
	for key, value := range seeds {
		current, err := c.store.GetParameter(ctx, key)
		if err != nil {
			return err
		}
		if current != "" {
			continue
		}
		err = c.store.SetParameter(ctx, store.SetParameterInput{
			Key:   key,
			Value: value.String(),
			TxID:  txID,
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// newTxID mints the invocation id carried by journal rows and events
func newTxID() string {
	return uuid.NewString()
}

// newEvent builds a journaled event with a fresh ULID and the current time
func (c *Contract) newEvent(typ domain.EventType, txID string, payload any) (*domain.Event, error) {
	return domain.NewEvent(ulid.Make().String(), typ, txID, c.clock.Now().UTC(), payload)
}

// publish sends a committed event to the broker. The journal row is already
// durable, so a publish failure is logged rather than surfaced.
func (c *Contract) publish(ctx context.Context, ev *domain.Event) {
	if ev == nil || c.publisher == nil {
		return
	}
	if err := c.publisher.PublishEvent(ctx, ev); err != nil {
		logger.ErrorCtx(ctx, err,
			zap.String("message", "Failed to publish event"),
			zap.String("event_id", ev.EventID),
			zap.String("type", string(ev.Type)))
	}
}

// requireRole fails with ErrUnauthorized unless caller holds the role
func (c *Contract) requireRole(ctx context.Context, role domain.Role, caller domain.Address) error {
	if caller.IsZero() {
		return domain.ErrInvalidAddress
	}
	held, err := c.store.HasRole(ctx, string(role), caller.String())
	if err != nil {
		return err
	}
	if !held {
		return domain.ErrUnauthorized
	}
	return nil
}

// donationTarget is the account credited by registration payments
func (c *Contract) donationTarget() domain.Address {
	if !c.config.RelayAddress.IsZero() {
		return c.config.RelayAddress
	}
	return c.config.RegistryAddress
}

// parameter reads a global amount parameter, zero when unset
func (c *Contract) parameter(ctx context.Context, key string) (domain.Amount, error) {
	raw, err := c.store.GetParameter(ctx, key)
	if err != nil {
		return domain.ZeroAmount(), err
	}
	if raw == "" {
		return domain.ZeroAmount(), nil
	}
	return domain.NewAmount(raw)
}

// beginTrade takes the non-blocking reentrancy guard for sell/buy. A nested
// invocation while one is in flight fails instead of waiting.
func (c *Contract) beginTrade() error {
	if !c.trading.CompareAndSwap(false, true) {
		return domain.ErrReentrantCall
	}
	return nil
}

func (c *Contract) endTrade() {
	c.trading.Store(false)
}
