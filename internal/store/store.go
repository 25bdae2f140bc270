package store

import (
	"context"

	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/store/schema"
)

// RegisterAreaInput carries one area registration. The store allocates the
// next area id, persists the record, appends the donor, credits the payment
// and appends the event in a single transaction.
type RegisterAreaInput struct {
	Name        string
	Description string
	Photo       string
	GeoJSON     []byte
	Country     string
	Donor       string
	Payment     string
	// CreditTo receives the donation (the registry address, or a relay)
	CreditTo string
	TxID     string
	// BuildEvent is invoked after id allocation so the notification can carry
	// the full stored record
	BuildEvent func(area *schema.ProtectedArea) (*domain.Event, error)
}

// RecordMonitoringInput carries one monitoring submission
type RecordMonitoringInput struct {
	AreaID                uint64
	Name                  string
	LastDetectionDate     string
	TotalExtension        string
	DetectionDates        []string
	ForestCoverExtensions []string
	Recorder              string
	TxID                  string
	BuildEvent            func(area *schema.ProtectedArea) (*domain.Event, error)
}

// MintImageInput carries one satellite image mint. Image id allocation, record
// creation and token issuance happen in one transaction.
type MintImageInput struct {
	AreaID   uint64
	AreaName string
	URI      string
	Price    string
	Seller   string
	TxID     string
	BuildEvent func(image *schema.SatelliteImage) (*domain.Event, error)
}

// EscrowImageInput transfers token custody to the registry pending a sale
type EscrowImageInput struct {
	ImageID uint64
	// Seller must be the current token owner
	Seller string
	// RegistryAddress takes custody of the token
	RegistryAddress string
	TxID            string
	Event           *domain.Event
}

// PurchaseImageInput carries one purchase. Sold-flag flip, token transfer and
// payout happen in one transaction; the sold flag is re-checked under the
// transaction so a raced duplicate purchase aborts.
type PurchaseImageInput struct {
	ImageID uint64
	Buyer   string
	Payment string
	// RegistryAddress is the intermediate account for the payment
	RegistryAddress string
	TxID            string
	Event           *domain.Event
}

// ApproveTokenInput sets the single approved address for a token
type ApproveTokenInput struct {
	TokenID uint64
	// Owner must be the current token owner
	Owner    string
	Approved string
	TxID     string
	Event    *domain.Event
}

// OperatorApprovalInput grants or revokes a blanket operator approval
type OperatorApprovalInput struct {
	Owner    string
	Operator string
	Approved bool
	TxID     string
	Event    *domain.Event
}

// RoleChangeInput grants or revokes a role
type RoleChangeInput struct {
	Role    string
	Address string
	By      string
	TxID    string
	Event   *domain.Event
}

// SetParameterInput updates a global scalar parameter
type SetParameterInput struct {
	Key   string
	Value string
	TxID  string
	Event *domain.Event
}

// WithdrawInput drains the registry balance to an admin
type WithdrawInput struct {
	RegistryAddress string
	To              string
	TxID            string
	// BuildEvent is invoked with the drained amount
	BuildEvent func(amount string) (*domain.Event, error)
}

// EventFilter narrows event journal queries
type EventFilter struct {
	Types  []string
	TxID   string
	Limit  int
	Offset int
}

// Store defines the interface for registry persistence. Mutating composite
// operations are atomic: every precondition failure aborts with a domain
// revert error and no partial effects.
type Store interface {
	// RegisterArea creates an area from a qualifying donation
	RegisterArea(ctx context.Context, input RegisterAreaInput) (*schema.ProtectedArea, error)
	// RecordMonitoring populates an area's monitoring snapshot (write-once)
	// and appends the submission to the audit trail
	RecordMonitoring(ctx context.Context, input RecordMonitoringInput) (*schema.ProtectedArea, error)
	// GetArea retrieves an area by id (nil if out of range)
	GetArea(ctx context.Context, areaID uint64) (*schema.ProtectedArea, error)
	// GetAreaByName retrieves an area by its unique name (nil if unknown)
	GetAreaByName(ctx context.Context, name string) (*schema.ProtectedArea, error)
	// ListAreas returns registered areas ordered by id plus the total count
	ListAreas(ctx context.Context, limit, offset int) ([]*schema.ProtectedArea, uint64, error)
	// ListAreasByName returns areas matching a name exactly, ordered by id,
	// plus the total match count
	ListAreasByName(ctx context.Context, name string, limit, offset int) ([]*schema.ProtectedArea, uint64, error)
	// IsNameUsed reports whether a name has been registered
	IsNameUsed(ctx context.Context, name string) (bool, error)

	// MintImage creates an image record and issues its token to the seller
	MintImage(ctx context.Context, input MintImageInput) (*schema.SatelliteImage, error)
	// EscrowImage transfers token custody to the registry
	EscrowImage(ctx context.Context, input EscrowImageInput) error
	// PurchaseImage flips the sold flag, transfers the token and pays out
	PurchaseImage(ctx context.Context, input PurchaseImageInput) (*schema.SatelliteImage, error)
	// GetImage retrieves an image by id (nil if out of range)
	GetImage(ctx context.Context, imageID uint64) (*schema.SatelliteImage, error)
	// ListImages returns minted images ordered by id plus the total count
	ListImages(ctx context.Context, limit, offset int) ([]*schema.SatelliteImage, uint64, error)
	// ListImagesByArea returns an area's image collection ordered by id
	ListImagesByArea(ctx context.Context, areaID uint64) ([]*schema.SatelliteImage, error)

	// GetToken retrieves token ownership state (nil if never minted)
	GetToken(ctx context.Context, tokenID uint64) (*schema.Token, error)
	// ApproveToken sets the approved address for a token
	ApproveToken(ctx context.Context, input ApproveTokenInput) error
	// SetOperatorApproval grants or revokes a blanket operator approval
	SetOperatorApproval(ctx context.Context, input OperatorApprovalInput) error
	// IsOperator reports whether operator holds a blanket approval from owner
	IsOperator(ctx context.Context, owner, operator string) (bool, error)

	// GrantRole grants a role to an address (idempotent)
	GrantRole(ctx context.Context, input RoleChangeInput) error
	// RevokeRole revokes a role; fails if the address does not hold it
	RevokeRole(ctx context.Context, input RoleChangeInput) error
	// HasRole reports whether an address holds a role
	HasRole(ctx context.Context, role, address string) (bool, error)

	// GetParameter reads a global scalar parameter ("" if unset)
	GetParameter(ctx context.Context, key string) (string, error)
	// SetParameter updates a global scalar parameter
	SetParameter(ctx context.Context, input SetParameterInput) error
	// GetBalance reads an account's on-ledger balance ("0" if absent)
	GetBalance(ctx context.Context, address string) (string, error)
	// Withdraw drains the registry balance, returning the drained amount
	Withdraw(ctx context.Context, input WithdrawInput) (string, error)

	// ListEvents queries the event journal ordered by insertion
	ListEvents(ctx context.Context, filter EventFilter) ([]*schema.ContractEvent, uint64, error)

	// CreateWebhookClient registers an event observer
	CreateWebhookClient(ctx context.Context, client *schema.WebhookClient) error
	// ListActiveWebhookClients returns observers eligible for delivery
	ListActiveWebhookClients(ctx context.Context) ([]*schema.WebhookClient, error)
	// CreateWebhookDelivery appends a delivery audit record
	CreateWebhookDelivery(ctx context.Context, delivery *schema.WebhookDelivery) error
	// UpdateWebhookDelivery updates a delivery audit record in place
	UpdateWebhookDelivery(ctx context.Context, delivery *schema.WebhookDelivery) error
}
