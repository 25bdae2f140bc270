package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/store/schema"
)

const (
	registryAddr = "0x00000000000000000000000000000000000000Fe"
	donorAddr    = "0x2222222222222222222222222222222222222222"
	sellerAddr   = "0x1111111111111111111111111111111111111111"
	buyerAddr    = "0x3333333333333333333333333333333333333333"
)

// =============================================================================
// Test Data Builders
// =============================================================================

func testEvent(t *testing.T, typ domain.EventType) *domain.Event {
	t.Helper()
	ev, err := domain.NewEvent(ulid.Make().String(), typ, uuid.NewString(), time.Now().UTC(),
		map[string]string{"type": string(typ)})
	require.NoError(t, err)
	return ev
}

func buildRegisterInput(t *testing.T, name, payment string) RegisterAreaInput {
	t.Helper()
	return RegisterAreaInput{
		Name:        name,
		Description: "description of " + name,
		Photo:       "ipfs://photo",
		Country:     "Ecuador",
		Donor:       donorAddr,
		Payment:     payment,
		CreditTo:    registryAddr,
		TxID:        uuid.NewString(),
		BuildEvent: func(area *schema.ProtectedArea) (*domain.Event, error) {
			return testEvent(t, domain.EventAreaRegistered), nil
		},
	}
}

func registerArea(t *testing.T, s Store, name string) *schema.ProtectedArea {
	t.Helper()
	area, err := s.RegisterArea(context.Background(), buildRegisterInput(t, name, "1000"))
	require.NoError(t, err)
	return area
}

func mintImage(t *testing.T, s Store, area *schema.ProtectedArea, uri string) *schema.SatelliteImage {
	t.Helper()
	image, err := s.MintImage(context.Background(), MintImageInput{
		AreaID:   area.AreaID,
		AreaName: area.Name,
		URI:      uri,
		Price:    "500",
		Seller:   sellerAddr,
		TxID:     uuid.NewString(),
		BuildEvent: func(image *schema.SatelliteImage) (*domain.Event, error) {
			return testEvent(t, domain.EventImageMinted), nil
		},
	})
	require.NoError(t, err)
	return image
}

func approveRegistryOperator(t *testing.T, s Store) {
	t.Helper()
	err := s.SetOperatorApproval(context.Background(), OperatorApprovalInput{
		Owner:    sellerAddr,
		Operator: registryAddr,
		Approved: true,
		TxID:     uuid.NewString(),
		Event:    testEvent(t, domain.EventOperatorApprovalSet),
	})
	require.NoError(t, err)
}

// =============================================================================
// Tests
// =============================================================================

func testRegisterArea(t *testing.T, s Store) {
	ctx := context.Background()

	area := registerArea(t, s, "Yasuni")
	assert.Equal(t, uint64(0), area.AreaID)
	assert.Equal(t, "Yasuni", area.Name)
	assert.Equal(t, donorAddr, area.RegisteredBy)
	assert.Nil(t, area.LastDetectionDate)

	// Ids are sequential and a rejected duplicate does not burn one
	_, err := s.RegisterArea(ctx, buildRegisterInput(t, "Yasuni", "1000"))
	assert.ErrorIs(t, err, domain.ErrNameTaken)

	second := registerArea(t, s, "Sangay")
	assert.Equal(t, uint64(1), second.AreaID)

	// The payment landed on the registry balance
	balance, err := s.GetBalance(ctx, registryAddr)
	require.NoError(t, err)
	assert.Equal(t, "2000", balance)

	// The registration appended an event row
	events, total, err := s.ListEvents(ctx, EventFilter{
		Types: []string{string(domain.EventAreaRegistered)},
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Len(t, events, 2)
}

func testRecordMonitoring(t *testing.T, s Store) {
	ctx := context.Background()
	area := registerArea(t, s, "Yasuni")

	input := RecordMonitoringInput{
		AreaID:                area.AreaID,
		Name:                  area.Name,
		LastDetectionDate:     "2025-06-01",
		TotalExtension:        "9820.55",
		DetectionDates:        []string{"2025-03-01", "2025-06-01"},
		ForestCoverExtensions: []string{"9900.00", "9820.55"},
		Recorder:              sellerAddr,
		TxID:                  uuid.NewString(),
		BuildEvent: func(area *schema.ProtectedArea) (*domain.Event, error) {
			return testEvent(t, domain.EventMonitoringRecorded), nil
		},
	}

	badID := input
	badID.AreaID = 99
	_, err := s.RecordMonitoring(ctx, badID)
	assert.ErrorIs(t, err, domain.ErrAreaNotFound)

	badName := input
	badName.Name = "Sangay"
	_, err = s.RecordMonitoring(ctx, badName)
	assert.ErrorIs(t, err, domain.ErrNameMismatch)

	updated, err := s.RecordMonitoring(ctx, input)
	require.NoError(t, err)
	require.NotNil(t, updated.LastDetectionDate)
	assert.Equal(t, "2025-06-01", *updated.LastDetectionDate)
	require.NotNil(t, updated.TotalExtension)
	assert.Equal(t, "9820.55", *updated.TotalExtension)
	assert.JSONEq(t, `["2025-03-01","2025-06-01"]`, string(updated.DetectionDates))

	// The snapshot is write-once
	_, err = s.RecordMonitoring(ctx, input)
	assert.ErrorIs(t, err, domain.ErrMonitoringRecorded)
}

func testAreaQueries(t *testing.T, s Store) {
	ctx := context.Background()

	names := []string{"Yasuni", "Sangay", "Cotopaxi"}
	for _, name := range names {
		registerArea(t, s, name)
	}

	got, err := s.GetArea(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Sangay", got.Name)

	missing, err := s.GetArea(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byName, err := s.GetAreaByName(ctx, "Cotopaxi")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, uint64(2), byName.AreaID)

	areas, total, err := s.ListAreas(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	require.Len(t, areas, 2)
	assert.Equal(t, "Sangay", areas[0].Name)

	matched, matchTotal, err := s.ListAreasByName(ctx, "Yasuni", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), matchTotal)
	assert.Len(t, matched, 1)

	used, err := s.IsNameUsed(ctx, "Yasuni")
	require.NoError(t, err)
	assert.True(t, used)

	used, err = s.IsNameUsed(ctx, "Galapagos")
	require.NoError(t, err)
	assert.False(t, used)
}

func testMintImage(t *testing.T, s Store) {
	ctx := context.Background()
	area := registerArea(t, s, "Yasuni")

	image := mintImage(t, s, area, "ipfs://img0")
	assert.Equal(t, uint64(0), image.ImageID)
	assert.Equal(t, area.AreaID, image.AreaID)
	assert.Equal(t, "Yasuni", image.AreaName)
	assert.Equal(t, "500", image.Price)
	assert.False(t, image.Sold)

	// The token was issued to the seller
	token, err := s.GetToken(ctx, image.ImageID)
	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, sellerAddr, token.Owner)
	assert.Nil(t, token.Approved)

	// Name/id validation
	_, err = s.MintImage(ctx, MintImageInput{
		AreaID:   area.AreaID,
		AreaName: "Sangay",
		URI:      "ipfs://img1",
		Price:    "500",
		Seller:   sellerAddr,
		TxID:     uuid.NewString(),
		BuildEvent: func(image *schema.SatelliteImage) (*domain.Event, error) {
			return testEvent(t, domain.EventImageMinted), nil
		},
	})
	assert.ErrorIs(t, err, domain.ErrNameMismatch)

	second := mintImage(t, s, area, "ipfs://img1")
	assert.Equal(t, uint64(1), second.ImageID)
}

func testEscrowImage(t *testing.T, s Store) {
	ctx := context.Background()
	area := registerArea(t, s, "Yasuni")
	image := mintImage(t, s, area, "ipfs://img0")

	escrow := EscrowImageInput{
		ImageID:         image.ImageID,
		Seller:          sellerAddr,
		RegistryAddress: registryAddr,
		TxID:            uuid.NewString(),
		Event:           testEvent(t, domain.EventImageListed),
	}

	// No approval yet
	err := s.EscrowImage(ctx, escrow)
	assert.ErrorIs(t, err, domain.ErrNotApproved)

	// Wrong seller
	badSeller := escrow
	badSeller.Seller = buyerAddr
	err = s.EscrowImage(ctx, badSeller)
	assert.ErrorIs(t, err, domain.ErrNotTokenOwner)

	approveRegistryOperator(t, s)
	require.NoError(t, s.EscrowImage(ctx, escrow))

	token, err := s.GetToken(ctx, image.ImageID)
	require.NoError(t, err)
	assert.Equal(t, registryAddr, token.Owner)

	// Unknown image
	unknown := escrow
	unknown.ImageID = 99
	err = s.EscrowImage(ctx, unknown)
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}

func testEscrowViaTokenApproval(t *testing.T, s Store) {
	ctx := context.Background()
	area := registerArea(t, s, "Yasuni")
	image := mintImage(t, s, area, "ipfs://img0")

	err := s.ApproveToken(ctx, ApproveTokenInput{
		TokenID:  image.ImageID,
		Owner:    sellerAddr,
		Approved: registryAddr,
		TxID:     uuid.NewString(),
		Event:    testEvent(t, domain.EventTokenApproved),
	})
	require.NoError(t, err)

	err = s.EscrowImage(ctx, EscrowImageInput{
		ImageID:         image.ImageID,
		Seller:          sellerAddr,
		RegistryAddress: registryAddr,
		TxID:            uuid.NewString(),
		Event:           testEvent(t, domain.EventImageListed),
	})
	require.NoError(t, err)

	// Escrow clears the per-token approval
	token, err := s.GetToken(ctx, image.ImageID)
	require.NoError(t, err)
	assert.Equal(t, registryAddr, token.Owner)
	assert.Nil(t, token.Approved)
}

func testPurchaseImage(t *testing.T, s Store) {
	ctx := context.Background()
	area := registerArea(t, s, "Yasuni")
	image := mintImage(t, s, area, "ipfs://img0")

	purchase := PurchaseImageInput{
		ImageID:         image.ImageID,
		Buyer:           buyerAddr,
		Payment:         "500",
		RegistryAddress: registryAddr,
		TxID:            uuid.NewString(),
		Event:           testEvent(t, domain.EventImageSold),
	}

	wrong := purchase
	wrong.Payment = "499"
	_, err := s.PurchaseImage(ctx, wrong)
	assert.ErrorIs(t, err, domain.ErrWrongPayment)

	sold, err := s.PurchaseImage(ctx, purchase)
	require.NoError(t, err)
	assert.True(t, sold.Sold)

	// Ownership moved to the buyer
	token, err := s.GetToken(ctx, image.ImageID)
	require.NoError(t, err)
	assert.Equal(t, buyerAddr, token.Owner)

	// The seller was paid the image's price
	balance, err := s.GetBalance(ctx, sellerAddr)
	require.NoError(t, err)
	assert.Equal(t, "500", balance)

	// Sold is one-way
	_, err = s.PurchaseImage(ctx, purchase)
	assert.ErrorIs(t, err, domain.ErrAlreadySold)

	unknown := purchase
	unknown.ImageID = 99
	_, err = s.PurchaseImage(ctx, unknown)
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}

func testImageQueries(t *testing.T, s Store) {
	ctx := context.Background()
	yasuni := registerArea(t, s, "Yasuni")
	sangay := registerArea(t, s, "Sangay")

	mintImage(t, s, yasuni, "ipfs://img0")
	mintImage(t, s, yasuni, "ipfs://img1")
	mintImage(t, s, sangay, "ipfs://img2")

	got, err := s.GetImage(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ipfs://img1", got.URI)

	missing, err := s.GetImage(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	images, total, err := s.ListImages(ctx, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), total)
	assert.Len(t, images, 2)

	byArea, err := s.ListImagesByArea(ctx, yasuni.AreaID)
	require.NoError(t, err)
	assert.Len(t, byArea, 2)
}

func testTokenApprovals(t *testing.T, s Store) {
	ctx := context.Background()
	area := registerArea(t, s, "Yasuni")
	image := mintImage(t, s, area, "ipfs://img0")

	// Only the owner may be recorded as approver
	err := s.ApproveToken(ctx, ApproveTokenInput{
		TokenID:  image.ImageID,
		Owner:    buyerAddr,
		Approved: registryAddr,
		TxID:     uuid.NewString(),
		Event:    testEvent(t, domain.EventTokenApproved),
	})
	assert.ErrorIs(t, err, domain.ErrNotTokenOwner)

	err = s.ApproveToken(ctx, ApproveTokenInput{
		TokenID:  image.ImageID,
		Owner:    sellerAddr,
		Approved: buyerAddr,
		TxID:     uuid.NewString(),
		Event:    testEvent(t, domain.EventTokenApproved),
	})
	require.NoError(t, err)

	token, err := s.GetToken(ctx, image.ImageID)
	require.NoError(t, err)
	require.NotNil(t, token.Approved)
	assert.Equal(t, buyerAddr, *token.Approved)

	// Operator approvals
	isOp, err := s.IsOperator(ctx, sellerAddr, registryAddr)
	require.NoError(t, err)
	assert.False(t, isOp)

	approveRegistryOperator(t, s)
	isOp, err = s.IsOperator(ctx, sellerAddr, registryAddr)
	require.NoError(t, err)
	assert.True(t, isOp)

	// Granting twice stays consistent
	approveRegistryOperator(t, s)
	isOp, err = s.IsOperator(ctx, sellerAddr, registryAddr)
	require.NoError(t, err)
	assert.True(t, isOp)

	// Revocation
	err = s.SetOperatorApproval(ctx, OperatorApprovalInput{
		Owner:    sellerAddr,
		Operator: registryAddr,
		Approved: false,
		TxID:     uuid.NewString(),
		Event:    testEvent(t, domain.EventOperatorApprovalSet),
	})
	require.NoError(t, err)

	isOp, err = s.IsOperator(ctx, sellerAddr, registryAddr)
	require.NoError(t, err)
	assert.False(t, isOp)
}

func testRoles(t *testing.T, s Store) {
	ctx := context.Background()

	grant := RoleChangeInput{
		Role:    string(domain.RoleAdmin),
		Address: sellerAddr,
		By:      donorAddr,
		TxID:    uuid.NewString(),
		Event:   testEvent(t, domain.EventRoleGranted),
	}

	held, err := s.HasRole(ctx, string(domain.RoleAdmin), sellerAddr)
	require.NoError(t, err)
	assert.False(t, held)

	require.NoError(t, s.GrantRole(ctx, grant))
	held, err = s.HasRole(ctx, string(domain.RoleAdmin), sellerAddr)
	require.NoError(t, err)
	assert.True(t, held)

	// Granting twice is a no-op
	require.NoError(t, s.GrantRole(ctx, grant))

	revoke := grant
	revoke.Event = testEvent(t, domain.EventRoleRevoked)
	require.NoError(t, s.RevokeRole(ctx, revoke))

	held, err = s.HasRole(ctx, string(domain.RoleAdmin), sellerAddr)
	require.NoError(t, err)
	assert.False(t, held)

	// Revoking an unheld role fails
	revoke.Event = testEvent(t, domain.EventRoleRevoked)
	err = s.RevokeRole(ctx, revoke)
	assert.ErrorIs(t, err, domain.ErrRoleNotGranted)
}

func testParameters(t *testing.T, s Store) {
	ctx := context.Background()

	value, err := s.GetParameter(ctx, domain.ParamDonation)
	require.NoError(t, err)
	assert.Empty(t, value)

	err = s.SetParameter(ctx, SetParameterInput{
		Key:   domain.ParamDonation,
		Value: "1000",
		TxID:  uuid.NewString(),
		Event: testEvent(t, domain.EventParameterUpdated),
	})
	require.NoError(t, err)

	value, err = s.GetParameter(ctx, domain.ParamDonation)
	require.NoError(t, err)
	assert.Equal(t, "1000", value)

	err = s.SetParameter(ctx, SetParameterInput{
		Key:   domain.ParamDonation,
		Value: "2000",
		TxID:  uuid.NewString(),
		Event: testEvent(t, domain.EventParameterUpdated),
	})
	require.NoError(t, err)

	value, err = s.GetParameter(ctx, domain.ParamDonation)
	require.NoError(t, err)
	assert.Equal(t, "2000", value)
}

func testWithdraw(t *testing.T, s Store) {
	ctx := context.Background()

	input := WithdrawInput{
		RegistryAddress: registryAddr,
		To:              sellerAddr,
		TxID:            uuid.NewString(),
		BuildEvent: func(amount string) (*domain.Event, error) {
			return testEvent(t, domain.EventFundsWithdrawn), nil
		},
	}

	_, err := s.Withdraw(ctx, input)
	assert.ErrorIs(t, err, domain.ErrNoBalance)

	registerArea(t, s, "Yasuni")
	registerArea(t, s, "Sangay")

	drained, err := s.Withdraw(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, "2000", drained)

	balance, err := s.GetBalance(ctx, registryAddr)
	require.NoError(t, err)
	assert.Equal(t, "0", balance)

	balance, err = s.GetBalance(ctx, sellerAddr)
	require.NoError(t, err)
	assert.Equal(t, "2000", balance)

	_, err = s.Withdraw(ctx, input)
	assert.ErrorIs(t, err, domain.ErrNoBalance)
}

func testEventJournal(t *testing.T, s Store) {
	ctx := context.Background()

	area := registerArea(t, s, "Yasuni")
	mintImage(t, s, area, "ipfs://img0")

	all, total, err := s.ListEvents(ctx, EventFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Len(t, all, 2)

	mints, total, err := s.ListEvents(ctx, EventFilter{
		Types: []string{string(domain.EventImageMinted)},
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	require.Len(t, mints, 1)
	assert.Equal(t, string(domain.EventImageMinted), mints[0].EventType)

	byTx, total, err := s.ListEvents(ctx, EventFilter{TxID: mints[0].TxID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), total)
	assert.Len(t, byTx, 1)
}

func testWebhookClients(t *testing.T, s Store) {
	ctx := context.Background()

	client := &schema.WebhookClient{
		ClientID:         uuid.NewString(),
		WebhookURL:       "https://observer.example.com/hooks",
		WebhookSecret:    "73656372657431",
		EventFilters:     []byte(`["*"]`),
		IsActive:         true,
		RetryMaxAttempts: 5,
	}
	require.NoError(t, s.CreateWebhookClient(ctx, client))

	inactive := &schema.WebhookClient{
		ClientID:         uuid.NewString(),
		WebhookURL:       "https://sleeping.example.com/hooks",
		WebhookSecret:    "73656372657432",
		EventFilters:     []byte(`["image.sold"]`),
		IsActive:         false,
		RetryMaxAttempts: 3,
	}
	require.NoError(t, s.CreateWebhookClient(ctx, inactive))

	active, err := s.ListActiveWebhookClients(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, client.ClientID, active[0].ClientID)
}

func testWebhookDeliveries(t *testing.T, s Store) {
	ctx := context.Background()

	delivery := &schema.WebhookDelivery{
		ClientID:       uuid.NewString(),
		EventID:        ulid.Make().String(),
		EventType:      string(domain.EventImageSold),
		Payload:        []byte(`{"image_id":0}`),
		DeliveryStatus: schema.WebhookDeliveryStatusPending,
	}
	require.NoError(t, s.CreateWebhookDelivery(ctx, delivery))
	require.NotZero(t, delivery.ID)

	now := time.Now().UTC()
	status := 200
	delivery.DeliveryStatus = schema.WebhookDeliveryStatusSuccess
	delivery.Attempts = 2
	delivery.LastAttemptAt = &now
	delivery.ResponseStatus = &status
	require.NoError(t, s.UpdateWebhookDelivery(ctx, delivery))
}

// RunStoreTests runs the shared suite against a Store implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"RegisterArea", testRegisterArea},
		{"RecordMonitoring", testRecordMonitoring},
		{"AreaQueries", testAreaQueries},
		{"MintImage", testMintImage},
		{"EscrowImage", testEscrowImage},
		{"EscrowViaTokenApproval", testEscrowViaTokenApproval},
		{"PurchaseImage", testPurchaseImage},
		{"ImageQueries", testImageQueries},
		{"TokenApprovals", testTokenApprovals},
		{"Roles", testRoles},
		{"Parameters", testParameters},
		{"Withdraw", testWithdraw},
		{"EventJournal", testEventJournal},
		{"WebhookClients", testWebhookClients},
		{"WebhookDeliveries", testWebhookDeliveries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}

// TestMemoryStore runs the shared suite against the in-memory implementation
func TestMemoryStore(t *testing.T) {
	RunStoreTests(t,
		func(t *testing.T) Store { return NewMemoryStore() },
		func(t *testing.T) {},
	)
}
