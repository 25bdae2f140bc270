package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/store/schema"
)

// Sequence keys in key_value_store
const (
	seqAreaKey  = "seq:area"
	seqImageKey = "seq:image"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates every registry table
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.ProtectedArea{},
		&schema.Donor{},
		&schema.MonitoringUpdate{},
		&schema.SatelliteImage{},
		&schema.Token{},
		&schema.OperatorApproval{},
		&schema.RoleGrant{},
		&schema.AccountBalance{},
		&schema.ValueTransfer{},
		&schema.ContractEvent{},
		&schema.KeyValueStore{},
		&schema.WebhookClient{},
		&schema.WebhookDelivery{},
	)
}

// ConfigureConnectionPool tunes the underlying sql.DB pool. Zero values fall
// back to defaults (20 open, 5 idle, 5m lifetime, 10m idle time).
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// nextSequence allocates the next id for key under a row lock so ids stay
// gapless across concurrent transactions. Values start at zero.
func nextSequence(tx *gorm.DB, key string) (uint64, error) {
	var kv schema.KeyValueStore
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("key = ?", key).
		First(&kv).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("failed to read sequence %s: %w", key, err)
		}
		kv = schema.KeyValueStore{Key: key, Value: "0"}
	}

	next, err := strconv.ParseUint(kv.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse sequence %s: %w", key, err)
	}

	kv.Value = strconv.FormatUint(next+1, 10)
	if err := tx.Save(&kv).Error; err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s: %w", key, err)
	}

	return next, nil
}

// addAmounts sums two decimal strings
func addAmounts(a, b string) (string, error) {
	x, ok := new(big.Int).SetString(a, 10)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAmount, a)
	}
	y, ok := new(big.Int).SetString(b, 10)
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidAmount, b)
	}
	return new(big.Int).Add(x, y).String(), nil
}

// creditBalance adds amount to the address's on-ledger balance
func creditBalance(tx *gorm.DB, address, amount string) error {
	var bal schema.AccountBalance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", address).
		First(&bal).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to read balance: %w", err)
		}
		bal = schema.AccountBalance{Address: address, Balance: "0"}
	}

	sum, err := addAmounts(bal.Balance, amount)
	if err != nil {
		return err
	}
	bal.Balance = sum
	if err := tx.Save(&bal).Error; err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}
	return nil
}

// setBalance overwrites the address's balance (used for drains)
func setBalance(tx *gorm.DB, address, amount string) error {
	bal := schema.AccountBalance{Address: address, Balance: amount}
	if err := tx.Save(&bal).Error; err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return nil
}

// recordTransfer appends one row to the value-transfer journal
func recordTransfer(tx *gorm.DB, txID, from, to, amount, reason string) error {
	transfer := schema.ValueTransfer{
		TxID:        txID,
		FromAddress: from,
		ToAddress:   to,
		Amount:      amount,
		Reason:      reason,
	}
	if err := tx.Create(&transfer).Error; err != nil {
		return fmt.Errorf("failed to record value transfer: %w", err)
	}
	return nil
}

// insertEvent appends the event journal row inside the mutation's transaction
func insertEvent(tx *gorm.DB, ev *domain.Event) error {
	if ev == nil {
		return nil
	}
	row := schema.ContractEvent{
		EventID:   ev.EventID,
		EventType: string(ev.Type),
		TxID:      ev.TxID,
		Digest:    ev.Digest,
		Payload:   datatypes.JSON(ev.Payload),
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

// marshalSeries encodes a string series as a JSON column value
func marshalSeries(values []string) (datatypes.JSON, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal series: %w", err)
	}
	return datatypes.JSON(raw), nil
}

// RegisterArea creates an area from a qualifying donation
func (s *pgStore) RegisterArea(ctx context.Context, input RegisterAreaInput) (*schema.ProtectedArea, error) {
	var area *schema.ProtectedArea
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Reject used names under the transaction; the unique index backs this
		var count int64
		if err := tx.Model(&schema.ProtectedArea{}).
			Where("name = ?", input.Name).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check name: %w", err)
		}
		if count > 0 {
			return domain.ErrNameTaken
		}

		areaID, err := nextSequence(tx, seqAreaKey)
		if err != nil {
			return err
		}

		area = &schema.ProtectedArea{
			AreaID:       areaID,
			Name:         input.Name,
			Description:  input.Description,
			Photo:        input.Photo,
			Country:      input.Country,
			RegisteredBy: input.Donor,
		}
		if len(input.GeoJSON) > 0 {
			area.GeoJSON = datatypes.JSON(input.GeoJSON)
		}
		if err := tx.Create(area).Error; err != nil {
			return fmt.Errorf("failed to create area: %w", err)
		}

		donor := schema.Donor{
			AreaID:  areaID,
			Address: input.Donor,
			Amount:  input.Payment,
		}
		if err := tx.Create(&donor).Error; err != nil {
			return fmt.Errorf("failed to record donor: %w", err)
		}

		if err := creditBalance(tx, input.CreditTo, input.Payment); err != nil {
			return err
		}
		if err := recordTransfer(tx, input.TxID, input.Donor, input.CreditTo, input.Payment, "donation"); err != nil {
			return err
		}

		ev, err := input.BuildEvent(area)
		if err != nil {
			return err
		}
		return insertEvent(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	return area, nil
}

// RecordMonitoring populates the monitoring snapshot exactly once and appends
// the submission to the audit trail
func (s *pgStore) RecordMonitoring(ctx context.Context, input RecordMonitoringInput) (*schema.ProtectedArea, error) {
	var area *schema.ProtectedArea
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored schema.ProtectedArea
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("area_id = ?", input.AreaID).
			First(&stored).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAreaNotFound
			}
			return fmt.Errorf("failed to read area: %w", err)
		}

		// The supplied name must match the record stored at the id; with
		// globally unique names this also proves the name is in use
		if stored.Name != input.Name {
			return domain.ErrNameMismatch
		}
		if stored.LastDetectionDate != nil {
			return domain.ErrMonitoringRecorded
		}

		dates, err := marshalSeries(input.DetectionDates)
		if err != nil {
			return err
		}
		covers, err := marshalSeries(input.ForestCoverExtensions)
		if err != nil {
			return err
		}

		stored.LastDetectionDate = &input.LastDetectionDate
		stored.TotalExtension = &input.TotalExtension
		stored.DetectionDates = dates
		stored.ForestCoverExtensions = covers
		if err := tx.Save(&stored).Error; err != nil {
			return fmt.Errorf("failed to update area: %w", err)
		}

		update := schema.MonitoringUpdate{
			AreaID:                input.AreaID,
			LastDetectionDate:     input.LastDetectionDate,
			TotalExtension:        input.TotalExtension,
			DetectionDates:        dates,
			ForestCoverExtensions: covers,
			Recorder:              input.Recorder,
		}
		if err := tx.Create(&update).Error; err != nil {
			return fmt.Errorf("failed to append monitoring update: %w", err)
		}

		ev, err := input.BuildEvent(&stored)
		if err != nil {
			return err
		}
		if err := insertEvent(tx, ev); err != nil {
			return err
		}

		area = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return area, nil
}

// GetArea retrieves an area by id
func (s *pgStore) GetArea(ctx context.Context, areaID uint64) (*schema.ProtectedArea, error) {
	var area schema.ProtectedArea
	err := s.db.WithContext(ctx).Where("area_id = ?", areaID).First(&area).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get area: %w", err)
	}
	return &area, nil
}

// GetAreaByName retrieves an area by its unique name
func (s *pgStore) GetAreaByName(ctx context.Context, name string) (*schema.ProtectedArea, error) {
	var area schema.ProtectedArea
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&area).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get area by name: %w", err)
	}
	return &area, nil
}

// ListAreas returns registered areas ordered by id plus the total count
func (s *pgStore) ListAreas(ctx context.Context, limit, offset int) ([]*schema.ProtectedArea, uint64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&schema.ProtectedArea{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count areas: %w", err)
	}

	var areas []*schema.ProtectedArea
	err := s.db.WithContext(ctx).
		Order("area_id ASC").
		Limit(limit).
		Offset(offset).
		Find(&areas).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list areas: %w", err)
	}
	return areas, uint64(total), nil
}

// ListAreasByName returns areas matching a name exactly, ordered by id
func (s *pgStore) ListAreasByName(ctx context.Context, name string, limit, offset int) ([]*schema.ProtectedArea, uint64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&schema.ProtectedArea{}).
		Where("name = ?", name).
		Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count areas by name: %w", err)
	}

	var areas []*schema.ProtectedArea
	err := s.db.WithContext(ctx).
		Where("name = ?", name).
		Order("area_id ASC").
		Limit(limit).
		Offset(offset).
		Find(&areas).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list areas by name: %w", err)
	}
	return areas, uint64(total), nil
}

// IsNameUsed reports whether a name has been registered
func (s *pgStore) IsNameUsed(ctx context.Context, name string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.ProtectedArea{}).
		Where("name = ?", name).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check name: %w", err)
	}
	return count > 0, nil
}

// MintImage creates an image record and issues its token to the seller
func (s *pgStore) MintImage(ctx context.Context, input MintImageInput) (*schema.SatelliteImage, error) {
	var image *schema.SatelliteImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var area schema.ProtectedArea
		err := tx.Where("area_id = ?", input.AreaID).First(&area).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAreaNotFound
			}
			return fmt.Errorf("failed to read area: %w", err)
		}
		if area.Name != input.AreaName {
			return domain.ErrNameMismatch
		}

		imageID, err := nextSequence(tx, seqImageKey)
		if err != nil {
			return err
		}

		image = &schema.SatelliteImage{
			ImageID:  imageID,
			AreaID:   input.AreaID,
			AreaName: area.Name,
			URI:      input.URI,
			Price:    input.Price,
			Sold:     false,
			Seller:   input.Seller,
		}
		if err := tx.Create(image).Error; err != nil {
			return fmt.Errorf("failed to create image: %w", err)
		}

		token := schema.Token{
			TokenID: imageID,
			Owner:   input.Seller,
			URI:     input.URI,
		}
		if err := tx.Create(&token).Error; err != nil {
			return fmt.Errorf("failed to mint token: %w", err)
		}

		ev, err := input.BuildEvent(image)
		if err != nil {
			return err
		}
		return insertEvent(tx, ev)
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// EscrowImage transfers token custody to the registry pending a sale
func (s *pgStore) EscrowImage(ctx context.Context, input EscrowImageInput) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var image schema.SatelliteImage
		err := tx.Where("image_id = ?", input.ImageID).First(&image).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrImageNotFound
			}
			return fmt.Errorf("failed to read image: %w", err)
		}

		var token schema.Token
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_id = ?", input.ImageID).
			First(&token).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTokenNotFound
			}
			return fmt.Errorf("failed to read token: %w", err)
		}
		if token.Owner != input.Seller {
			return domain.ErrNotTokenOwner
		}

		// Escrow requires the registry to be approved: either per-token or as
		// a blanket operator
		approved := token.Approved != nil && *token.Approved == input.RegistryAddress
		if !approved {
			var count int64
			if err := tx.Model(&schema.OperatorApproval{}).
				Where("owner = ? AND operator = ?", token.Owner, input.RegistryAddress).
				Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check operator approval: %w", err)
			}
			approved = count > 0
		}
		if !approved {
			return domain.ErrNotApproved
		}

		token.Owner = input.RegistryAddress
		token.Approved = nil
		if err := tx.Save(&token).Error; err != nil {
			return fmt.Errorf("failed to escrow token: %w", err)
		}

		image.UpdatedAt = time.Now().UTC()
		if err := tx.Save(&image).Error; err != nil {
			return fmt.Errorf("failed to touch image: %w", err)
		}

		return insertEvent(tx, input.Event)
	})
}

// PurchaseImage flips the sold flag, transfers the token and pays out the
// image's own price to its seller
func (s *pgStore) PurchaseImage(ctx context.Context, input PurchaseImageInput) (*schema.SatelliteImage, error) {
	var image *schema.SatelliteImage
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var stored schema.SatelliteImage
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("image_id = ?", input.ImageID).
			First(&stored).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrImageNotFound
			}
			return fmt.Errorf("failed to read image: %w", err)
		}
		if stored.Sold {
			return domain.ErrAlreadySold
		}
		if stored.Price != input.Payment {
			return domain.ErrWrongPayment
		}

		stored.Sold = true
		stored.UpdatedAt = time.Now().UTC()
		if err := tx.Save(&stored).Error; err != nil {
			return fmt.Errorf("failed to mark image sold: %w", err)
		}

		var token schema.Token
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_id = ?", input.ImageID).
			First(&token).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTokenNotFound
			}
			return fmt.Errorf("failed to read token: %w", err)
		}
		token.Owner = input.Buyer
		token.Approved = nil
		if err := tx.Save(&token).Error; err != nil {
			return fmt.Errorf("failed to transfer token: %w", err)
		}

		// Payment enters through the registry, which immediately pays the
		// image price out to the seller
		if err := recordTransfer(tx, input.TxID, input.Buyer, input.RegistryAddress, input.Payment, "purchase"); err != nil {
			return err
		}
		if err := recordTransfer(tx, input.TxID, input.RegistryAddress, stored.Seller, stored.Price, "payout"); err != nil {
			return err
		}
		if err := creditBalance(tx, stored.Seller, stored.Price); err != nil {
			return err
		}

		if err := insertEvent(tx, input.Event); err != nil {
			return err
		}

		image = &stored
		return nil
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// GetImage retrieves an image by id
func (s *pgStore) GetImage(ctx context.Context, imageID uint64) (*schema.SatelliteImage, error) {
	var image schema.SatelliteImage
	err := s.db.WithContext(ctx).Where("image_id = ?", imageID).First(&image).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get image: %w", err)
	}
	return &image, nil
}

// ListImages returns minted images ordered by id plus the total count
func (s *pgStore) ListImages(ctx context.Context, limit, offset int) ([]*schema.SatelliteImage, uint64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&schema.SatelliteImage{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count images: %w", err)
	}

	var images []*schema.SatelliteImage
	err := s.db.WithContext(ctx).
		Order("image_id ASC").
		Limit(limit).
		Offset(offset).
		Find(&images).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list images: %w", err)
	}
	return images, uint64(total), nil
}

// ListImagesByArea returns an area's image collection ordered by id
func (s *pgStore) ListImagesByArea(ctx context.Context, areaID uint64) ([]*schema.SatelliteImage, error) {
	var images []*schema.SatelliteImage
	err := s.db.WithContext(ctx).
		Where("area_id = ?", areaID).
		Order("image_id ASC").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images by area: %w", err)
	}
	return images, nil
}

// GetToken retrieves token ownership state
func (s *pgStore) GetToken(ctx context.Context, tokenID uint64) (*schema.Token, error) {
	var token schema.Token
	err := s.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&token).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}
	return &token, nil
}

// ApproveToken sets the approved address for a token
func (s *pgStore) ApproveToken(ctx context.Context, input ApproveTokenInput) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var token schema.Token
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("token_id = ?", input.TokenID).
			First(&token).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTokenNotFound
			}
			return fmt.Errorf("failed to read token: %w", err)
		}
		if token.Owner != input.Owner {
			return domain.ErrNotTokenOwner
		}

		approved := input.Approved
		token.Approved = &approved
		if err := tx.Save(&token).Error; err != nil {
			return fmt.Errorf("failed to approve token: %w", err)
		}

		return insertEvent(tx, input.Event)
	})
}

// SetOperatorApproval grants or revokes a blanket operator approval
func (s *pgStore) SetOperatorApproval(ctx context.Context, input OperatorApprovalInput) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if input.Approved {
			approval := schema.OperatorApproval{
				Owner:    input.Owner,
				Operator: input.Operator,
			}
			err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&approval).Error
			if err != nil {
				return fmt.Errorf("failed to grant operator approval: %w", err)
			}
		} else {
			err := tx.Where("owner = ? AND operator = ?", input.Owner, input.Operator).
				Delete(&schema.OperatorApproval{}).Error
			if err != nil {
				return fmt.Errorf("failed to revoke operator approval: %w", err)
			}
		}

		return insertEvent(tx, input.Event)
	})
}

// IsOperator reports whether operator holds a blanket approval from owner
func (s *pgStore) IsOperator(ctx context.Context, owner, operator string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.OperatorApproval{}).
		Where("owner = ? AND operator = ?", owner, operator).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check operator approval: %w", err)
	}
	return count > 0, nil
}

// GrantRole grants a role to an address; granting twice is a no-op
func (s *pgStore) GrantRole(ctx context.Context, input RoleChangeInput) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		grant := schema.RoleGrant{
			Role:      input.Role,
			Address:   input.Address,
			GrantedBy: input.By,
		}
		err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grant).Error
		if err != nil {
			return fmt.Errorf("failed to grant role: %w", err)
		}

		return insertEvent(tx, input.Event)
	})
}

// RevokeRole revokes a role; fails if the address does not hold it
func (s *pgStore) RevokeRole(ctx context.Context, input RoleChangeInput) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("role = ? AND address = ?", input.Role, input.Address).
			Delete(&schema.RoleGrant{})
		if res.Error != nil {
			return fmt.Errorf("failed to revoke role: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return domain.ErrRoleNotGranted
		}

		return insertEvent(tx, input.Event)
	})
}

// HasRole reports whether an address holds a role
func (s *pgStore) HasRole(ctx context.Context, role, address string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&schema.RoleGrant{}).
		Where("role = ? AND address = ?", role, address).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return count > 0, nil
}

// GetParameter reads a global scalar parameter
func (s *pgStore) GetParameter(ctx context.Context, key string) (string, error) {
	var kv schema.KeyValueStore
	err := s.db.WithContext(ctx).Where("key = ?", "param:"+key).First(&kv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get parameter: %w", err)
	}
	return kv.Value, nil
}

// SetParameter updates a global scalar parameter
func (s *pgStore) SetParameter(ctx context.Context, input SetParameterInput) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		kv := schema.KeyValueStore{Key: "param:" + input.Key, Value: input.Value}
		if err := tx.Save(&kv).Error; err != nil {
			return fmt.Errorf("failed to set parameter: %w", err)
		}

		return insertEvent(tx, input.Event)
	})
}

// GetBalance reads an account's on-ledger balance
func (s *pgStore) GetBalance(ctx context.Context, address string) (string, error) {
	var bal schema.AccountBalance
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&bal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "0", nil
		}
		return "", fmt.Errorf("failed to get balance: %w", err)
	}
	return bal.Balance, nil
}

// Withdraw drains the registry balance to an admin address
func (s *pgStore) Withdraw(ctx context.Context, input WithdrawInput) (string, error) {
	var drained string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var bal schema.AccountBalance
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("address = ?", input.RegistryAddress).
			First(&bal).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNoBalance
			}
			return fmt.Errorf("failed to read registry balance: %w", err)
		}
		if bal.Balance == "0" || bal.Balance == "" {
			return domain.ErrNoBalance
		}

		drained = bal.Balance
		if err := setBalance(tx, input.RegistryAddress, "0"); err != nil {
			return err
		}
		if err := creditBalance(tx, input.To, drained); err != nil {
			return err
		}
		if err := recordTransfer(tx, input.TxID, input.RegistryAddress, input.To, drained, "withdrawal"); err != nil {
			return err
		}

		ev, err := input.BuildEvent(drained)
		if err != nil {
			return err
		}
		return insertEvent(tx, ev)
	})
	if err != nil {
		return "", err
	}
	return drained, nil
}

// ListEvents queries the event journal ordered by insertion
func (s *pgStore) ListEvents(ctx context.Context, filter EventFilter) ([]*schema.ContractEvent, uint64, error) {
	q := s.db.WithContext(ctx).Model(&schema.ContractEvent{})
	if len(filter.Types) > 0 {
		q = q.Where("event_type IN ?", filter.Types)
	}
	if filter.TxID != "" {
		q = q.Where("tx_id = ?", filter.TxID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	var events []*schema.ContractEvent
	err := q.Order("id ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&events).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	return events, uint64(total), nil
}

// CreateWebhookClient registers an event observer
func (s *pgStore) CreateWebhookClient(ctx context.Context, client *schema.WebhookClient) error {
	if err := s.db.WithContext(ctx).Create(client).Error; err != nil {
		return fmt.Errorf("failed to create webhook client: %w", err)
	}
	return nil
}

// ListActiveWebhookClients returns observers eligible for delivery
func (s *pgStore) ListActiveWebhookClients(ctx context.Context) ([]*schema.WebhookClient, error) {
	var clients []*schema.WebhookClient
	err := s.db.WithContext(ctx).Where("is_active = ?", true).Find(&clients).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list webhook clients: %w", err)
	}
	return clients, nil
}

// CreateWebhookDelivery appends a delivery audit record
func (s *pgStore) CreateWebhookDelivery(ctx context.Context, delivery *schema.WebhookDelivery) error {
	if err := s.db.WithContext(ctx).Create(delivery).Error; err != nil {
		return fmt.Errorf("failed to create webhook delivery: %w", err)
	}
	return nil
}

// UpdateWebhookDelivery updates a delivery audit record in place
func (s *pgStore) UpdateWebhookDelivery(ctx context.Context, delivery *schema.WebhookDelivery) error {
	if err := s.db.WithContext(ctx).Save(delivery).Error; err != nil {
		return fmt.Errorf("failed to update webhook delivery: %w", err)
	}
	return nil
}
