package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/store/schema"
)

// memoryStore is an in-memory Store with the same invariant enforcement as
// the PostgreSQL implementation. It backs unit tests and local development.
type memoryStore struct {
	mu sync.RWMutex

	areas       map[uint64]*schema.ProtectedArea
	areasByName map[string]uint64
	donors      []schema.Donor
	monitoring  []schema.MonitoringUpdate
	images      map[uint64]*schema.SatelliteImage
	tokens      map[uint64]*schema.Token
	operators   map[string]map[string]bool
	roles       map[string]map[string]string
	balances    map[string]string
	transfers   []schema.ValueTransfer
	params      map[string]string
	sequences   map[string]uint64
	events      []schema.ContractEvent

	webhookClients    map[string]*schema.WebhookClient
	webhookDeliveries map[uint64]*schema.WebhookDelivery

	nextRowID uint64
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() Store {
	return &memoryStore{
		areas:             make(map[uint64]*schema.ProtectedArea),
		areasByName:       make(map[string]uint64),
		images:            make(map[uint64]*schema.SatelliteImage),
		tokens:            make(map[uint64]*schema.Token),
		operators:         make(map[string]map[string]bool),
		roles:             make(map[string]map[string]string),
		balances:          make(map[string]string),
		params:            make(map[string]string),
		sequences:         make(map[string]uint64),
		webhookClients:    make(map[string]*schema.WebhookClient),
		webhookDeliveries: make(map[uint64]*schema.WebhookDelivery),
	}
}

func (s *memoryStore) rowID() uint64 {
	s.nextRowID++
	return s.nextRowID
}

func (s *memoryStore) nextSeq(key string) uint64 {
	next := s.sequences[key]
	s.sequences[key] = next + 1
	return next
}

func (s *memoryStore) credit(address, amount string) error {
	current, ok := s.balances[address]
	if !ok {
		current = "0"
	}
	sum, err := addAmounts(current, amount)
	if err != nil {
		return err
	}
	s.balances[address] = sum
	return nil
}

func (s *memoryStore) appendEvent(ev *domain.Event) {
	if ev == nil {
		return
	}
	s.events = append(s.events, schema.ContractEvent{
		ID:        s.rowID(),
		EventID:   ev.EventID,
		EventType: string(ev.Type),
		TxID:      ev.TxID,
		Digest:    ev.Digest,
		Payload:   datatypes.JSON(ev.Payload),
		CreatedAt: time.Now().UTC(),
	})
}

func copyArea(a *schema.ProtectedArea) *schema.ProtectedArea {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}

func copyImage(i *schema.SatelliteImage) *schema.SatelliteImage {
	if i == nil {
		return nil
	}
	cp := *i
	return &cp
}

func copyToken(t *schema.Token) *schema.Token {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Approved != nil {
		approved := *t.Approved
		cp.Approved = &approved
	}
	return &cp
}

func (s *memoryStore) RegisterArea(_ context.Context, input RegisterAreaInput) (*schema.ProtectedArea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.areasByName[input.Name]; taken {
		return nil, domain.ErrNameTaken
	}

	now := time.Now().UTC()
	area := &schema.ProtectedArea{
		AreaID:       s.nextSeq(seqAreaKey),
		Name:         input.Name,
		Description:  input.Description,
		Photo:        input.Photo,
		Country:      input.Country,
		RegisteredBy: input.Donor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if len(input.GeoJSON) > 0 {
		area.GeoJSON = datatypes.JSON(input.GeoJSON)
	}

	ev, err := input.BuildEvent(area)
	if err != nil {
		// No state was published yet, but the sequence must not burn an id
		s.sequences[seqAreaKey]--
		return nil, err
	}

	s.areas[area.AreaID] = area
	s.areasByName[area.Name] = area.AreaID
	s.donors = append(s.donors, schema.Donor{
		ID:        s.rowID(),
		AreaID:    area.AreaID,
		Address:   input.Donor,
		Amount:    input.Payment,
		CreatedAt: now,
	})
	if err := s.credit(input.CreditTo, input.Payment); err != nil {
		delete(s.areas, area.AreaID)
		delete(s.areasByName, area.Name)
		s.donors = s.donors[:len(s.donors)-1]
		s.sequences[seqAreaKey]--
		return nil, err
	}
	s.transfers = append(s.transfers, schema.ValueTransfer{
		ID:          s.rowID(),
		TxID:        input.TxID,
		FromAddress: input.Donor,
		ToAddress:   input.CreditTo,
		Amount:      input.Payment,
		Reason:      "donation",
		CreatedAt:   now,
	})
	s.appendEvent(ev)

	return copyArea(area), nil
}

func (s *memoryStore) RecordMonitoring(_ context.Context, input RecordMonitoringInput) (*schema.ProtectedArea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	area, ok := s.areas[input.AreaID]
	if !ok {
		return nil, domain.ErrAreaNotFound
	}
	if area.Name != input.Name {
		return nil, domain.ErrNameMismatch
	}
	if area.LastDetectionDate != nil {
		return nil, domain.ErrMonitoringRecorded
	}

	dates, err := marshalSeries(input.DetectionDates)
	if err != nil {
		return nil, err
	}
	covers, err := marshalSeries(input.ForestCoverExtensions)
	if err != nil {
		return nil, err
	}

	updated := copyArea(area)
	lastDate := input.LastDetectionDate
	totalExt := input.TotalExtension
	updated.LastDetectionDate = &lastDate
	updated.TotalExtension = &totalExt
	updated.DetectionDates = dates
	updated.ForestCoverExtensions = covers
	updated.UpdatedAt = time.Now().UTC()

	ev, err := input.BuildEvent(updated)
	if err != nil {
		return nil, err
	}

	s.areas[input.AreaID] = updated
	s.monitoring = append(s.monitoring, schema.MonitoringUpdate{
		ID:                    s.rowID(),
		AreaID:                input.AreaID,
		LastDetectionDate:     input.LastDetectionDate,
		TotalExtension:        input.TotalExtension,
		DetectionDates:        dates,
		ForestCoverExtensions: covers,
		Recorder:              input.Recorder,
		CreatedAt:             updated.UpdatedAt,
	})
	s.appendEvent(ev)

	return copyArea(updated), nil
}

func (s *memoryStore) GetArea(_ context.Context, areaID uint64) (*schema.ProtectedArea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyArea(s.areas[areaID]), nil
}

func (s *memoryStore) GetAreaByName(_ context.Context, name string) (*schema.ProtectedArea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.areasByName[name]
	if !ok {
		return nil, nil
	}
	return copyArea(s.areas[id]), nil
}

func (s *memoryStore) sortedAreaIDs() []uint64 {
	ids := make([]uint64, 0, len(s.areas))
	for id := range s.areas {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// paginate clamps a [offset, offset+limit) window to total. A negative limit
// means no limit, matching gorm's Limit(-1).
func paginate(total, limit, offset int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return 0, 0
	}
	if limit < 0 {
		return offset, total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return offset, end
}

func (s *memoryStore) ListAreas(_ context.Context, limit, offset int) ([]*schema.ProtectedArea, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.sortedAreaIDs()
	total := uint64(len(ids))
	start, end := paginate(len(ids), limit, offset)

	areas := make([]*schema.ProtectedArea, 0, end-start)
	for _, id := range ids[start:end] {
		areas = append(areas, copyArea(s.areas[id]))
	}
	return areas, total, nil
}

func (s *memoryStore) ListAreasByName(_ context.Context, name string, limit, offset int) ([]*schema.ProtectedArea, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]uint64, 0, 1)
	for _, id := range s.sortedAreaIDs() {
		if s.areas[id].Name == name {
			matched = append(matched, id)
		}
	}
	total := uint64(len(matched))
	start, end := paginate(len(matched), limit, offset)

	areas := make([]*schema.ProtectedArea, 0, end-start)
	for _, id := range matched[start:end] {
		areas = append(areas, copyArea(s.areas[id]))
	}
	return areas, total, nil
}

func (s *memoryStore) IsNameUsed(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, used := s.areasByName[name]
	return used, nil
}

func (s *memoryStore) MintImage(_ context.Context, input MintImageInput) (*schema.SatelliteImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	area, ok := s.areas[input.AreaID]
	if !ok {
		return nil, domain.ErrAreaNotFound
	}
	if area.Name != input.AreaName {
		return nil, domain.ErrNameMismatch
	}

	now := time.Now().UTC()
	image := &schema.SatelliteImage{
		ImageID:   s.nextSeq(seqImageKey),
		AreaID:    input.AreaID,
		AreaName:  area.Name,
		URI:       input.URI,
		Price:     input.Price,
		Seller:    input.Seller,
		CreatedAt: now,
		UpdatedAt: now,
	}

	ev, err := input.BuildEvent(image)
	if err != nil {
		s.sequences[seqImageKey]--
		return nil, err
	}

	s.images[image.ImageID] = image
	s.tokens[image.ImageID] = &schema.Token{
		TokenID:   image.ImageID,
		Owner:     input.Seller,
		URI:       input.URI,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.appendEvent(ev)

	return copyImage(image), nil
}

func (s *memoryStore) EscrowImage(_ context.Context, input EscrowImageInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.images[input.ImageID]; !ok {
		return domain.ErrImageNotFound
	}
	token, ok := s.tokens[input.ImageID]
	if !ok {
		return domain.ErrTokenNotFound
	}
	if token.Owner != input.Seller {
		return domain.ErrNotTokenOwner
	}

	approved := token.Approved != nil && *token.Approved == input.RegistryAddress
	if !approved {
		approved = s.operators[token.Owner][input.RegistryAddress]
	}
	if !approved {
		return domain.ErrNotApproved
	}

	token.Owner = input.RegistryAddress
	token.Approved = nil
	token.UpdatedAt = time.Now().UTC()
	s.appendEvent(input.Event)

	return nil
}

func (s *memoryStore) PurchaseImage(_ context.Context, input PurchaseImageInput) (*schema.SatelliteImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	image, ok := s.images[input.ImageID]
	if !ok {
		return nil, domain.ErrImageNotFound
	}
	if image.Sold {
		return nil, domain.ErrAlreadySold
	}
	if image.Price != input.Payment {
		return nil, domain.ErrWrongPayment
	}
	token, ok := s.tokens[input.ImageID]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}

	now := time.Now().UTC()
	image.Sold = true
	image.UpdatedAt = now
	token.Owner = input.Buyer
	token.Approved = nil
	token.UpdatedAt = now

	s.transfers = append(s.transfers, schema.ValueTransfer{
		ID:          s.rowID(),
		TxID:        input.TxID,
		FromAddress: input.Buyer,
		ToAddress:   input.RegistryAddress,
		Amount:      input.Payment,
		Reason:      "purchase",
		CreatedAt:   now,
	}, schema.ValueTransfer{
		ID:          s.rowID(),
		TxID:        input.TxID,
		FromAddress: input.RegistryAddress,
		ToAddress:   image.Seller,
		Amount:      image.Price,
		Reason:      "payout",
		CreatedAt:   now,
	})
	if err := s.credit(image.Seller, image.Price); err != nil {
		return nil, err
	}
	s.appendEvent(input.Event)

	return copyImage(image), nil
}

func (s *memoryStore) GetImage(_ context.Context, imageID uint64) (*schema.SatelliteImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyImage(s.images[imageID]), nil
}

func (s *memoryStore) sortedImageIDs() []uint64 {
	ids := make([]uint64, 0, len(s.images))
	for id := range s.images {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *memoryStore) ListImages(_ context.Context, limit, offset int) ([]*schema.SatelliteImage, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.sortedImageIDs()
	total := uint64(len(ids))
	start, end := paginate(len(ids), limit, offset)

	images := make([]*schema.SatelliteImage, 0, end-start)
	for _, id := range ids[start:end] {
		images = append(images, copyImage(s.images[id]))
	}
	return images, total, nil
}

func (s *memoryStore) ListImagesByArea(_ context.Context, areaID uint64) ([]*schema.SatelliteImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var images []*schema.SatelliteImage
	for _, id := range s.sortedImageIDs() {
		if s.images[id].AreaID == areaID {
			images = append(images, copyImage(s.images[id]))
		}
	}
	return images, nil
}

func (s *memoryStore) GetToken(_ context.Context, tokenID uint64) (*schema.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyToken(s.tokens[tokenID]), nil
}

func (s *memoryStore) ApproveToken(_ context.Context, input ApproveTokenInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	token, ok := s.tokens[input.TokenID]
	if !ok {
		return domain.ErrTokenNotFound
	}
	if token.Owner != input.Owner {
		return domain.ErrNotTokenOwner
	}

	approved := input.Approved
	token.Approved = &approved
	token.UpdatedAt = time.Now().UTC()
	s.appendEvent(input.Event)

	return nil
}

func (s *memoryStore) SetOperatorApproval(_ context.Context, input OperatorApprovalInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if input.Approved {
		if s.operators[input.Owner] == nil {
			s.operators[input.Owner] = make(map[string]bool)
		}
		s.operators[input.Owner][input.Operator] = true
	} else {
		delete(s.operators[input.Owner], input.Operator)
	}
	s.appendEvent(input.Event)

	return nil
}

func (s *memoryStore) IsOperator(_ context.Context, owner, operator string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.operators[owner][operator], nil
}

func (s *memoryStore) GrantRole(_ context.Context, input RoleChangeInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.roles[input.Role] == nil {
		s.roles[input.Role] = make(map[string]string)
	}
	if _, held := s.roles[input.Role][input.Address]; !held {
		s.roles[input.Role][input.Address] = input.By
	}
	s.appendEvent(input.Event)

	return nil
}

func (s *memoryStore) RevokeRole(_ context.Context, input RoleChangeInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, held := s.roles[input.Role][input.Address]; !held {
		return domain.ErrRoleNotGranted
	}
	delete(s.roles[input.Role], input.Address)
	s.appendEvent(input.Event)

	return nil
}

func (s *memoryStore) HasRole(_ context.Context, role, address string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, held := s.roles[role][address]
	return held, nil
}

func (s *memoryStore) GetParameter(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params[key], nil
}

func (s *memoryStore) SetParameter(_ context.Context, input SetParameterInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.params[input.Key] = input.Value
	s.appendEvent(input.Event)

	return nil
}

func (s *memoryStore) GetBalance(_ context.Context, address string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bal, ok := s.balances[address]
	if !ok {
		return "0", nil
	}
	return bal, nil
}

func (s *memoryStore) Withdraw(_ context.Context, input WithdrawInput) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	drained, ok := s.balances[input.RegistryAddress]
	if !ok || drained == "0" || drained == "" {
		return "", domain.ErrNoBalance
	}

	ev, err := input.BuildEvent(drained)
	if err != nil {
		return "", err
	}

	s.balances[input.RegistryAddress] = "0"
	if err := s.credit(input.To, drained); err != nil {
		s.balances[input.RegistryAddress] = drained
		return "", err
	}
	s.transfers = append(s.transfers, schema.ValueTransfer{
		ID:          s.rowID(),
		TxID:        input.TxID,
		FromAddress: input.RegistryAddress,
		ToAddress:   input.To,
		Amount:      drained,
		Reason:      "withdrawal",
		CreatedAt:   time.Now().UTC(),
	})
	s.appendEvent(ev)

	return drained, nil
}

func (s *memoryStore) ListEvents(_ context.Context, filter EventFilter) ([]*schema.ContractEvent, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	typeSet := make(map[string]bool, len(filter.Types))
	for _, t := range filter.Types {
		typeSet[t] = true
	}

	matched := make([]int, 0, len(s.events))
	for i, ev := range s.events {
		if len(typeSet) > 0 && !typeSet[ev.EventType] {
			continue
		}
		if filter.TxID != "" && ev.TxID != filter.TxID {
			continue
		}
		matched = append(matched, i)
	}

	total := uint64(len(matched))
	start, end := paginate(len(matched), filter.Limit, filter.Offset)

	events := make([]*schema.ContractEvent, 0, end-start)
	for _, i := range matched[start:end] {
		ev := s.events[i]
		events = append(events, &ev)
	}
	return events, total, nil
}

func (s *memoryStore) CreateWebhookClient(_ context.Context, client *schema.WebhookClient) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.webhookClients[client.ClientID]; exists {
		return fmt.Errorf("webhook client %s already exists", client.ClientID)
	}
	client.ID = s.rowID()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = time.Now().UTC()
	}
	cp := *client
	s.webhookClients[client.ClientID] = &cp
	return nil
}

func (s *memoryStore) ListActiveWebhookClients(_ context.Context) ([]*schema.WebhookClient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var clients []*schema.WebhookClient
	for _, c := range s.webhookClients {
		if !c.IsActive {
			continue
		}
		cp := *c
		clients = append(clients, &cp)
	}
	sort.Slice(clients, func(i, j int) bool { return clients[i].ID < clients[j].ID })
	return clients, nil
}

func (s *memoryStore) CreateWebhookDelivery(_ context.Context, delivery *schema.WebhookDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delivery.ID = s.rowID()
	if delivery.CreatedAt.IsZero() {
		delivery.CreatedAt = time.Now().UTC()
	}
	cp := *delivery
	s.webhookDeliveries[delivery.ID] = &cp
	return nil
}

func (s *memoryStore) UpdateWebhookDelivery(_ context.Context, delivery *schema.WebhookDelivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.webhookDeliveries[delivery.ID]; !ok {
		return fmt.Errorf("webhook delivery %d not found", delivery.ID)
	}
	delivery.UpdatedAt = time.Now().UTC()
	cp := *delivery
	s.webhookDeliveries[delivery.ID] = &cp
	return nil
}
