package rest

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/biorbit/biorbit/internal/api/middleware"
	"github.com/biorbit/biorbit/internal/api/shared/dto"
	"github.com/biorbit/biorbit/internal/contract"
	"github.com/biorbit/biorbit/internal/domain"
	"github.com/biorbit/biorbit/internal/store"
	"github.com/biorbit/biorbit/internal/store/schema"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// RegisterArea registers a protected area from a qualifying donation
	// POST /api/v1/areas
	RegisterArea(c *gin.Context)

	// RecordMonitoring records an area's monitoring snapshot (admin)
	// POST /api/v1/areas/:area_id/monitoring
	RecordMonitoring(c *gin.Context)

	// GetArea retrieves a single area by id
	// GET /api/v1/areas/:area_id
	GetArea(c *gin.Context)

	// ListAreas retrieves areas, optionally filtered by exact name with
	// windowed pagination
	// GET /api/v1/areas?name=<name>&page=<page>&page_size=<size>&limit=<limit>&offset=<offset>
	ListAreas(c *gin.Context)

	// MintImage mints a satellite image for an area (admin)
	// POST /api/v1/images
	MintImage(c *gin.Context)

	// SellImage escrows an image's token for sale (admin)
	// POST /api/v1/images/:image_id/sell
	SellImage(c *gin.Context)

	// BuyImage purchases an image at its exact price
	// POST /api/v1/images/:image_id/buy
	BuyImage(c *gin.Context)

	// GetImage retrieves a single image by id
	// GET /api/v1/images/:image_id
	GetImage(c *gin.Context)

	// ListImages retrieves images, optionally scoped to an area
	// GET /api/v1/images?area_id=<id>&limit=<limit>&offset=<offset>
	ListImages(c *gin.Context)

	// GetToken retrieves token ownership state
	// GET /api/v1/tokens/:token_id
	GetToken(c *gin.Context)

	// ApproveToken approves an address for a single token
	// POST /api/v1/tokens/:token_id/approve
	ApproveToken(c *gin.Context)

	// SetOperatorApproval grants or revokes a blanket operator approval
	// POST /api/v1/tokens/operators
	SetOperatorApproval(c *gin.Context)

	// GetParameter reads a global scalar parameter
	// GET /api/v1/params/:key
	GetParameter(c *gin.Context)

	// SetParameter updates a global scalar parameter (admin)
	// PUT /api/v1/params/:key
	SetParameter(c *gin.Context)

	// Withdraw drains the registry balance to the caller (admin)
	// POST /api/v1/withdrawals
	Withdraw(c *gin.Context)

	// GrantRole grants a role (default admin)
	// POST /api/v1/roles
	GrantRole(c *gin.Context)

	// RevokeRole revokes a role (default admin)
	// DELETE /api/v1/roles
	RevokeRole(c *gin.Context)

	// GetRole reports whether an address holds a role
	// GET /api/v1/roles/:role/:address
	GetRole(c *gin.Context)

	// GetBalance reads an account's ledger balance
	// GET /api/v1/balances/:address
	GetBalance(c *gin.Context)

	// ListEvents queries the event journal
	// GET /api/v1/events?type=<type>&tx_id=<tx_id>&limit=<limit>&offset=<offset>
	ListEvents(c *gin.Context)

	// CreateWebhookClient creates a new webhook client (requires API key)
	// POST /api/v1/webhooks/clients
	CreateWebhookClient(c *gin.Context)

	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	registry *contract.Contract
	store    store.Store
}

// NewHandler creates a new REST API handler over the registry contract
func NewHandler(registry *contract.Contract, st store.Store) Handler {
	return &handler{
		registry: registry,
		store:    st,
	}
}

// RegisterArea registers a protected area from a qualifying donation
func (h *handler) RegisterArea(c *gin.Context) {
	caller, err := middleware.CallerAddress(c)
	if err != nil {
		respondUnauthorized(c, "Caller address required", err.Error())
		return
	}

	var req dto.RegisterAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	area, err := h.registry.RegisterArea(c.Request.Context(), contract.RegisterAreaParams{
		Caller:      caller,
		Payment:     domain.MustAmount(req.Payment),
		Name:        req.Name,
		Description: req.Description,
		Photo:       req.Photo,
		GeoJSON:     req.GeoJSON,
		Country:     req.Country,
	})
	if err != nil {
		respondContractError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.AreaToResponse(area))
}

// RecordMonitoring records an area's monitoring snapshot
func (h *handler) RecordMonitoring(c *gin.Context) {
	caller, err := middleware.CallerAddress(c)
	if err != nil {
		respondUnauthorized(c, "Caller address required", err.Error())
		return
	}

	areaID, err := parseIDParam(c, "area_id")
	if err != nil {
		respondBadRequest(c, "Invalid area_id")
		return
	}

	var req dto.RecordMonitoringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	area, err := h.registry.RecordMonitoringData(c.Request.Context(), contract.MonitoringParams{
		Caller:                caller,
		AreaID:                areaID,
		Name:                  req.Name,
		LastDetectionDate:     req.LastDetectionDate,
		TotalExtension:        req.TotalExtension,
		DetectionDates:        req.DetectionDates,
		ForestCoverExtensions: req.ForestCoverExtensions,
	})
	if err != nil {
		respondContractError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AreaToResponse(area))
}

// GetArea retrieves a single area by id
func (h *handler) GetArea(c *gin.Context) {
	areaID, err := parseIDParam(c, "area_id")
	if err != nil {
		respondBadRequest(c, "Invalid area_id")
		return
	}

	area, err := h.registry.AreaByID(c.Request.Context(), areaID)
	if err != nil {
		respondContractError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.AreaToResponse(area))
}

// ListAreas retrieves areas with optional name filter and pagination
func (h *handler) ListAreas(c *gin.Context) {
	params, err := ParseListAreasQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	// Windowed lookup over a name match
	if params.Page != nil || params.PageSize != nil {
		if params.Name == "" || params.Page == nil || params.PageSize == nil {
			respondValidationError(c, "name, page and page_size must be provided together")
			return
		}
		areas, err := h.registry.AreasByNamePage(ctx, params.Name, *params.Page, *params.PageSize)
		if err != nil {
			respondContractError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.AreasToResponse(areas, uint64(len(areas))))
		return
	}

	if params.Name != "" {
		areas, err := h.registry.AreasByName(ctx, params.Name)
		if err != nil {
			respondContractError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.AreasToResponse(areas, uint64(len(areas))))
		return
	}

	areas, total, err := h.registry.Areas(ctx, params.Limit, params.Offset)
	if err != nil {
		respondContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AreasToResponse(areas, total))
}

// MintImage mints a satellite image for an area
func (h *handler) MintImage(c *gin.Context) {
	caller, err := middleware.CallerAddress(c)
	if err != nil {
		respondUnauthorized(c, "Caller address required", err.Error())
		return
	}

	var req dto.MintImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	image, err := h.registry.MintImage(c.Request.Context(), caller, req.AreaName, *req.AreaID, req.URI)
	if err != nil {
		respondContractError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ImageToResponse(image, caller.String()))
}

// SellImage escrows an image's token for sale
func (h *handler) SellImage(c *gin.Context) {
	caller, err := middleware.CallerAddress(c)
	if err != nil {
		respondUnauthorized(c, "Caller address required", err.Error())
		return
	}

	imageID, err := parseIDParam(c, "image_id")
	if err != nil {
		respondBadRequest(c, "Invalid image_id")
		return
	}

	if err := h.registry.SellImage(c.Request.Context(), caller, imageID); err != nil {
		respondContractError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// BuyImage purchases an image at its exact price
func (h *handler) BuyImage(c *gin.Context) {
	caller, err := middleware.CallerAddress(c)
	if err != nil {
		respondUnauthorized(c, "Caller address required", err.Error())
		return
	}

	imageID, err := parseIDParam(c, "image_id")
	if err != nil {
		respondBadRequest(c, "Invalid image_id")
		return
	}

	var req dto.BuyImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	image, err := h.registry.BuyImage(c.Request.Context(), caller, domain.MustAmount(req.Payment), imageID)
	if err != nil {
		respondContractError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ImageToResponse(image, caller.String()))
}

// GetImage retrieves a single image by id
func (h *handler) GetImage(c *gin.Context) {
	imageID, err := parseIDParam(c, "image_id")
	if err != nil {
		respondBadRequest(c, "Invalid image_id")
		return
	}

	image, err := h.registry.ImageByID(c.Request.Context(), imageID)
	if err != nil {
		respondContractError(c, err)
		return
	}

	owner := ""
	if addr, err := h.registry.OwnerOf(c.Request.Context(), imageID); err == nil {
		owner = addr.String()
	}

	c.JSON(http.StatusOK, dto.ImageToResponse(image, owner))
}

// ListImages retrieves images, optionally scoped to an area
func (h *handler) ListImages(c *gin.Context) {
	params, err := ParseListImagesQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	ctx := c.Request.Context()

	if params.AreaID != nil {
		images, err := h.registry.ImagesByArea(ctx, *params.AreaID)
		if err != nil {
			respondContractError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.ImagesToResponse(images, uint64(len(images))))
		return
	}

	images, total, err := h.registry.Images(ctx, params.Limit, params.Offset)
	if err != nil {
		respondContractError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ImagesToResponse(images, total))
}

// GetToken retrieves token ownership state
func (h *handler) GetToken(c *gin.Context) {
	tokenID, err := parseIDParam(c, "token_id")
	if err != nil {
		respondBadRequest(c, "Invalid token_id")
		return
	}

	token, err := h.store.GetToken(c.Request.Context(), tokenID)
	if err != nil {
		respondInternalError(c, err, "Failed to get token")
		return
	}
	if token == nil {
		respondNotFound(c, "Token not found")
		return
	}

	resp := dto.TokenResponse{
		TokenID: token.TokenID,
		Owner:   token.Owner,
		URI:     token.URI,
	}
	if token.Approved != nil {
		resp.Approved = *token.Approved
	}
	c.JSON(http.StatusOK, resp)
}

// ApproveToken approves an address for a single token
func (h *handler) ApproveToken(c *gin.Context) {
	caller, err := middleware.CallerAddress(c)
	if err != nil {
		respondUnauthorized(c, "Caller address required", err.Error())
		return
	}

	tokenID, err := parseIDParam(c, "token_id")
	if err != nil {
		respondBadRequest(c, "Invalid token_id")
		return
	}

	var req dto.ApproveTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	approved := domain.MustAddress(req.Approved)
	if err := h.registry.Approve(c.Request.Context(), caller, approved, tokenID); err != nil {
		respondContractError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// SetOperatorApproval grants or revokes a blanket operator approval
func (h *handler) SetOperatorApproval(c *gin.Context) {
	caller, err := middleware.CallerAddress(c)
	if err != nil {
		respondUnauthorized(c, "Caller address required", err.Error())
		return
	}

	var req dto.SetOperatorApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	operator := domain.MustAddress(req.Operator)
	if err := h.registry.SetApprovalForAll(c.Request.Context(), caller, operator, req.Approved); err != nil {
		respondContractError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetParameter reads a global scalar parameter
func (h *handler) GetParameter(c *gin.Context) {
	key := c.Param("key")

	var value domain.Amount
	var err error
	switch key {
	case domain.ParamDonation:
		value, err = h.registry.Donation(c.Request.Context())
	case domain.ParamPrice:
		value, err = h.registry.Price(c.Request.Context())
	default:
		respondNotFound(c, "Unknown parameter", key)
		return
	}
	if err != nil {
		respondInternalError(c, err, "Failed to read parameter")
		return
	}

	c.JSON(http.StatusOK, dto.ParameterResponse{Key: key, Value: value.String()})
}

// SetParameter updates a global scalar parameter
func (h *handler) SetParameter(c *gin.Context) {
	caller, err := middleware.CallerAddress(c)
	if err != nil {
		respondUnauthorized(c, "Caller address required", err.Error())
		return
	}

	key := c.Param("key")

	var req dto.SetParameterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	value := domain.MustAmount(req.Value)
	switch key {
	case domain.ParamDonation:
		err = h.registry.SetDonation(c.Request.Context(), caller, value)
	case domain.ParamPrice:
		err = h.registry.SetPrice(c.Request.Context(), caller, value)
	default:
		respondNotFound(c, "Unknown parameter", key)
		return
	}
	if err != nil {
		respondContractError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ParameterResponse{Key: key, Value: value.String()})
}

// Withdraw drains the registry balance to the caller
func (h *handler) Withdraw(c *gin.Context) {
	caller, err := middleware.CallerAddress(c)
	if err != nil {
		respondUnauthorized(c, "Caller address required", err.Error())
		return
	}

	amount, err := h.registry.Withdraw(c.Request.Context(), caller)
	if err != nil {
		respondContractError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.WithdrawResponse{To: caller.String(), Amount: amount.String()})
}

// GrantRole grants a role
func (h *handler) GrantRole(c *gin.Context) {
	h.changeRole(c, true)
}

// RevokeRole revokes a role
func (h *handler) RevokeRole(c *gin.Context) {
	h.changeRole(c, false)
}

func (h *handler) changeRole(c *gin.Context, grant bool) {
	caller, err := middleware.CallerAddress(c)
	if err != nil {
		respondUnauthorized(c, "Caller address required", err.Error())
		return
	}

	var req dto.RoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	role := domain.Role(req.Role)
	address := domain.MustAddress(req.Address)

	if grant {
		err = h.registry.GrantRole(c.Request.Context(), caller, role, address)
	} else {
		err = h.registry.RevokeRole(c.Request.Context(), caller, role, address)
	}
	if err != nil {
		respondContractError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RoleResponse{Role: req.Role, Address: address.String(), Held: grant})
}

// GetRole reports whether an address holds a role
func (h *handler) GetRole(c *gin.Context) {
	role := domain.Role(c.Param("role"))
	if !domain.IsValidRole(role) {
		respondNotFound(c, "Unknown role", c.Param("role"))
		return
	}

	address, err := domain.ParseAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid address")
		return
	}

	held, err := h.registry.HasRole(c.Request.Context(), role, address)
	if err != nil {
		respondInternalError(c, err, "Failed to check role")
		return
	}

	c.JSON(http.StatusOK, dto.RoleResponse{Role: string(role), Address: address.String(), Held: held})
}

// GetBalance reads an account's ledger balance
func (h *handler) GetBalance(c *gin.Context) {
	address, err := domain.ParseAddress(c.Param("address"))
	if err != nil {
		respondBadRequest(c, "Invalid address")
		return
	}

	balance, err := h.registry.Balance(c.Request.Context(), address)
	if err != nil {
		respondInternalError(c, err, "Failed to read balance")
		return
	}

	c.JSON(http.StatusOK, dto.BalanceResponse{Address: address.String(), Balance: balance.String()})
}

// ListEvents queries the event journal
func (h *handler) ListEvents(c *gin.Context) {
	params, err := ParseListEventsQuery(c)
	if err != nil {
		respondValidationError(c, err.Error())
		return
	}

	events, total, err := h.registry.Events(c.Request.Context(), store.EventFilter{
		Types:  params.Types,
		TxID:   params.TxID,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		respondInternalError(c, err, "Failed to list events")
		return
	}

	c.JSON(http.StatusOK, dto.EventsToResponse(events, total))
}

// CreateWebhookClient creates a new webhook client
func (h *handler) CreateWebhookClient(c *gin.Context) {
	var req dto.CreateWebhookClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if err := req.Validate(gin.Mode() != gin.ReleaseMode); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	retryMaxAttempts := dto.DefaultRetryMaxAttempts
	if req.RetryMaxAttempts != nil {
		retryMaxAttempts = *req.RetryMaxAttempts
	}

	secret, err := generateWebhookSecret()
	if err != nil {
		respondInternalError(c, err, "Failed to generate webhook secret")
		return
	}

	filters, err := json.Marshal(req.EventFilters)
	if err != nil {
		respondInternalError(c, err, "Failed to encode event filters")
		return
	}

	client := &schema.WebhookClient{
		ClientID:         uuid.NewString(),
		WebhookURL:       req.WebhookURL,
		WebhookSecret:    secret,
		EventFilters:     filters,
		IsActive:         true,
		RetryMaxAttempts: retryMaxAttempts,
	}
	if err := h.store.CreateWebhookClient(c.Request.Context(), client); err != nil {
		respondInternalError(c, err, "Failed to create webhook client")
		return
	}

	c.JSON(http.StatusCreated, dto.WebhookClientToResponse(client))
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":  "ok",
		"service": "biorbit-api",
	})
}

// generateWebhookSecret returns a fresh 32-byte hex-encoded signing secret
func generateWebhookSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// parseIDParam parses a zero-based uint64 path parameter
func parseIDParam(c *gin.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
