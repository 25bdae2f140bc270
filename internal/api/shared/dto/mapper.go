package dto

import (
	"encoding/json"

	"github.com/biorbit/biorbit/internal/store/schema"
)

// AreaToResponse maps a stored area onto the API shape
func AreaToResponse(area *schema.ProtectedArea) AreaResponse {
	resp := AreaResponse{
		AreaID:            area.AreaID,
		Name:              area.Name,
		Description:       area.Description,
		Photo:             area.Photo,
		GeoJSON:           json.RawMessage(area.GeoJSON),
		Country:           area.Country,
		LastDetectionDate: area.LastDetectionDate,
		TotalExtension:    area.TotalExtension,
		RegisteredBy:      area.RegisteredBy,
		CreatedAt:         area.CreatedAt,
		UpdatedAt:         area.UpdatedAt,
	}
	if len(area.DetectionDates) > 0 {
		_ = json.Unmarshal(area.DetectionDates, &resp.DetectionDates)
	}
	if len(area.ForestCoverExtensions) > 0 {
		_ = json.Unmarshal(area.ForestCoverExtensions, &resp.ForestCoverExtensions)
	}
	return resp
}

// AreasToResponse maps a stored area page onto the API shape
func AreasToResponse(areas []*schema.ProtectedArea, total uint64) ListAreasResponse {
	resp := ListAreasResponse{
		Areas: make([]AreaResponse, 0, len(areas)),
		Total: total,
	}
	for _, area := range areas {
		resp.Areas = append(resp.Areas, AreaToResponse(area))
	}
	return resp
}

// ImageToResponse maps a stored image onto the API shape. The owner comes from
// the token ledger and may be empty when not expanded.
func ImageToResponse(image *schema.SatelliteImage, owner string) ImageResponse {
	return ImageResponse{
		ImageID:   image.ImageID,
		AreaID:    image.AreaID,
		AreaName:  image.AreaName,
		URI:       image.URI,
		Price:     image.Price,
		Sold:      image.Sold,
		Seller:    image.Seller,
		Owner:     owner,
		CreatedAt: image.CreatedAt,
		UpdatedAt: image.UpdatedAt,
	}
}

// ImagesToResponse maps a stored image page onto the API shape
func ImagesToResponse(images []*schema.SatelliteImage, total uint64) ListImagesResponse {
	resp := ListImagesResponse{
		Images: make([]ImageResponse, 0, len(images)),
		Total:  total,
	}
	for _, image := range images {
		resp.Images = append(resp.Images, ImageToResponse(image, ""))
	}
	return resp
}

// EventToResponse maps an event journal row onto the API shape
func EventToResponse(event *schema.ContractEvent) EventResponse {
	return EventResponse{
		EventID:   event.EventID,
		EventType: event.EventType,
		TxID:      event.TxID,
		Digest:    event.Digest,
		Payload:   json.RawMessage(event.Payload),
		EmittedAt: event.CreatedAt,
	}
}

// EventsToResponse maps an event journal page onto the API shape
func EventsToResponse(events []*schema.ContractEvent, total uint64) ListEventsResponse {
	resp := ListEventsResponse{
		Events: make([]EventResponse, 0, len(events)),
		Total:  total,
	}
	for _, event := range events {
		resp.Events = append(resp.Events, EventToResponse(event))
	}
	return resp
}

// WebhookClientToResponse maps a stored webhook client onto the API shape
func WebhookClientToResponse(client *schema.WebhookClient) CreateWebhookClientResponse {
	var filters []string
	if len(client.EventFilters) > 0 {
		_ = json.Unmarshal(client.EventFilters, &filters)
	}
	return CreateWebhookClientResponse{
		ClientID:         client.ClientID,
		WebhookURL:       client.WebhookURL,
		WebhookSecret:    client.WebhookSecret,
		EventFilters:     filters,
		IsActive:         client.IsActive,
		RetryMaxAttempts: client.RetryMaxAttempts,
		CreatedAt:        client.CreatedAt,
		UpdatedAt:        client.UpdatedAt,
	}
}
