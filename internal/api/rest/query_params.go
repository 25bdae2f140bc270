package rest

import (
	"github.com/gin-gonic/gin"
)

const MAX_PAGE_SIZE = 100

// ListAreasQueryParams holds query parameters for GET /areas
type ListAreasQueryParams struct {
	// Name filters by exact area name
	Name string `form:"name"`

	// Page/PageSize select the windowed lookup over a name match; both must be
	// provided together
	Page     *int `form:"page"`
	PageSize *int `form:"page_size"`

	// Pagination
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}

// ListImagesQueryParams holds query parameters for GET /images
type ListImagesQueryParams struct {
	// AreaID filters images to a single area's collection
	AreaID *uint64 `form:"area_id"`

	// Pagination
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}

// ListEventsQueryParams holds query parameters for GET /events
type ListEventsQueryParams struct {
	// Types filters by event type (repeatable)
	Types []string `form:"type"`
	// TxID filters to a single invocation's events
	TxID string `form:"tx_id"`

	// Pagination
	Limit  int `form:"limit,default=20"`
	Offset int `form:"offset,default=0"`
}

// ParseListAreasQuery parses query parameters for GET /areas
func ParseListAreasQuery(c *gin.Context) (*ListAreasQueryParams, error) {
	var params ListAreasQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}
	capLimit(&params.Limit)
	return &params, nil
}

// ParseListImagesQuery parses query parameters for GET /images
func ParseListImagesQuery(c *gin.Context) (*ListImagesQueryParams, error) {
	var params ListImagesQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}
	capLimit(&params.Limit)
	return &params, nil
}

// ParseListEventsQuery parses query parameters for GET /events
func ParseListEventsQuery(c *gin.Context) (*ListEventsQueryParams, error) {
	var params ListEventsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		return nil, err
	}
	capLimit(&params.Limit)
	return &params, nil
}

func capLimit(limit *int) {
	if *limit > MAX_PAGE_SIZE {
		*limit = MAX_PAGE_SIZE
	}
	if *limit < 0 {
		*limit = 0
	}
}
