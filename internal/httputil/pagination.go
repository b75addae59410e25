package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// ParsePagination parses and validates the offset and limit query parameters.
// Offset defaults to 0, limit to 50 capped at 200. Permission listings and
// audit sweeps page through wide result sets, so the cap is higher than a
// typical per-page default.
func ParsePagination(c *gin.Context) (offset, limit int, err error) {
	offsetStr := c.DefaultQuery("offset", "0")
	offset, err = strconv.Atoi(offsetStr)
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("invalid offset parameter: must be a non-negative integer")
	}

	limitStr := c.DefaultQuery("limit", strconv.Itoa(defaultPageLimit))
	limit, err = strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > maxPageLimit {
		return 0, 0, fmt.Errorf("invalid limit parameter: must be between 1 and %d", maxPageLimit)
	}

	return offset, limit, nil
}
