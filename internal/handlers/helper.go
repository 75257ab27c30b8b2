package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// parseIDParam reads a positive uint path parameter. It writes a 400 and
// returns 0 when the value is missing or malformed.
func parseIDParam(c *gin.Context, param string) uint {
	id, err := parseID(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: err.Error(),
			Code:    CodeInvalidPayload,
		})
		return 0
	}
	return id
}

// parseIDQuery is parseIDParam for query strings.
func parseIDQuery(c *gin.Context, key string) uint {
	id, err := parseID(c.Query(key))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + key,
			Details: err.Error(),
			Code:    CodeInvalidPayload,
		})
		return 0
	}
	return id
}

func parseID(raw string) (uint, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("ID cannot be empty")
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("ID must be positive")
	}
	return uint(id), nil
}

func sendWorkbook(c *gin.Context, filename string, data []byte) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
