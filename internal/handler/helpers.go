package handler

import (
	"fmt"
	"log"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// getPathID retrieves and parses a numeric id path parameter
func getPathID(c *gin.Context, paramName string) (int64, error) {
	value := c.Param(paramName)
	if value == "" {
		return 0, fmt.Errorf("%s is required", paramName)
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", paramName)
	}
	return id, nil
}

// getQueryInt retrieves an integer query parameter with a default value
func getQueryInt(c *gin.Context, paramName string, defaultValue int) (int, error) {
	valueStr := c.Query(paramName)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer", paramName)
	}

	return value, nil
}

// getQueryBool retrieves a boolean query parameter, false when absent
func getQueryBool(c *gin.Context, paramName string) bool {
	return c.Query(paramName) == "true"
}

// parseDate parses a date string in YYYY-MM-DD format
func parseDate(dateStr string) (time.Time, error) {
	if dateStr == "" {
		return time.Time{}, nil
	}

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: expected YYYY-MM-DD")
	}

	return date, nil
}

// getFormFiles retrieves every uploaded file for a multipart field. Both the
// repeated "files" field and a single "file" field are accepted.
func getFormFiles(c *gin.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %v", err)
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		return nil, fmt.Errorf("no file provided")
	}
	return headers, nil
}

// bindJSON binds JSON request body to a struct
func bindJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		return fmt.Errorf("invalid JSON format: %v", err)
	}
	return nil
}

// logError logs a handler-level failure with request context
func logError(c *gin.Context, op string, err error, fields map[string]interface{}) {
	log.Printf("[ERROR] %s %s op=%s err=%v fields=%v", c.Request.Method, c.Request.URL.Path, op, err, fields)
}
