package pagination

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
	MinLimit     = 1
)

// InvoiceSortFields are the invoice columns a list may be ordered by.
var InvoiceSortFields = []string{"created_at", "invoice_no", "total", "balance_due"}

// DefaultInvoiceSort puts the newest jobs first.
var DefaultInvoiceSort = Sort{Field: "created_at", Desc: true}

// Params holds validated pagination parameters
type Params struct {
	Page   int
	Limit  int
	Offset int
}

// Parse extracts and validates page/limit from query parameters
func Parse(c *gin.Context) Params {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(DefaultPage)))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultLimit)))
	return Normalize(page, limit)
}

// Normalize clamps page and limit into range. Services call it too, since
// not every caller comes through an HTTP query.
func Normalize(page, limit int) Params {
	if page < 1 {
		page = DefaultPage
	}
	if limit < MinLimit {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
}

// Sort is an ORDER BY restricted to known column names.
type Sort struct {
	Field string
	Desc  bool
}

// Clause renders the sort for gorm's Order. The field is always whitelisted.
func (s Sort) Clause() string {
	return s.Field + lo.Ternary(s.Desc, " desc", " asc")
}

// Within returns s when its field is allowed, otherwise fallback.
func (s Sort) Within(allowed []string, fallback Sort) Sort {
	if lo.Contains(allowed, s.Field) {
		return s
	}
	return fallback
}

// ParseSort reads ?sort=<field>&order=asc|desc.
func ParseSort(c *gin.Context, allowed []string, fallback Sort) Sort {
	return NormalizeSort(c.Query("sort"), c.Query("order"), allowed, fallback)
}

// NormalizeSort falls back for unknown fields. Order defaults to descending.
func NormalizeSort(field, order string, allowed []string, fallback Sort) Sort {
	field = strings.ToLower(strings.TrimSpace(field))
	if !lo.Contains(allowed, field) {
		return fallback
	}
	return Sort{Field: field, Desc: !strings.EqualFold(strings.TrimSpace(order), "asc")}
}
