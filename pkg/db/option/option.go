package option

import (
	"fmt"
	"strings"
	"time"

	"github.com/ferrolab/certline/pkg/db/pagination"
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(db *gorm.DB) *gorm.DB
}

type Operator string

const (
	EQ   Operator = "="
	GTE  Operator = ">="
	LTE  Operator = "<="
	LIKE Operator = "LIKE"
)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

type operatorOption struct {
	cond Condition
}

func ApplyOperator(cond Condition) QueryOption {
	return operatorOption{cond: cond}
}

func (o operatorOption) Apply(db *gorm.DB) *gorm.DB {
	field := strings.TrimSpace(o.cond.Field)
	if field == "" {
		return db
	}
	return db.Where(fmt.Sprintf("%s %s ?", field, o.cond.Operator), o.cond.Value)
}

type QuerySortBy struct {
	Field string
	Order string
	Allow map[string]bool
}

func WithQuerySortBy(field, order string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{Field: field, Order: order, Allow: allow}
}

type sortOption struct {
	sort QuerySortBy
}

func WithSortBy(sort QuerySortBy) QueryOption {
	return sortOption{sort: sort}
}

func (o sortOption) Apply(db *gorm.DB) *gorm.DB {
	field := strings.TrimSpace(o.sort.Field)
	if field == "" || (o.sort.Allow != nil && !o.sort.Allow[field]) {
		return db
	}
	order := strings.ToLower(strings.TrimSpace(o.sort.Order))
	if order != "asc" && order != "desc" {
		order = "desc"
	}
	return db.Order(fmt.Sprintf("%s %s", field, order))
}

type paginationOption struct {
	page pagination.Pagination
}

// ApplyPagination applies cursor pagination keyed on (created_at, id). One
// extra row is fetched so callers can detect a further page.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return paginationOption{page: page}
}

func (o paginationOption) Apply(db *gorm.DB) *gorm.DB {
	size := o.page.PageSize
	if size <= 0 {
		size = 50
	}
	if size > 250 {
		size = 250
	}

	if token := strings.TrimSpace(o.page.PageToken); token != "" {
		cursor, err := pagination.DecodeCursor(token)
		if err == nil && cursor != nil {
			if createdAt, parseErr := time.Parse(time.RFC3339, cursor.CreatedAt); parseErr == nil {
				db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
			}
		}
	}

	return db.Limit(int(size) + 1)
}
