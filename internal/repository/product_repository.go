package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"gopherai-rag/internal/model"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var sortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"created_at": "created_at",
}

type ProductQuery struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	Search    string
}

// Normalize clamps paging and falls back to newest first for unknown sort keys.
func (q ProductQuery) Normalize() ProductQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
	if _, ok := sortColumns[q.SortBy]; !ok {
		q.SortBy = "created_at"
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
	if q.SortOrder != "asc" {
		q.SortOrder = "desc"
	}
	q.Search = strings.TrimSpace(q.Search)
	return q
}

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(ctx context.Context, product *model.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("create product failed: %w", err)
	}
	return nil
}

func (r *ProductRepository) GetByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product failed: %w", err)
	}
	return &product, nil
}

func (r *ProductRepository) Update(ctx context.Context, product *model.Product) error {
	err := r.db.WithContext(ctx).Model(product).Select("name", "price", "description").Updates(product).Error
	if err != nil {
		return fmt.Errorf("update product failed: %w", err)
	}
	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("delete product failed: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// List returns one page of products and the total match count.
func (r *ProductRepository) List(ctx context.Context, q ProductQuery) ([]model.Product, int64, error) {
	q = q.Normalize()
	filtered := func() *gorm.DB {
		tx := r.db.WithContext(ctx).Model(&model.Product{})
		if q.Search != "" {
			pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
			tx = tx.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
		}
		return tx
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products failed: %w", err)
	}

	var products []model.Product
	err := filtered().Order(sortColumns[q.SortBy] + " " + q.SortOrder).
		Offset((q.Page - 1) * q.Limit).
		Limit(q.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list products failed: %w", err)
	}
	return products, total, nil
}

// FindByName matches names case-insensitively, either fully or as a substring.
// Every match is returned.
func (r *ProductRepository) FindByName(ctx context.Context, name string, partial bool) ([]model.Product, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	tx := r.db.WithContext(ctx)
	if partial {
		tx = tx.Where("LOWER(name) LIKE ?", "%"+escapeLike(name)+"%")
	} else {
		tx = tx.Where("LOWER(name) = ?", name)
	}

	var products []model.Product
	if err := tx.Order("name ASC, id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("find products failed: %w", err)
	}
	return products, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
