package app

import (
	"context"
	"errors"
	"math"
	"strings"

	"gopherai-rag/internal/model"
	"gopherai-rag/internal/rag"
	"gopherai-rag/internal/repository"
)

var ErrProductNotFound = errors.New("product not found")

type ProductStore interface {
	Create(ctx context.Context, product *model.Product) error
	GetByID(ctx context.Context, id uint) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, q repository.ProductQuery) ([]model.Product, int64, error)
	FindByName(ctx context.Context, name string, partial bool) ([]model.Product, error)
}

type ProductService struct {
	products ProductStore
}

func NewProductService(products ProductStore) *ProductService {
	return &ProductService{products: products}
}

type ProductInput struct {
	Name        string
	Price       float64
	Description string
}

func (in ProductInput) validate() (ProductInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" || len(in.Name) > 255 {
		return in, ErrInvalidInput
	}
	if in.Price < 0 || math.IsNaN(in.Price) || math.IsInf(in.Price, 0) {
		return in, ErrInvalidInput
	}
	return in, nil
}

type ProductPage struct {
	Items      []model.Product `json:"items"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

func (s *ProductService) List(ctx context.Context, q repository.ProductQuery) (*ProductPage, error) {
	q = q.Normalize()
	items, total, err := s.products.List(ctx, q)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.Product{}
	}
	return &ProductPage{
		Items:      items,
		Total:      total,
		Page:       q.Page,
		Limit:      q.Limit,
		TotalPages: int((total + int64(q.Limit) - 1) / int64(q.Limit)),
	}, nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (*model.Product, error) {
	if id == 0 {
		return nil, ErrInvalidInput
	}
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

func (s *ProductService) Create(ctx context.Context, input ProductInput) (*model.Product, error) {
	input, err := input.validate()
	if err != nil {
		return nil, err
	}
	product := &model.Product{Name: input.Name, Price: input.Price, Description: input.Description}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id uint, input ProductInput) (*model.Product, error) {
	input, err := input.validate()
	if err != nil {
		return nil, err
	}
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Name, product.Price, product.Description = input.Name, input.Price, input.Description
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrInvalidInput
	}
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrProductNotFound
	}
	return nil
}

// FindProducts backs the get_product_info tool.
func (s *ProductService) FindProducts(ctx context.Context, query string, mode rag.MatchMode) ([]rag.ProductInfo, error) {
	if !mode.Valid() {
		return nil, rag.Errorf(rag.ErrToolArgument, "unsupported match mode %q", mode)
	}
	products, err := s.products.FindByName(ctx, query, mode == rag.MatchPartial)
	if err != nil {
		return nil, err
	}
	out := make([]rag.ProductInfo, 0, len(products))
	for _, p := range products {
		out = append(out, rag.ProductInfo{Name: p.Name, Price: p.Price, Description: p.Description})
	}
	return out, nil
}
