package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"gopherai-rag/internal/app"
	"gopherai-rag/internal/model"
	"gopherai-rag/internal/repository"
	"gopherai-rag/internal/transport/http/response"
)

type ProductService interface {
	List(ctx context.Context, q repository.ProductQuery) (*app.ProductPage, error)
	Get(ctx context.Context, id uint) (*model.Product, error)
	Create(ctx context.Context, input app.ProductInput) (*model.Product, error)
	Update(ctx context.Context, id uint, input app.ProductInput) (*model.Product, error)
	Delete(ctx context.Context, id uint) error
}

type ProductHandler struct {
	productService ProductService
}

type ProductRequest struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Price       *float64 `json:"price" binding:"required,gte=0"`
	Description string   `json:"description"`
}

func (r ProductRequest) input() app.ProductInput {
	return app.ProductInput{Name: r.Name, Price: *r.Price, Description: r.Description}
}

type ListProductsQuery struct {
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order"`
	Search    string `form:"search"`
}

func NewProductHandler(productService ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) List(c *gin.Context) {
	var q ListProductsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid query parameters")
		return
	}

	page, err := h.productService.List(c.Request.Context(), repository.ProductQuery{
		Page:      q.Page,
		Limit:     q.Limit,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Search:    q.Search,
	})
	if err != nil {
		response.FromError(c, err, "list products failed")
		return
	}
	response.OK(c, page)
}

func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid product id")
		return
	}
	product, err := h.productService.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err, "get product failed")
		return
	}
	response.OK(c, product)
}

func (h *ProductHandler) Create(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	product, err := h.productService.Create(c.Request.Context(), req.input())
	if err != nil {
		response.FromError(c, err, "create product failed")
		return
	}
	c.JSON(http.StatusCreated, response.APIResponse{Code: response.CodeOK, Message: "ok", Data: product})
}

func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid product id")
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	product, err := h.productService.Update(c.Request.Context(), id, req.input())
	if err != nil {
		response.FromError(c, err, "update product failed")
		return
	}
	response.OK(c, product)
}

func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid product id")
		return
	}
	if err := h.productService.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err, "delete product failed")
		return
	}
	response.OK(c, gin.H{"deleted_product_id": id})
}
