package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tomatomall/tomatomall/internal/bookinfo"
	"github.com/tomatomall/tomatomall/internal/domain"
	"github.com/tomatomall/tomatomall/internal/repository"
)

const maxRequestBody = 1 << 20 // 1 MiB

type errorResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type specificationPayload struct {
	Item  string `json:"item"`
	Value string `json:"value"`
}

type productCreateRequest struct {
	Title          string                 `json:"title"`
	Price          *float64               `json:"price"`
	Description    *string                `json:"description"`
	Cover          *string                `json:"cover"`
	Detail         *string                `json:"detail"`
	Category       *string                `json:"category"`
	Specifications []specificationPayload `json:"specifications"`
}

type productUpdateRequest struct {
	Title          *string                `json:"title"`
	Price          *float64               `json:"price"`
	Description    *string                `json:"description"`
	Cover          *string                `json:"cover"`
	Detail         *string                `json:"detail"`
	Category       *string                `json:"category"`
	Specifications []specificationPayload `json:"specifications"`
}

type productListResponse struct {
	Items      []productResponse `json:"items"`
	NextCursor *string           `json:"nextCursor,omitempty"`
}

type productResponse struct {
	ID             string                 `json:"id"`
	Title          string                 `json:"title"`
	Price          float64                `json:"price"`
	Description    *string                `json:"description,omitempty"`
	Cover          *string                `json:"cover,omitempty"`
	Detail         *string                `json:"detail,omitempty"`
	Category       *string                `json:"category,omitempty"`
	Likes          int64                  `json:"likes"`
	Rating         ratingSummaryResponse  `json:"rating"`
	Specifications []specificationPayload `json:"specifications"`
}

type ratingSummaryResponse struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
}

type stockpileResponse struct {
	ProductID string `json:"productId"`
	Amount    int64  `json:"amount"`
	Frozen    int64  `json:"frozen"`
}

type stockpilePatchRequest struct {
	Amount *int64 `json:"amount"`
}

type likeResponse struct {
	ProductID string `json:"productId"`
	Likes     int64  `json:"likes"`
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filters, err := buildProductFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	result, err := s.repo.Products.List(r.Context(), filters)
	if err != nil {
		s.logger.Printf("list products error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list products")
		return
	}

	s.respondJSON(w, http.StatusOK, toProductListResponse(result))
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	query, err := decodePathParam(r, "query")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	filters := repository.ProductListFilters{Query: &query}
	result, err := s.repo.Products.List(r.Context(), filters)
	if err != nil {
		s.logger.Printf("search products error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to search products")
		return
	}

	s.respondJSON(w, http.StatusOK, toProductListResponse(result))
}

func (s *Server) handleProductsByCategory(w http.ResponseWriter, r *http.Request) {
	category, err := decodePathParam(r, "category")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	filters := repository.ProductListFilters{Category: &category}
	result, err := s.repo.Products.List(r.Context(), filters)
	if err != nil {
		s.logger.Printf("products by category error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list products")
		return
	}

	s.respondJSON(w, http.StatusOK, toProductListResponse(result))
}

func buildProductFilters(query url.Values) (repository.ProductListFilters, error) {
	var filters repository.ProductListFilters

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		filters.Query = &q
	}
	if val := strings.TrimSpace(query.Get("category")); val != "" {
		filters.Category = &val
	}
	if val := strings.TrimSpace(query.Get("limit")); val != "" {
		limit, err := strconv.Atoi(val)
		if err != nil {
			return filters, fmt.Errorf("invalid limit value")
		}
		filters.Limit = limit
	}
	if val := strings.TrimSpace(query.Get("cursor")); val != "" {
		cursor, err := repository.DecodeCursor(val)
		if err != nil {
			return filters, fmt.Errorf("invalid cursor")
		}
		filters.Cursor = cursor
	}
	return filters, nil
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resolveUser(w, r); !ok {
		return
	}

	var req productCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}

	if strings.TrimSpace(req.Title) == "" || req.Price == nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title and price are required")
		return
	}
	if *req.Price < 0 {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "price must be non-negative")
		return
	}

	product, err := s.repo.Products.Create(r.Context(), repository.ProductCreateParams{
		Title:          strings.TrimSpace(req.Title),
		Price:          *req.Price,
		Description:    normalizeStringPtr(req.Description),
		Cover:          normalizeStringPtr(req.Cover),
		Detail:         normalizeStringPtr(req.Detail),
		Category:       normalizeStringPtr(req.Category),
		Specifications: toSpecificationParams(req.Specifications),
	})
	if err != nil {
		s.logger.Printf("create product error: %v", err)
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create product")
		return
	}

	enriched := s.enrichProductMetadata(r.Context(), product)

	location := fmt.Sprintf("/products/%s", url.PathEscape(enriched.ID))
	w.Header().Set("Location", location)
	s.respondJSON(w, http.StatusCreated, toProductResponse(enriched))
}

// enrichProductMetadata backfills specifications (and category) from the
// upstream metadata API. Seller-supplied values always win.
func (s *Server) enrichProductMetadata(ctx context.Context, product domain.Product) domain.Product {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.cfg.BookInfoTimeoutSecs)*time.Second)
	defer cancel()

	result, err := s.bookInfo.Fetch(ctx, product.Title)
	if err != nil {
		if !errors.Is(err, bookinfo.ErrNotFound) {
			s.logger.Printf("bookinfo fetch failed for %s: %v", product.Title, err)
		}
		return product
	}

	existing := make(map[string]struct{}, len(product.Specifications))
	for _, spec := range product.Specifications {
		existing[strings.ToLower(spec.Item)] = struct{}{}
	}

	merged := make([]repository.SpecificationParams, 0, len(product.Specifications)+4)
	for _, spec := range product.Specifications {
		merged = append(merged, repository.SpecificationParams{Item: spec.Item, Value: spec.Value})
	}
	addSpec := func(item string, value *string) {
		if value == nil {
			return
		}
		if _, ok := existing[item]; ok {
			return
		}
		merged = append(merged, repository.SpecificationParams{Item: item, Value: *value})
	}
	addSpec("author", result.Author)
	addSpec("publisher", result.Publisher)
	addSpec("isbn", result.ISBN)
	if result.Pages != nil {
		pages := strconv.Itoa(*result.Pages)
		addSpec("pages", &pages)
	}

	params := repository.ProductUpdateParams{Specifications: merged}
	if product.Category == nil {
		params.Category = result.Category
	}

	updated, err := s.repo.Products.Update(ctx, product.ID, params)
	if err != nil {
		s.logger.Printf("apply product metadata failed: %v", err)
		return product
	}
	return updated
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := s.productIDParam(w, r)
	if !ok {
		return
	}

	product, err := s.repo.Products.GetByID(r.Context(), productID)
	if err != nil {
		s.respondRepositoryError(w, err, "Failed to fetch product")
		return
	}
	s.respondJSON(w, http.StatusOK, toProductResponse(product))
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resolveUser(w, r); !ok {
		return
	}
	productID, ok := s.productIDParam(w, r)
	if !ok {
		return
	}

	var req productUpdateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Price != nil && *req.Price < 0 {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "price must be non-negative")
		return
	}
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title cannot be empty")
		return
	}

	params := repository.ProductUpdateParams{
		Title:       normalizeStringPtr(req.Title),
		Price:       req.Price,
		Description: normalizeStringPtr(req.Description),
		Cover:       normalizeStringPtr(req.Cover),
		Detail:      normalizeStringPtr(req.Detail),
		Category:    normalizeStringPtr(req.Category),
	}
	if req.Specifications != nil {
		params.Specifications = toSpecificationParams(req.Specifications)
	}

	product, err := s.repo.Products.Update(r.Context(), productID, params)
	if err != nil {
		s.respondRepositoryError(w, err, "Failed to update product")
		return
	}
	s.respondJSON(w, http.StatusOK, toProductResponse(product))
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resolveUser(w, r); !ok {
		return
	}
	productID, ok := s.productIDParam(w, r)
	if !ok {
		return
	}

	if err := s.repo.Products.Delete(r.Context(), productID); err != nil {
		s.respondRepositoryError(w, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLikeProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := s.productIDParam(w, r)
	if !ok {
		return
	}

	likes, err := s.repo.Products.Like(r.Context(), productID)
	if err != nil {
		s.respondRepositoryError(w, err, "Failed to like product")
		return
	}
	s.respondJSON(w, http.StatusOK, likeResponse{ProductID: productID, Likes: likes})
}

func (s *Server) handleGetStockpile(w http.ResponseWriter, r *http.Request) {
	productID, ok := s.productIDParam(w, r)
	if !ok {
		return
	}

	stock, err := s.repo.Stock.Get(r.Context(), productID)
	if err != nil {
		s.respondRepositoryError(w, err, "Failed to fetch stockpile")
		return
	}
	s.respondJSON(w, http.StatusOK, stockpileResponse{
		ProductID: stock.ProductID,
		Amount:    stock.Amount,
		Frozen:    stock.Frozen,
	})
}

func (s *Server) handleSetStockpile(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.resolveUser(w, r); !ok {
		return
	}
	productID, ok := s.productIDParam(w, r)
	if !ok {
		return
	}

	var req stockpilePatchRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if req.Amount == nil {
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "amount is required")
		return
	}

	stock, err := s.repo.Stock.SetAmount(r.Context(), productID, *req.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrNegativeAmount) {
			s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "amount must be non-negative")
			return
		}
		s.respondRepositoryError(w, err, "Failed to adjust stockpile")
		return
	}
	s.respondJSON(w, http.StatusOK, stockpileResponse{
		ProductID: stock.ProductID,
		Amount:    stock.Amount,
		Frozen:    stock.Frozen,
	})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	return nil
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Printf("failed to encode response: %v", err)
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string) {
	s.respondJSON(w, status, errorResponse{
		Code:    code,
		Message: message,
	})
}

func (s *Server) respondDecodeError(w http.ResponseWriter, err error) {
	var syntaxError *json.SyntaxError
	var typeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Malformed JSON payload")
	case errors.As(err, &typeError):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", fmt.Sprintf("Invalid value for field %s", typeError.Field))
	case errors.Is(err, io.EOF):
		s.respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Request body cannot be empty")
	default:
		s.respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to parse request body")
	}
}

func (s *Server) respondRepositoryError(w http.ResponseWriter, err error, fallback string) {
	if errors.Is(err, repository.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return
	}
	s.logger.Printf("%s: %v", fallback, err)
	s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", fallback)
}

// resolveUser extracts the authenticated user id or writes a 401 response.
func (s *Server) resolveUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := s.auth.Resolve(r.Header.Get("Authorization"))
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid authentication information")
		return "", false
	}
	return userID, true
}

// productIDParam reads and validates the {productID} path parameter. Malformed
// ids map to 404 so probing requests cannot distinguish them from absent rows.
func (s *Server) productIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := chi.URLParam(r, "productID")
	if raw == "" || uuid.Validate(raw) != nil {
		s.respondError(w, http.StatusNotFound, "NOT_FOUND", "Resource not found")
		return "", false
	}
	return raw, true
}

func decodePathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return "", fmt.Errorf("missing %s parameter", name)
	}
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid %s parameter", name)
	}
	return value, nil
}

func toSpecificationParams(payloads []specificationPayload) []repository.SpecificationParams {
	if payloads == nil {
		return nil
	}
	params := make([]repository.SpecificationParams, 0, len(payloads))
	for _, p := range payloads {
		item := strings.TrimSpace(p.Item)
		if item == "" {
			continue
		}
		params = append(params, repository.SpecificationParams{Item: item, Value: strings.TrimSpace(p.Value)})
	}
	return params
}

func toProductListResponse(result repository.ProductListResult) productListResponse {
	items := make([]productResponse, 0, len(result.Items))
	for _, product := range result.Items {
		items = append(items, toProductResponse(product))
	}
	resp := productListResponse{Items: items}
	if result.NextCursor != nil {
		resp.NextCursor = result.NextCursor
	}
	return resp
}

func toProductResponse(product domain.Product) productResponse {
	specs := make([]specificationPayload, 0, len(product.Specifications))
	for _, spec := range product.Specifications {
		specs = append(specs, specificationPayload{Item: spec.Item, Value: spec.Value})
	}
	return productResponse{
		ID:          product.ID,
		Title:       product.Title,
		Price:       product.Price,
		Description: product.Description,
		Cover:       product.Cover,
		Detail:      product.Detail,
		Category:    product.Category,
		Likes:       product.Likes,
		Rating: ratingSummaryResponse{
			Count: product.Aggregate.Count,
			Mean:  product.Aggregate.Mean,
		},
		Specifications: specs,
	}
}

func normalizeStringPtr(ptr *string) *string {
	if ptr == nil {
		return nil
	}
	val := strings.TrimSpace(*ptr)
	if val == "" {
		return nil
	}
	return &val
}
