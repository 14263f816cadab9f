package catalog

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/epsum/epsumstock/internal/platform/httpx"
)

const maxImportSize = 10 << 20

// ImportQueue hands a parsed customer batch to background processing.
type ImportQueue interface {
	EnqueueCustomerImport(ctx context.Context, owner int64, customers []CustomerInput) (string, error)
}

// Handler exposes catalog endpoints as JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
	imports ImportQueue
}

// NewHandler builds the catalog handler. imports may be nil, in which case
// asynchronous imports are refused.
func NewHandler(logger *slog.Logger, service *Service, imports ImportQueue) *Handler {
	return &Handler{logger: logger, service: service, imports: imports}
}

// MountCategoryRoutes registers category routes.
func (h *Handler) MountCategoryRoutes(r chi.Router) {
	r.Get("/", h.pageCategories)
	r.Post("/", h.createCategory)
	r.Get("/all", h.listCategories)
	r.Get("/find", h.findCategories)
	r.Get("/{id}", h.getCategory)
	r.Put("/{id}", h.updateCategory)
	r.Delete("/{id}", h.deleteCategory)
}

// MountCustomerRoutes registers customer routes.
func (h *Handler) MountCustomerRoutes(r chi.Router) {
	r.Get("/", h.pageCustomers)
	r.Post("/", h.createCustomer)
	r.Get("/all", h.listCustomers)
	r.Get("/find", h.findCustomers)
	r.Post("/import", h.importCustomers)
	r.Get("/{id}", h.getCustomer)
	r.Put("/{id}", h.updateCustomer)
	r.Delete("/{id}", h.deleteCustomer)
}

// MountProductRoutes registers product routes.
func (h *Handler) MountProductRoutes(r chi.Router) {
	r.Get("/", h.pageProducts)
	r.Post("/", h.createProduct)
	r.Get("/all", h.listProducts)
	r.Get("/find", h.findProducts)
	r.Get("/{id}", h.getProduct)
	r.Put("/{id}", h.updateProduct)
	r.Delete("/{id}", h.deleteProduct)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if status := httpx.StatusOf(err); status >= http.StatusInternalServerError {
		h.logger.Error(msg, slog.Any("error", err), slog.String("path", r.URL.Path))
	} else {
		h.logger.Debug(msg, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) pageCategories(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	page, err := h.service.PageCategories(r.Context(), owner, httpx.PageParam(r))
	if err != nil {
		h.fail(w, r, "page categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListCategories(r.Context(), owner)
	if err != nil {
		h.fail(w, r, "list categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) findCategories(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	items, err := h.service.FindCategories(r.Context(), owner, r.URL.Query().Get("name"))
	if err != nil {
		h.fail(w, r, "find categories", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	category, err := h.service.GetCategory(r.Context(), owner, id)
	if err != nil {
		h.fail(w, r, "get category", err)
		return
	}
	httpx.JSON(w, http.StatusOK, category)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	var input CategoryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	category, err := h.service.CreateCategory(r.Context(), owner, input)
	if err != nil {
		h.fail(w, r, "create category", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input CategoryInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	category, err := h.service.UpdateCategory(r.Context(), owner, id, input)
	if err != nil {
		h.fail(w, r, "update category", err)
		return
	}
	httpx.JSON(w, http.StatusOK, category)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteCategory(r.Context(), owner, id); err != nil {
		h.fail(w, r, "delete category", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pageCustomers(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	page, err := h.service.PageCustomers(r.Context(), owner, httpx.PageParam(r))
	if err != nil {
		h.fail(w, r, "page customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListCustomers(r.Context(), owner)
	if err != nil {
		h.fail(w, r, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) findCustomers(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	items, err := h.service.FindCustomers(r.Context(), owner, r.URL.Query().Get("name"))
	if err != nil {
		h.fail(w, r, "find customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.GetCustomer(r.Context(), owner, id)
	if err != nil {
		h.fail(w, r, "get customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	var input CustomerInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.CreateCustomer(r.Context(), owner, input)
	if err != nil {
		h.fail(w, r, "create customer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input CustomerInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.UpdateCustomer(r.Context(), owner, id, input)
	if err != nil {
		h.fail(w, r, "update customer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteCustomer(r.Context(), owner, id); err != nil {
		h.fail(w, r, "delete customer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) importCustomers(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	body, closeBody, err := importBody(w, r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Upload", err.Error())
		return
	}
	defer closeBody()

	inputs, err := ParseCustomersCSV(body)
	if err != nil {
		h.logger.Warn("customer import mapping", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "CSV Mapping Failed", err.Error())
		return
	}

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		if h.imports == nil {
			httpx.Problem(w, http.StatusServiceUnavailable, "Import Queue Unavailable", "")
			return
		}
		taskID, err := h.imports.EnqueueCustomerImport(r.Context(), owner, inputs)
		if err != nil {
			h.logger.Error("enqueue customer import", slog.Any("error", err), slog.Int64("owner", owner))
			httpx.Problem(w, http.StatusServiceUnavailable, "Import Queue Unavailable", "")
			return
		}
		httpx.JSON(w, http.StatusAccepted, map[string]any{"taskId": taskID, "customers": len(inputs)})
		return
	}

	created, err := h.service.CreateAllCustomers(r.Context(), owner, inputs)
	if err != nil {
		h.fail(w, r, "import customers", err)
		return
	}
	h.logger.Info("customers imported", slog.Int64("owner", owner), slog.Int("count", len(created)))
	httpx.JSON(w, http.StatusCreated, created)
}

// importBody returns the CSV payload from either a multipart "file" field or
// the raw request body.
func importBody(w http.ResponseWriter, r *http.Request) (io.Reader, func(), error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportSize)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return r.Body, func() {}, nil
	}
	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		return nil, nil, err
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

func (h *Handler) pageProducts(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	page, err := h.service.PageProducts(r.Context(), owner, httpx.PageParam(r))
	if err != nil {
		h.fail(w, r, "page products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	items, err := h.service.ListProducts(r.Context(), owner)
	if err != nil {
		h.fail(w, r, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) findProducts(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	items, err := h.service.FindProducts(r.Context(), owner, r.URL.Query().Get("name"))
	if err != nil {
		h.fail(w, r, "find products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.GetProduct(r.Context(), owner, id)
	if err != nil {
		h.fail(w, r, "get product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	var input ProductInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.CreateProduct(r.Context(), owner, input)
	if err != nil {
		h.fail(w, r, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var input ProductInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), owner, id, input)
	if err != nil {
		h.fail(w, r, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	owner, ok := httpx.Owner(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), owner, id); err != nil {
		h.fail(w, r, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
