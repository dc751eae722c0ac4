package employee

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/staffdesk/employee-api/app/observability/metrics"
	"github.com/staffdesk/employee-api/internal/api"
	"github.com/staffdesk/employee-api/internal/api/auth"
)

// EmployeeHandler exposes the employee HTTP surface: login, registration,
// reads, partial update, status toggle rides on update, image upload, delete.
type EmployeeHandler struct {
	employeeService EmployeeService
	logger          *slog.Logger
	uploadDir       string
	maxUploadBytes  int64
}

func NewEmployeeHandler(employeeService EmployeeService, logger *slog.Logger, uploadDir string, maxUploadBytes int64) *EmployeeHandler {
	return &EmployeeHandler{
		employeeService: employeeService,
		logger:          logger,
		uploadDir:       uploadDir,
		maxUploadBytes:  maxUploadBytes,
	}
}

// Login authenticates a username/password pair and returns the reduced
// employee projection plus a bearer token.
func (h *EmployeeHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("Login").Start(r.Context(), "Login", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/employees/login"),
	))
	defer span.End()

	start := time.Now()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.employeeService.Authenticate(ctx, req.Username, req.Password)
	metrics.Get().LoginRequestsTotal.Add(ctx, 1)
	metrics.Get().LoginDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		// Unknown username and wrong password deliberately collapse into
		// the same response.
		if errors.Is(err, api.ErrUnauthenticated) {
			l.WarnContext(ctx, "Login rejected", slog.String("username", req.Username))
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Login failed")
		return
	}

	l.InfoContext(ctx, "Login successful", slog.Int("employeeID", resp.EmployeeID))
	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// Register creates a new employee account. The caller may not choose a role:
// self-registration always produces a regular employee.
func (h *EmployeeHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("Register").Start(r.Context(), "Register", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/employees/register"),
	))
	defer span.End()

	start := time.Now()
	l := h.logger.With(slog.String("handler", "Register"))

	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Public route: whatever the payload claims, a self-registered account
	// starts as an active regular employee.
	req.Role = ""
	req.Status = ""
	req.CreatedBy = ""

	id, err := h.employeeService.Register(ctx, req)
	metrics.Get().RegisterRequestsTotal.Add(ctx, 1)
	metrics.Get().RegisterDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		switch {
		case errors.Is(err, api.ErrValidation):
			l.WarnContext(ctx, "Registration rejected", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, api.ErrConflict):
			l.WarnContext(ctx, "Username already taken", slog.String("username", req.Username))
			api.ErrorResponse(w, r, http.StatusConflict, "Username already exists")
		default:
			l.ErrorContext(ctx, "Registration failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Registration failed")
		}
		return
	}

	l.InfoContext(ctx, "Employee registered", slog.Int("employeeID", id))
	api.WriteJSONResponse(w, r, http.StatusCreated, RegisterResponse{EmployeeID: id})
}

// GetByID returns a single employee record.
func (h *EmployeeHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("GetEmployee").Start(r.Context(), "GetEmployee", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/employees/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetByID"))

	id, err := employeeIDParam(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid employee ID")
		return
	}

	emp, err := h.employeeService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Employee not found")
			return
		}
		l.ErrorContext(ctx, "Failed to fetch employee", slog.Int("employeeID", id), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to fetch employee")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, emp)
}

// GetAll returns every employee record. Filtering and pagination are
// client-side concerns; the endpoint always returns the full set.
func (h *EmployeeHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ListEmployees").Start(r.Context(), "ListEmployees", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/employees"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetAll"))

	emps, err := h.employeeService.GetAll(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list employees", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to list employees")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, emps)
}

// Update applies a partial update to an employee record. Omitted fields keep
// their stored values; supplied fields, including explicit nulls, win.
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UpdateEmployee").Start(r.Context(), "UpdateEmployee", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/employees/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Update"))

	id, err := employeeIDParam(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid employee ID")
		return
	}

	sess, ok := auth.GetSessionFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req UpdateEmployeeRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	modifiedBy := r.URL.Query().Get("modifiedBy")

	count, err := h.employeeService.Update(ctx, id, req, sess, modifiedBy)
	metrics.Get().UpdateRequestsTotal.Add(ctx, 1)
	if err != nil {
		h.writeUpdateError(ctx, w, r, l, id, err)
		return
	}

	l.InfoContext(ctx, "Employee updated", slog.Int("employeeID", id), slog.Int("count", count))
	api.WriteJSONResponse(w, r, http.StatusOK, UpdateResponse{UpdatedCount: count})
}

// Delete removes an employee record. Admin only.
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("DeleteEmployee").Start(r.Context(), "DeleteEmployee", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/employees/{id}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "Delete"))

	id, err := employeeIDParam(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid employee ID")
		return
	}

	sess, ok := auth.GetSessionFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	count, err := h.employeeService.Delete(ctx, id, sess)
	if err != nil {
		switch {
		case errors.Is(err, api.ErrForbidden):
			api.ErrorResponse(w, r, http.StatusForbidden, "Admin role required")
		case errors.Is(err, api.ErrNotFound):
			api.ErrorResponse(w, r, http.StatusNotFound, "Employee not found")
		default:
			l.ErrorContext(ctx, "Failed to delete employee", slog.Int("employeeID", id), slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to delete employee")
		}
		return
	}

	l.InfoContext(ctx, "Employee deleted", slog.Int("employeeID", id))
	api.WriteJSONResponse(w, r, http.StatusOK, UpdateResponse{UpdatedCount: count})
}

// UploadImage accepts a multipart profile image, stores it under the upload
// directory with a random name and records the reference on the employee row.
func (h *EmployeeHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("UploadImage").Start(r.Context(), "UploadImage", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/employees/{id}/image"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UploadImage"))

	id, err := employeeIDParam(r)
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid employee ID")
		return
	}

	sess, ok := auth.GetSessionFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	if !sess.IsAdmin() && sess.EmployeeID != id {
		api.ErrorResponse(w, r, http.StatusForbidden, "Cannot modify another employee's image")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		l.WarnContext(ctx, "Failed to parse multipart form", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid multipart form or file too large")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	assetRef, err := h.saveUpload(file, header.Filename)
	if err != nil {
		l.ErrorContext(ctx, "Failed to store uploaded file", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to store image")
		return
	}

	if err := h.employeeService.AttachProfileImage(ctx, id, assetRef); err != nil {
		if errors.Is(err, api.ErrNotFound) {
			api.ErrorResponse(w, r, http.StatusNotFound, "Employee not found")
			return
		}
		l.ErrorContext(ctx, "Failed to attach profile image", slog.Int("employeeID", id), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to attach image")
		return
	}

	metrics.Get().ImageUploadsTotal.Add(ctx, 1)
	l.InfoContext(ctx, "Profile image attached", slog.Int("employeeID", id), slog.String("asset", assetRef))
	api.WriteJSONResponse(w, r, http.StatusOK, ImageResponse{ProfileImage: assetRef})
}

func (h *EmployeeHandler) saveUpload(src io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		ext = ""
	}
	name := uuid.New().String() + ext

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating upload dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(h.uploadDir, name))
	if err != nil {
		return "", fmt.Errorf("creating upload file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("writing upload file: %w", err)
	}
	return name, nil
}

func (h *EmployeeHandler) writeUpdateError(ctx context.Context, w http.ResponseWriter, r *http.Request, l *slog.Logger, id int, err error) {
	switch {
	case errors.Is(err, api.ErrValidation):
		l.WarnContext(ctx, "Update rejected", slog.Int("employeeID", id), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, api.ErrForbidden):
		api.ErrorResponse(w, r, http.StatusForbidden, "Not allowed to modify this record")
	case errors.Is(err, api.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Employee not found")
	case errors.Is(err, api.ErrConflict):
		api.ErrorResponse(w, r, http.StatusConflict, "Conflicting update")
	default:
		l.ErrorContext(ctx, "Failed to update employee", slog.Int("employeeID", id), slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update employee")
	}
}

func employeeIDParam(r *http.Request) (int, error) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid employee id %q", idStr)
	}
	return id, nil
}
