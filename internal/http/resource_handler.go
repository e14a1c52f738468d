package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/campus-reservations/internal/application"
)

type resourceService interface {
	CreateResource(ctx context.Context, params application.CreateResourceParams) (application.Resource, error)
	UpdateResource(ctx context.Context, params application.UpdateResourceParams) (application.Resource, error)
	GetResource(ctx context.Context, principal application.Principal, id string) (application.Resource, error)
	ListResources(ctx context.Context, params application.ListResourcesParams) ([]application.Resource, error)
}

// ResourceHandler serves the resource catalog.
type ResourceHandler struct {
	service   resourceService
	responder responder
	logger    *slog.Logger
}

func NewResourceHandler(service resourceService, logger *slog.Logger) *ResourceHandler {
	base := defaultLogger(logger)
	return &ResourceHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ResourceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ResourceHandler", operation, attrs...)
}

func (h *ResourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())

	var req resourceRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode resource request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "principal_id", principal.UserID)
	resource, err := h.service.CreateResource(r.Context(), application.CreateResourceParams{
		Principal: principal,
		Input:     req.toInput(),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "resource creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("resource_id", resource.ID).InfoContext(r.Context(), "resource created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, resourceResponse{Resource: toResourceDTO(resource)})
}

// Update applies a partial update: omitted fields keep their stored value.
func (h *ResourceHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	resourceID := r.PathValue("id")

	var req resourcePatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Update", "resource_id", resourceID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode resource update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "principal_id", principal.UserID, "resource_id", resourceID)
	if !principal.IsAdmin {
		h.responder.handleServiceError(r.Context(), w, application.ErrUnauthorized)
		return
	}

	current, err := h.service.GetResource(r.Context(), principal, resourceID)
	if err != nil {
		logger.WarnContext(r.Context(), "resource lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	resource, err := h.service.UpdateResource(r.Context(), application.UpdateResourceParams{
		Principal:  principal,
		ResourceID: resourceID,
		Input:      req.merge(current),
	})
	if err != nil {
		logger.WarnContext(r.Context(), "resource update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "resource updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	resourceID := r.PathValue("id")

	resource, err := h.service.GetResource(r.Context(), principal, resourceID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resourceResponse{Resource: toResourceDTO(resource)})
}

func (h *ResourceHandler) List(w http.ResponseWriter, r *http.Request) {
	principal, _ := PrincipalFromContext(r.Context())
	query := r.URL.Query()

	activeOnly := false
	if value := query.Get("active"); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidQuery)
			return
		}
		activeOnly = parsed
	}

	resources, err := h.service.ListResources(r.Context(), application.ListResourcesParams{
		Principal:  principal,
		Kind:       application.ResourceKind(strings.TrimSpace(query.Get("kind"))),
		ActiveOnly: activeOnly,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "List", "principal_id", principal.UserID).With("result_count", len(resources)).DebugContext(r.Context(), "resources listed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, listResourcesResponse{Resources: toResourceDTOs(resources)})
}

type resourceRequest struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Label    string `json:"label"`
	Location string `json:"location"`
	Capacity int    `json:"capacity"`
	IsActive *bool  `json:"is_active"`
}

func (r resourceRequest) toInput() application.ResourceInput {
	return application.ResourceInput{
		ID:       strings.TrimSpace(r.ID),
		Kind:     application.ResourceKind(strings.TrimSpace(r.Kind)),
		Label:    r.Label,
		Location: r.Location,
		Capacity: r.Capacity,
		IsActive: r.IsActive,
	}
}

type resourcePatchRequest struct {
	Kind     *string `json:"kind"`
	Label    *string `json:"label"`
	Location *string `json:"location"`
	Capacity *int    `json:"capacity"`
	IsActive *bool   `json:"is_active"`
}

func (r resourcePatchRequest) merge(current application.Resource) application.ResourceInput {
	input := application.ResourceInput{
		Label:    current.Label,
		Location: current.Location,
		Capacity: current.Capacity,
		IsActive: r.IsActive,
	}
	if r.Kind != nil {
		input.Kind = application.ResourceKind(strings.TrimSpace(*r.Kind))
	}
	if r.Label != nil {
		input.Label = *r.Label
	}
	if r.Location != nil {
		input.Location = *r.Location
	}
	if r.Capacity != nil {
		input.Capacity = *r.Capacity
	}
	return input
}

type resourceResponse struct {
	Resource resourceDTO `json:"resource"`
}

type listResourcesResponse struct {
	Resources []resourceDTO `json:"resources"`
}

type resourceDTO struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Label     string `json:"label"`
	Location  string `json:"location,omitempty"`
	Capacity  int    `json:"capacity"`
	Status    string `json:"status"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func toResourceDTO(resource application.Resource) resourceDTO {
	return resourceDTO{
		ID:        resource.ID,
		Kind:      string(resource.Kind),
		Label:     resource.Label,
		Location:  resource.Location,
		Capacity:  resource.Capacity,
		Status:    string(resource.Status),
		IsActive:  resource.IsActive,
		CreatedAt: formatTime(resource.CreatedAt),
		UpdatedAt: formatTime(resource.UpdatedAt),
	}
}

func toResourceDTOs(resources []application.Resource) []resourceDTO {
	out := make([]resourceDTO, 0, len(resources))
	for _, resource := range resources {
		out = append(out, toResourceDTO(resource))
	}
	return out
}

// decodeJSON decodes the request body, rejecting unknown fields and
// trailing data.
func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
