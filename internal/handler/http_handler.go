package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/pesio-ai/be-plt-approvals/internal/errors"
	"github.com/pesio-ai/be-plt-approvals/internal/logger"
	"github.com/pesio-ai/be-plt-approvals/internal/repository"
	"github.com/pesio-ai/be-plt-approvals/internal/service"
)

// HTTPHandler handles HTTP requests
type HTTPHandler struct {
	service *service.ApprovalService
	log     *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler
func NewHTTPHandler(svc *service.ApprovalService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: svc,
		log:     log,
	}
}

// CreateWorkflow handles create workflow HTTP requests
func (h *HTTPHandler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var wf repository.WorkflowDefinition
	if err := json.NewDecoder(r.Body).Decode(&wf); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.service.CreateWorkflow(r.Context(), &wf)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, created)
}

// ListWorkflows handles list workflows HTTP requests
func (h *HTTPHandler) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	tenantID := q.Get("tenant_id")
	companyID := q.Get("company_id")
	entityType := q.Get("entity_type")
	entityID := q.Get("entity_id")

	var entitySubType *string
	if v := q.Get("entity_sub_type"); v != "" {
		entitySubType = &v
	}

	// Optional amount makes amount-dependent conditions evaluable.
	var metadata map[string]any
	if v := q.Get("amount"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			http.Error(w, "Invalid amount", http.StatusBadRequest)
			return
		}
		metadata = map[string]any{"amount": amount}
	}

	workflows, err := h.service.GetWorkflows(r.Context(), tenantID, companyID, entityType, entityID, entitySubType, metadata)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"workflows": workflows,
		"total":     len(workflows),
	})
}

// CreateApprovalRequest handles create approval request HTTP requests
func (h *HTTPHandler) CreateApprovalRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.CreateApprovalRequestInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.CreateApprovalRequest(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, view)
}

// ProcessApprovalAction handles approve/reject/escalate HTTP requests
func (h *HTTPHandler) ProcessApprovalAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.ProcessApprovalActionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	view, err := h.service.ProcessApprovalAction(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

// GetApprovalRequest handles get approval request HTTP requests
func (h *HTTPHandler) GetApprovalRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	requestID := r.URL.Query().Get("id")
	if tenantID == "" || requestID == "" {
		http.Error(w, "Tenant ID and request ID are required", http.StatusBadRequest)
		return
	}

	view, err := h.service.GetApprovalRequest(r.Context(), tenantID, requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, view)
}

// GetPendingApprovals handles pending approvals HTTP requests
func (h *HTTPHandler) GetPendingApprovals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	userID := r.URL.Query().Get("user_id")
	if tenantID == "" || userID == "" {
		http.Error(w, "Tenant ID and user ID are required", http.StatusBadRequest)
		return
	}

	assignees, err := h.service.GetPendingApprovals(r.Context(), tenantID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"pending": assignees,
		"total":   len(assignees),
	})
}

// GetApprovalHistory handles audit trail HTTP requests
func (h *HTTPHandler) GetApprovalHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	tenantID := r.URL.Query().Get("tenant_id")
	requestID := r.URL.Query().Get("request_id")
	if tenantID == "" || requestID == "" {
		http.Error(w, "Tenant ID and request ID are required", http.StatusBadRequest)
		return
	}

	entries, err := h.service.GetApprovalHistory(r.Context(), tenantID, requestID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"history": entries,
		"total":   len(entries),
	})
}

// ── response helpers ─────────────────────────────────────────────────────────

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Warn().Err(err).Msg("Failed to encode response body")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	code := errors.CodeOf(err)

	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeNotFound, errors.ErrCodeNoWorkflowFound:
		status = http.StatusNotFound
	case errors.ErrCodeAlreadyProcessed:
		status = http.StatusConflict
	case errors.ErrCodeConditionsNotMet:
		status = http.StatusUnprocessableEntity
	case errors.ErrCodeInvalidConfiguration, errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case errors.ErrCodeUnauthorized:
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}

	h.writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    string(code),
			"message": err.Error(),
		},
	})
}
