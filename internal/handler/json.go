package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
)

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

type Response struct {
	Success bool             `json:"success"`
	Code    domain.ErrorCode `json:"code,omitempty"`
	Message string           `json:"message"`
	Data    any              `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, code domain.ErrorCode, msg string) {
	h.writeJSON(w, r, status, Response{
		Success: false,
		Code:    code,
		Message: msg,
		Data:    nil,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, err.Error())
		return
	}

	h.errorResponse(w, r, http.StatusBadRequest, domain.CodeInvalidRequest, validationErrors[0].Translate(h.translator))
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusUnauthorized, "", msg)
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request) {
	h.errorResponse(w, r, http.StatusForbidden, "", "权限不足")
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusNotFound, domain.CodeNotFound, msg)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.writeJSON(w, r, http.StatusInternalServerError, Response{
		Success: false,
		Message: "服务器内部错误",
		Data:    nil,
	})
}

// statusOf 把业务错误码映射为 HTTP 状态码
func statusOf(code domain.ErrorCode) int {
	switch code {
	case domain.CodeInvalidRange, domain.CodeInvalidRequest:
		return http.StatusBadRequest
	case domain.CodeNotFound, domain.CodeConfigNotFound:
		return http.StatusNotFound
	case domain.CodeSlotsUnavailable, domain.CodeNotActive, domain.CodeHoldLimitExceeded:
		return http.StatusConflict
	case domain.CodeOutsideShift, domain.CodeBankHoliday, domain.CodeBufferWindowViolation:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// serviceError 把业务错误原样返回给调用方，其他错误一律视为服务器内部错误
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	var e *domain.Error
	if !errors.As(err, &e) {
		h.internalServerError(w, r, err)
		return
	}

	h.errorResponse(w, r, statusOf(e.Code), e.Code, e.Message)
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}
