package rest

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// APIResponse конверт всех ответов API
type APIResponse struct {
	ErrorCode int         `json:"error_code"`
	Status    string      `json:"status"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data"`
}

func (h *Handler) respond(w http.ResponseWriter, message string, data interface{}, errorCode int, status string, httpStatus int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)

	response := APIResponse{
		ErrorCode: errorCode,
		Status:    status,
		Message:   message,
		Data:      data,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("write response failed", zap.Error(err))
	}
}

func (h *Handler) success(w http.ResponseWriter, message string, data interface{}) {
	h.respond(w, message, data, 0, "success", http.StatusOK)
}

func (h *Handler) errorBadRequest(w http.ResponseWriter, message string) {
	h.respond(w, message, nil, 400, "error", http.StatusBadRequest)
}

func (h *Handler) errorInternal(w http.ResponseWriter, message string) {
	h.respond(w, message, nil, 500, "error", http.StatusInternalServerError)
}
