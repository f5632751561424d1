package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cloud-ru/loan-preview-go/internal/logger"
	"github.com/cloud-ru/loan-preview-go/internal/tools"
)

const maxBodyBytes = 1 << 20

// RequestTimeout предел обработки одного запроса. WriteTimeout сервера
// должен быть больше, иначе ответ 503 от middleware не успеет уйти.
const RequestTimeout = 30 * time.Second

// Handler HTTP-обработчики поверх инструментов
type Handler struct {
	preview tools.ToolHandler
	summary tools.ToolHandler
	submit  tools.ToolHandler
	log     *zap.Logger
}

// NewHandler создает обработчики; log может быть nil
func NewHandler(preview, summary, submit tools.ToolHandler, log *zap.Logger) *Handler {
	return &Handler{
		preview: preview,
		summary: summary,
		submit:  submit,
		log:     logger.OrNop(log),
	}
}

// InitRouter собирает chi-роутер с middleware и маршрутами API
func (h *Handler) InitRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(RequestTimeout),
	)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h.success(w, "ok", nil)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/preview/installment", h.tool("installment_preview", h.preview))
		r.Post("/installments/summary", h.tool("installment_summary", h.summary))
		r.Post("/installments/submit", h.tool("installment_submit", h.submit))
	})

	return r
}

func (h *Handler) tool(name string, run tools.ToolHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params map[string]interface{}
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&params); err != nil {
			h.errorBadRequest(w, "invalid JSON body")
			return
		}

		out, err := run(r.Context(), params)
		if err != nil {
			var verr *tools.ValidationError
			if errors.As(err, &verr) {
				h.errorBadRequest(w, verr.Error())
				return
			}
			h.log.Error("tool failed",
				zap.String("tool", name),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.Error(err),
			)
			h.errorInternal(w, "internal error")
			return
		}

		h.success(w, name, out)
	}
}
