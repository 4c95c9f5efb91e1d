package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bher20/cryptofolio/internal/bot"
	"github.com/bher20/cryptofolio/internal/portfolio"
)

// NewMux constructs the HTTP mux, wiring in the portfolio service, the
// chat-webhook dispatcher, metrics, and health endpoints.
func NewMux(svc *portfolio.Service, dispatcher *bot.Dispatcher) *http.ServeMux {
	mux := http.NewServeMux()
	h := &handlers{svc: svc, dispatcher: dispatcher}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/command", h.command)
	mux.HandleFunc("/api/v1/register", h.register)
	mux.HandleFunc("/api/v1/holdings", h.holdings)
	mux.HandleFunc("/api/v1/summary", h.summary)
	mux.HandleFunc("/api/v1/save", h.save)

	return mux
}

type handlers struct {
	svc        *portfolio.Service
	dispatcher *bot.Dispatcher
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}

func userParam(r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("user")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// command is the chat-webhook endpoint: one inbound chat message in, one
// reply string out.
func (h *handlers) command(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	var req struct {
		User int64  `json:"user"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply := h.dispatcher.Handle(r.Context(), req.User, req.Text)
	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (h *handlers) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	user, ok := userParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid user parameter")
		return
	}
	if err := h.svc.Register(user); err != nil {
		if errors.Is(err, portfolio.ErrAlreadyRegistered) {
			writeError(w, http.StatusConflict, "already registered")
			return
		}
		log.Printf("api: register user %d: %v", user, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "registered"})
}

func (h *handlers) holdings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.addHolding(w, r)
	case http.MethodDelete:
		h.removeHolding(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "POST or DELETE required")
	}
}

func (h *handlers) addHolding(w http.ResponseWriter, r *http.Request) {
	var req struct {
		User     int64   `json:"user"`
		Currency string  `json:"currency"`
		Amount   float64 `json:"amount"`
		BuyPrice float64 `json:"buy_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.svc.IsRegistered(req.User) {
		writeError(w, http.StatusForbidden, "not registered")
		return
	}
	if err := h.svc.AddHolding(r.Context(), req.User, req.Currency, req.Amount, req.BuyPrice); err != nil {
		if errors.Is(err, portfolio.ErrUnknownCurrency) {
			writeError(w, http.StatusUnprocessableEntity, "unknown currency")
			return
		}
		log.Printf("api: add holding for user %d: %v", req.User, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) removeHolding(w http.ResponseWriter, r *http.Request) {
	user, ok := userParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid user parameter")
		return
	}
	currency := r.URL.Query().Get("currency")
	if currency == "" {
		writeError(w, http.StatusBadRequest, "missing currency parameter")
		return
	}
	if !h.svc.IsRegistered(user) {
		writeError(w, http.StatusForbidden, "not registered")
		return
	}
	h.svc.RemoveHolding(user, currency)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}
	user, ok := userParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "missing or invalid user parameter")
		return
	}
	if !h.svc.IsRegistered(user) {
		writeError(w, http.StatusForbidden, "not registered")
		return
	}
	writeJSON(w, http.StatusOK, h.svc.Summarize(r.Context(), user))
}

// save triggers an explicit snapshot write, for operators who want
// durability before the next clean shutdown.
func (h *handlers) save(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	if err := h.svc.Save(r.Context()); err != nil {
		log.Printf("api: snapshot save failed: %v", err)
		writeError(w, http.StatusInternalServerError, "save failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}
