package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"ledger-core/pkg/ledger"
	"ledger-core/pkg/money"
	"ledger-core/pkg/transfer"
)

// Caller identity arrives from the authentication layer in trusted
// headers; this service never authenticates.
const (
	headerCallerID  = "X-Caller-Id"
	headerSessionID = "X-Session-Id"
)

type transferRequest struct {
	SourceRef      string `json:"source"`
	DestinationRef string `json:"destination"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
	Channel        string `json:"channel"`
	ReferenceID    string `json:"reference_id"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	callerID := r.Header.Get(headerCallerID)
	if callerID == "" {
		writeErrorBody(w, http.StatusUnauthorized, "unauthenticated", "missing "+headerCallerID+" header")
		return
	}

	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorBody(w, http.StatusBadRequest, "malformed_request", "invalid JSON body: "+err.Error())
		return
	}

	amount, err := money.Parse(req.Amount, req.Currency)
	if err != nil {
		writeError(w, s.logger, ledger.ErrInvalidAmount)
		return
	}

	receipt, err := s.executor.Transfer(r.Context(), transfer.Request{
		SourceRef:      req.SourceRef,
		DestinationRef: req.DestinationRef,
		Amount:         amount,
		Currency:       req.Currency,
		Description:    req.Description,
		Channel:        ledger.Channel(req.Channel),
		CallerID:       callerID,
		SessionID:      r.Header.Get(headerSessionID),
		ReferenceID:    req.ReferenceID,
	})
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, receipt)
}

func (s *Server) handleFindByReference(w http.ResponseWriter, r *http.Request) {
	referenceID := mux.Vars(r)["referenceID"]

	txns, err := s.executor.FindByReference(r.Context(), referenceID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reference_id": referenceID,
		"transactions": txns,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	accountID := mux.Vars(r)["accountID"]
	q := r.URL.Query()

	var from, to *time.Time
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErrorBody(w, http.StatusBadRequest, "malformed_request", "invalid from timestamp, want RFC 3339")
			return
		}
		from = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeErrorBody(w, http.StatusBadRequest, "malformed_request", "invalid to timestamp, want RFC 3339")
			return
		}
		to = &t
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErrorBody(w, http.StatusBadRequest, "malformed_request", "invalid limit")
			return
		}
		limit = n
	}

	txns, err := s.reader.History(r.Context(), accountID, from, to, limit)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id":   accountID,
		"transactions": txns,
	})
}

func (s *Server) handleStatement(w http.ResponseWriter, r *http.Request) {
	accountNumber := mux.Vars(r)["accountNumber"]
	q := r.URL.Query()

	fromDate, err := time.Parse("2006-01-02", q.Get("from"))
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, "malformed_request", "invalid from date, want YYYY-MM-DD")
		return
	}
	toDate, err := time.Parse("2006-01-02", q.Get("to"))
	if err != nil {
		writeErrorBody(w, http.StatusBadRequest, "malformed_request", "invalid to date, want YYYY-MM-DD")
		return
	}

	stmt, err := s.reader.Statement(r.Context(), accountNumber, fromDate, toDate, q.Get("label"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, stmt)
}

// statusFor maps stable error codes to HTTP statuses.
func statusFor(code string) int {
	switch code {
	case ledger.CodeAccountNotFound:
		return http.StatusNotFound
	case ledger.CodeInsufficientFunds:
		return http.StatusConflict
	case ledger.CodeCurrencyMismatch:
		return http.StatusUnprocessableEntity
	case ledger.CodeSelfTransfer, ledger.CodeInvalidAmount,
		ledger.CodeInvalidDateRange, ledger.CodeInvalidLimit:
		return http.StatusBadRequest
	case ledger.CodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger interface{ Error(string, ...zap.Field) }, err error) {
	code := ledger.Code(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.String("code", code), zap.Error(err))
	}
	writeErrorBody(w, status, code, err.Error())
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
