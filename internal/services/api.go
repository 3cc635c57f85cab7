package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"nftrelay/service/internal/models"
	"nftrelay/service/internal/stores"
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
	headerRequestID      = "X-Request-Id"

	transferKeyPrefix = "transfer:"
	maxBodyBytes      = 1 << 16
)

// Relayer is the service surface exposed over HTTP. *TransferService implements it.
type Relayer interface {
	TransferNFT(ctx context.Context, req models.TransferRequest) (models.TransferResult, error)
	GetBalance(ctx context.Context, account string, tokenID string) (models.Balance, error)
	TokenURI(ctx context.Context, tokenID string) (string, error)
	TransactionStatus(ctx context.Context, hash string) (models.TxStatus, error)
	Ping(ctx context.Context) error
}

// HeadSource reports the last chain head seen. *BlockPublisher implements it.
type HeadSource interface {
	Latest() (uint64, time.Time)
}

type ApiConfig struct {
	Addr              string
	IdempotencyWindow time.Duration
	// optional, adds the chain head to /health
	Heads HeadSource
}

type ApiService struct {
	server  *http.Server
	relayer Relayer
	// may be nil, in which case Idempotency-Key is ignored
	store   stores.IdempotencyStore
	window  time.Duration
	heads   HeadSource
	metrics *metricsRegistry
	log     zerolog.Logger

	inflight sync.Map
	now      func() time.Time
}

func NewApiService(relayer Relayer, store stores.IdempotencyStore, cfg ApiConfig, log zerolog.Logger) *ApiService {
	if cfg.Addr == "" {
		cfg.Addr = ":8000"
	}
	if cfg.IdempotencyWindow <= 0 {
		cfg.IdempotencyWindow = 24 * time.Hour
	}
	a := &ApiService{
		relayer: relayer,
		store:   store,
		window:  cfg.IdempotencyWindow,
		heads:   cfg.Heads,
		metrics: newMetricsRegistry(),
		log:     log,
		now:     time.Now,
	}

	r := chi.NewRouter()
	r.Use(a.requestContext)
	r.Use(middleware.Recoverer)

	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", a.metrics.handler())
	r.Route("/api/v1/starknet", func(r chi.Router) {
		r.Post("/transfer", a.handleTransfer)
		r.Get("/balance/{account}/{tokenId}", a.handleBalance)
		r.Get("/uri/{tokenId}", a.handleURI)
		r.Get("/transactions/{hash}", a.handleTransactionStatus)
	})

	a.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
	}
	return a
}

func (a *ApiService) Start() error {
	a.log.Info().Str("addr", a.server.Addr).Msg("api listening")
	return a.server.ListenAndServe()
}

func (a *ApiService) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

func (a *ApiService) Handler() http.Handler {
	return a.server.Handler
}

type transferRequest struct {
	To      string          `json:"to"`
	TokenID json.RawMessage `json:"tokenId"`
	Amount  *uint64         `json:"amount,omitempty"`
}

type transferResponse struct {
	Hash    string         `json:"hash"`
	Outcome models.Outcome `json:"outcome"`
	Status  string         `json:"status"`
}

type balanceResponse struct {
	Account string `json:"account"`
	TokenID string `json:"tokenId"`
	Balance string `json:"balance"`
}

type uriResponse struct {
	TokenID string `json:"tokenId"`
	URI     string `json:"uri"`
}

type statusResponse struct {
	Hash            string `json:"hash"`
	FinalityStatus  string `json:"finalityStatus"`
	ExecutionStatus string `json:"executionStatus,omitempty"`
	FailureReason   string `json:"failureReason,omitempty"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Hash      string `json:"hash,omitempty"`
	Available string `json:"available,omitempty"`
	Requested string `json:"requested,omitempty"`
}

func (a *ApiService) handleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := a.now()

	key := strings.TrimSpace(r.Header.Get(headerIdempotencyKey))
	if key != "" && a.store != nil {
		key = transferKeyPrefix + key
		if a.replay(w, r, key) {
			return
		}

		if _, busy := a.inflight.LoadOrStore(key, struct{}{}); busy {
			a.metrics.incIdempotency("conflict")
			writeJSON(w, http.StatusConflict, errorResponse{Error: "request_in_progress", Message: "a request with this idempotency key is in progress"})
			return
		}
		defer a.inflight.Delete(key)
		// the previous holder of the key may have finished between the lookup and the claim
		if a.replay(w, r, key) {
			return
		}
		a.metrics.incIdempotency("miss")
	} else {
		key = ""
	}

	req, err := decodeTransferRequest(w, r)
	if err != nil {
		a.metrics.observeTransfer("bad_request", start)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Message: err.Error()})
		return
	}

	result, err := a.relayer.TransferNFT(ctx, req)
	if err != nil {
		kind := ErrorKind(err)
		a.metrics.observeTransfer(kind, start)
		status, body := errorBody(err)
		if key != "" && cacheable(err) {
			a.remember(ctx, key, status, body)
		}
		writeJSON(w, status, body)
		return
	}

	a.metrics.observeTransfer("succeeded", start)
	resp := transferResponse{Hash: result.Hash, Outcome: result.Outcome.Outcome, Status: result.Outcome.Status}
	if key != "" {
		a.remember(ctx, key, http.StatusOK, resp)
	}
	writeJSON(w, http.StatusOK, resp)
}

// replay writes the stored response for key, if there is one.
func (a *ApiService) replay(w http.ResponseWriter, r *http.Request, key string) bool {
	existing, err := a.store.Get(r.Context(), key)
	switch {
	case err == nil:
		a.metrics.incIdempotency("replayed")
		w.Header().Set(headerReplayed, "true")
		writeRaw(w, existing.StatusCode, existing.Response)
		return true
	case !errors.Is(err, stores.ErrRecordNotFound):
		// serve the request anyway; a lost replay is preferable to a failed transfer
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("idempotency lookup failed")
	}
	return false
}

// remember stores a transfer response for replay. Only responses that followed a
// submission are stored: repeating those would send the tokens twice.
func (a *ApiService) remember(ctx context.Context, key string, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		return
	}
	now := a.now()
	rec := stores.IdempotencyRecord{StatusCode: status, Response: b, CreatedAt: now, ExpiresAt: now.Add(a.window)}
	if err := a.store.Save(context.WithoutCancel(ctx), key, rec); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("idempotency save failed")
	}
}

// cacheable reports whether err came after the transaction left the relay.
func cacheable(err error) bool {
	if errors.Is(err, ErrTransactionFailed) || errors.Is(err, ErrConfirmationTimeout) {
		return true
	}
	var (
		read *ChainReadError
		sub  *SubmissionError
	)
	if errors.As(err, &read) && read.Hash != "" {
		return true
	}
	return errors.As(err, &sub) && sub.Hash != ""
}

func decodeTransferRequest(w http.ResponseWriter, r *http.Request) (models.TransferRequest, error) {
	var body transferRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return models.TransferRequest{}, errors.New("invalid json payload")
	}
	if strings.TrimSpace(body.To) == "" {
		return models.TransferRequest{}, errors.New("to is required")
	}
	tokenID, err := rawNumeric(body.TokenID)
	if err != nil {
		return models.TransferRequest{}, err
	}
	req := models.TransferRequest{Recipient: strings.TrimSpace(body.To), TokenID: tokenID}
	if body.Amount != nil {
		if *body.Amount == 0 {
			return models.TransferRequest{}, errors.New("amount must be positive")
		}
		req.Amount = *body.Amount
	}
	return req, nil
}

// rawNumeric accepts a token id sent either as a JSON string or a JSON number.
func rawNumeric(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", errors.New("tokenId is required")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", errors.New("tokenId must be a string or number")
		}
		return strings.TrimSpace(s), nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", errors.New("tokenId must be a string or number")
	}
	return n.String(), nil
}

func (a *ApiService) handleBalance(w http.ResponseWriter, r *http.Request) {
	bal, err := a.relayer.GetBalance(r.Context(), chi.URLParam(r, "account"), chi.URLParam(r, "tokenId"))
	if err != nil {
		a.metrics.incRead("balance", ErrorKind(err))
		status, body := errorBody(err)
		writeJSON(w, status, body)
		return
	}
	a.metrics.incRead("balance", "ok")
	writeJSON(w, http.StatusOK, balanceResponse{Account: bal.Account, TokenID: bal.TokenID, Balance: bal.Amount.String()})
}

func (a *ApiService) handleURI(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "tokenId")
	uri, err := a.relayer.TokenURI(r.Context(), tokenID)
	if err != nil {
		a.metrics.incRead("uri", ErrorKind(err))
		status, body := errorBody(err)
		writeJSON(w, status, body)
		return
	}
	a.metrics.incRead("uri", "ok")
	writeJSON(w, http.StatusOK, uriResponse{TokenID: tokenID, URI: uri})
}

func (a *ApiService) handleTransactionStatus(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	st, err := a.relayer.TransactionStatus(r.Context(), hash)
	if err != nil {
		a.metrics.incRead("status", ErrorKind(err))
		status, body := errorBody(err)
		writeJSON(w, status, body)
		return
	}
	a.metrics.incRead("status", "ok")
	writeJSON(w, http.StatusOK, statusResponse{
		Hash:            hash,
		FinalityStatus:  st.Finality,
		ExecutionStatus: st.Execution,
		FailureReason:   st.FailureReason,
	})
}

func (a *ApiService) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	rpcInfo := struct {
		Connected   bool    `json:"connected"`
		LatencyMs   float64 `json:"latency_ms"`
		Error       string  `json:"error,omitempty"`
		LatestBlock *uint64 `json:"latest_block,omitempty"`
		BlockAgeSec float64 `json:"block_age_seconds,omitempty"`
	}{}

	start := a.now()
	status := http.StatusOK
	overall := "healthy"
	if err := a.relayer.Ping(ctx); err != nil {
		rpcInfo.Error = err.Error()
		status = http.StatusServiceUnavailable
		overall = "degraded"
	} else {
		rpcInfo.Connected = true
		rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
	}
	if a.heads != nil {
		if n, seen := a.heads.Latest(); !seen.IsZero() {
			rpcInfo.LatestBlock = &n
			rpcInfo.BlockAgeSec = a.now().Sub(seen).Seconds()
		}
	}

	writeJSON(w, status, struct {
		Status string `json:"status"`
		RPC    any    `json:"rpc"`
	}{Status: overall, RPC: rpcInfo})
}

// errorBody maps a service error to its HTTP status and body.
func errorBody(err error) (int, errorResponse) {
	kind := ErrorKind(err)
	body := errorResponse{Error: kind, Message: err.Error()}

	var (
		insufficient *InsufficientBalanceError
		failed       *TransactionFailedError
		timeout      *ConfirmationTimeoutError
		read         *ChainReadError
		sub          *SubmissionError
	)
	switch {
	case errors.As(err, &insufficient):
		body.Available = bigString(insufficient.Available)
		body.Requested = bigString(insufficient.Requested)
	case errors.As(err, &failed):
		body.Hash = failed.Hash
	case errors.As(err, &timeout):
		body.Hash = timeout.Hash
	case errors.As(err, &read):
		body.Hash = read.Hash
	case errors.As(err, &sub):
		body.Hash = sub.Hash
	}

	switch kind {
	case KindInvalidRecipient, KindInvalidAccount, KindInvalidTokenID, KindInvalidHash:
		return http.StatusBadRequest, body
	case KindInsufficientBalance, KindTransactionFailed:
		return http.StatusUnprocessableEntity, body
	case KindSubmission:
		return http.StatusBadGateway, body
	case KindChainRead:
		return http.StatusServiceUnavailable, body
	case KindConfirmationTimeout:
		return http.StatusGatewayTimeout, body
	default:
		body.Message = "internal server error"
		return http.StatusInternalServerError, body
	}
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, b)
}

func writeRaw(w http.ResponseWriter, status int, b []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

// requestContext tags each request with an id and a request scoped logger, and logs
// the response once it is written.
func (a *ApiService) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)

		log := a.log.With().Str("request_id", id).Str("method", r.Method).Str("path", r.URL.Path).Logger()
		r = r.WithContext(log.WithContext(r.Context()))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		ev := log.Info()
		if ww.Status() >= http.StatusInternalServerError {
			ev = log.Warn()
		}
		ev.Int("status", ww.Status()).Dur("elapsed", time.Since(start)).Msg("request")
	})
}
