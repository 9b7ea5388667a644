package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/hauslive/hausd/internal/domain"
	redisrepo "github.com/hauslive/hausd/internal/repository/redis"
	"github.com/hauslive/hausd/internal/service"
	"github.com/hauslive/hausd/internal/service/accounts"
	"github.com/hauslive/hausd/internal/service/lifecycle"
	"github.com/hauslive/hausd/internal/service/query"
	"github.com/hauslive/hausd/internal/service/registry"
	"github.com/hauslive/hausd/internal/service/tickets"
	"github.com/hauslive/hausd/internal/service/tipping"
)

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), LoggingMiddleware(logger), RequestIDMiddleware(), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := AuthRequired(svcs.Accounts)

	// Accounts
	r.POST("/accounts", handleRegister(svcs))
	r.POST("/accounts/login", handleLogin(svcs))
	r.POST("/accounts/deposit", auth, handleDeposit(svcs))
	r.GET("/accounts/:address", handleGetAccount(svcs))

	// Registry
	r.POST("/registry", auth, handleInitializeRegistry(svcs))
	r.GET("/registry", handleGetRegistry(svcs))

	// Events
	r.POST("/events", auth, handleCreateEvent(svcs))
	r.GET("/events", handleListEvents(svcs))
	r.GET("/events/:id", handleGetEvent(svcs))
	r.POST("/events/:id/status", auth, handleUpdateStatus(svcs))
	r.POST("/events/:id/content", auth, handleAddContent(svcs))
	r.POST("/events/:id/finalize", auth, handleFinalize(svcs))

	// Tickets
	r.POST("/events/:id/tickets", auth, handleBuyTicket(svcs, idem))
	r.GET("/events/:id/tickets/:seq", handleGetTicket(svcs))
	r.GET("/events/:id/tickets/:seq/verify", auth, handleVerifyTicket(svcs))
	r.GET("/tickets", auth, handleListMyTickets(svcs))

	// Tips
	r.POST("/events/:id/tips", auth, handleTipCreator(svcs))
	r.GET("/events/:id/tips", handleListTips(svcs))

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  Register account
// @Param    req body  RegisterRequest true "payload"
// @Success  201 {object} RegisterResponse
// @Router   /accounts [post]
func handleRegister(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		addr, token, err := svcs.Accounts.Register(c.Request.Context(), req.Secret)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, RegisterResponse{Address: string(addr), Token: token})
	}
}

// @Summary  Login
// @Param    req body  LoginRequest true "payload"
// @Success  200 {object} LoginResponse
// @Failure  401 {object} ErrorResponse
// @Router   /accounts/login [post]
func handleLogin(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		token, err := svcs.Accounts.Login(c.Request.Context(), domain.Address(req.Address), req.Secret)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, LoginResponse{Token: token})
	}
}

// @Summary  Deposit into own balance
// @Param    req body  DepositRequest true "payload"
// @Success  200 {object} domain.Account
// @Router   /accounts/deposit [post]
func handleDeposit(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req DepositRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		a, err := svcs.Accounts.Deposit(c.Request.Context(), callerAddr(c), req.Amount)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// @Summary  Get account
// @Param    address  path  string  true  "Account address"
// @Success  200 {object} domain.Account
// @Failure  404 {object} ErrorResponse
// @Router   /accounts/{address} [get]
func handleGetAccount(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		a, err := svcs.Accounts.Get(c.Request.Context(), domain.Address(c.Param("address")))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, a)
	}
}

// @Summary  Initialize platform registry
// @Param    req body  InitializeRegistryRequest true "payload"
// @Success  201 {object} domain.Registry
// @Failure  409 {object} ErrorResponse "already initialized"
// @Router   /registry [post]
func handleInitializeRegistry(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req InitializeRegistryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		reg, err := svcs.Registry.Initialize(
			c.Request.Context(),
			callerAddr(c),
			domain.Address(req.Treasury),
			req.FeeRate,
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, reg)
	}
}

// @Summary  Get platform registry
// @Success  200 {object} domain.Registry
// @Failure  404 {object} ErrorResponse
// @Router   /registry [get]
func handleGetRegistry(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		reg, err := svcs.Query.GetRegistry(c.Request.Context())
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, reg, "public, max-age=60", true)
	}
}

// @Summary  Create event
// @Param    req body  CreateEventRequest true "payload"
// @Success  201 {object} domain.Event
// @Failure  409 {object} ErrorResponse "registry not initialized"
// @Router   /events [post]
func handleCreateEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateEventRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		start, err := parseRFC3339(req.StartTime)
		if err != nil {
			badRequest(c, "invalid start_time (RFC3339)")
			return
		}
		ev, err := svcs.Lifecycle.CreateEvent(c.Request.Context(), callerAddr(c), lifecycle.CreateEventInput{
			Name:          req.Name,
			Symbol:        req.Symbol,
			URI:           req.URI,
			Description:   req.Description,
			Category:      req.Category,
			InventorySize: req.InventorySize,
			UnitPrice:     req.UnitPrice,
			SaleType:      domain.SaleType(req.SaleType),
			ReservePrice:  req.ReservePrice,
			StartTime:     start,
			Duration:      time.Duration(req.DurationSec) * time.Second,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, ev)
	}
}

// @Summary  List events
// @Param    limit  query  int  false "page size"
// @Param    offset query  int  false "offset"
// @Success  200 {array} domain.Event
// @Router   /events [get]
func handleListEvents(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 100)
		offset := parseIntDefault(c.Query("offset"), 0)

		evs, err := svcs.Query.ListEvents(c.Request.Context(), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, evs, "public, max-age=15", true)
	}
}

// @Summary  Get event
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} domain.Event
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id} [get]
func handleGetEvent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUint64Param(c, "id")
		if !ok {
			return
		}
		e, err := svcs.Query.GetEvent(c.Request.Context(), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, e, "public, max-age=15", true)
	}
}

// @Summary  Update event status
// @Param    id  path  int  true  "Event ID"
// @Param    req body  UpdateStatusRequest true "payload"
// @Success  204
// @Failure  409 {object} ErrorResponse "transition rejected"
// @Router   /events/{id}/status [post]
func handleUpdateStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUint64Param(c, "id")
		if !ok {
			return
		}
		var req UpdateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		err := svcs.Lifecycle.UpdateStatus(
			c.Request.Context(),
			callerAddr(c),
			eventID,
			domain.EventStatus(req.Status),
		)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Add content to event
// @Param    id  path  int  true  "Event ID"
// @Param    req body  AddContentRequest true "payload"
// @Success  204
// @Failure  409 {object} ErrorResponse "content not allowed in current status"
// @Router   /events/{id}/content [post]
func handleAddContent(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUint64Param(c, "id")
		if !ok {
			return
		}
		var req AddContentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		err := svcs.Lifecycle.AddContent(c.Request.Context(), callerAddr(c), eventID, req.ContentURI)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// @Summary  Finalize event and distribute tips
// @Param    id  path  int  true  "Event ID"
// @Success  200 {object} FinalizeResponse
// @Failure  409 {object} ErrorResponse "not completed / no tips"
// @Router   /events/{id}/finalize [post]
func handleFinalize(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUint64Param(c, "id")
		if !ok {
			return
		}
		p, err := svcs.Lifecycle.Finalize(c.Request.Context(), callerAddr(c), eventID)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, FinalizeResponse{
			FeeAmount:    p.FeeAmount,
			ArtistAmount: p.ArtistAmount,
		})
	}
}

// @Summary  Buy ticket (idempotent)
// @Param    id  path  int  true  "Event ID"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} domain.Ticket
// @Failure  402 {object} ErrorResponse "insufficient balance"
// @Failure  409 {object} ErrorResponse "sold out / sales closed"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /events/{id}/tickets [post]
func handleBuyTicket(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUint64Param(c, "id")
		if !ok {
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisrepo.KeyIdemTicket(eventID, idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				c.Header("Idempotency-Key", idemKey)
				c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					c.Header("Idempotency-Key", idemKey)
					c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, ErrorResponse{Error: "idempotency key in progress"})
				return
			}
		}

		buyer := callerAddr(c)
		rlKey := "buyer:" + string(buyer)

		t, err := svcs.Tickets.BuyTicket(c.Request.Context(), buyer, eventID, rlKey)
		if err != nil {
			if idemStorageKey != "" && idem != nil {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			if errors.Is(err, tickets.ErrRateLimited) {
				c.Header("Retry-After", "60")
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
				return
			}
			respondErr(c, err)
			return
		}

		if idemStorageKey != "" && idem != nil {
			b, _ := json.Marshal(t)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(b))
			c.Header("Idempotency-Key", idemKey)
		}

		c.JSON(http.StatusCreated, t)
	}
}

// @Summary  Get ticket
// @Param    id   path  int  true  "Event ID"
// @Param    seq  path  int  true  "Ticket sequence"
// @Success  200 {object} domain.Ticket
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id}/tickets/{seq} [get]
func handleGetTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUint64Param(c, "id")
		if !ok {
			return
		}
		seq, ok := parseUint64Param(c, "seq")
		if !ok {
			return
		}
		t, err := svcs.Query.GetTicket(c.Request.Context(), eventID, seq)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// @Summary  Verify ticket for admission
// @Param    id   path  int  true  "Event ID"
// @Param    seq  path  int  true  "Ticket sequence"
// @Success  200 {object} VerifyTicketResponse
// @Failure  404 {object} ErrorResponse
// @Router   /events/{id}/tickets/{seq}/verify [get]
func handleVerifyTicket(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUint64Param(c, "id")
		if !ok {
			return
		}
		seq, ok := parseUint64Param(c, "seq")
		if !ok {
			return
		}

		err := svcs.Tickets.VerifyTicket(c.Request.Context(), callerAddr(c), eventID, seq)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, VerifyTicketResponse{Valid: true})
		case errors.Is(err, domain.ErrInvalidTicket),
			errors.Is(err, domain.ErrNotTicketOwner),
			errors.Is(err, domain.ErrEventNotLive):
			c.JSON(http.StatusOK, VerifyTicketResponse{Valid: false, Reason: verifyReason(err)})
		default:
			respondErr(c, err)
		}
	}
}

// @Summary  List own tickets
// @Param    limit  query  int  false "page size"
// @Param    offset query  int  false "offset"
// @Success  200 {array} domain.Ticket
// @Router   /tickets [get]
func handleListMyTickets(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := parseIntDefault(c.Query("limit"), 100)
		offset := parseIntDefault(c.Query("offset"), 0)

		ts, err := svcs.Query.ListTicketsByOwner(c.Request.Context(), callerAddr(c), limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, ts)
	}
}

// @Summary  Tip the event creator
// @Param    id  path  int  true  "Event ID"
// @Param    req body  TipRequest true "payload"
// @Success  201 {object} domain.Tip
// @Failure  402 {object} ErrorResponse "insufficient balance"
// @Failure  409 {object} ErrorResponse "already tipped / not live"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Router   /events/{id}/tips [post]
func handleTipCreator(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUint64Param(c, "id")
		if !ok {
			return
		}
		var req TipRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		tipper := callerAddr(c)
		rlKey := "tipper:" + string(tipper)

		tip, err := svcs.Tipping.TipCreator(c.Request.Context(), tipper, eventID, req.Amount, rlKey)
		if err != nil {
			if errors.Is(err, tipping.ErrRateLimited) {
				c.Header("Retry-After", "60")
				c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limited"})
				return
			}
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusCreated, tip)
	}
}

// @Summary  Tip leaderboard
// @Param    id     path   int  true  "Event ID"
// @Param    limit  query  int  false "page size"
// @Param    offset query  int  false "offset"
// @Success  200 {array} domain.Tip
// @Router   /events/{id}/tips [get]
func handleListTips(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, ok := parseUint64Param(c, "id")
		if !ok {
			return
		}
		limit := parseIntDefault(c.Query("limit"), 100)
		offset := parseIntDefault(c.Query("offset"), 0)

		tips, err := svcs.Query.ListTips(c.Request.Context(), eventID, limit, offset)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, tips, "public, max-age=5", true)
	}
}

// --- Helpers ---

func parseUint64Param(c *gin.Context, name string) (uint64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidTicket):
		return "invalid ticket"
	case errors.Is(err, domain.ErrNotTicketOwner):
		return "not ticket owner"
	case errors.Is(err, domain.ErrEventNotLive):
		return "event is not live"
	default:
		return "invalid"
	}
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	switch {
	// registry service
	case errors.Is(err, registry.ErrAlreadyInitialized):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "registry already initialized"})
		return
	case errors.Is(err, registry.ErrNotInitialized),
		errors.Is(err, lifecycle.ErrRegistryNotInitialized):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "registry not initialized"})
		return
	// lifecycle service
	case errors.Is(err, lifecycle.ErrEventNotFound),
		errors.Is(err, tickets.ErrEventNotFound),
		errors.Is(err, tipping.ErrEventNotFound),
		errors.Is(err, query.ErrEventNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "event not found"})
		return
	case errors.Is(err, lifecycle.ErrUnknownSaleType):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown sale type"})
		return
	// tickets service
	case errors.Is(err, tickets.ErrTicketNotFound),
		errors.Is(err, query.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "ticket not found"})
		return
	// tipping service
	case errors.Is(err, tipping.ErrAlreadyTipped):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already tipped this event"})
		return
	case errors.Is(err, tipping.ErrZeroTip),
		errors.Is(err, accounts.ErrZeroDeposit):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	// accounts service
	case errors.Is(err, accounts.ErrInvalidCredentials),
		errors.Is(err, accounts.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
		return
	case errors.Is(err, accounts.ErrAccountNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "account not found"})
		return
	// domain guards
	case errors.Is(err, domain.ErrNotAuthority),
		errors.Is(err, domain.ErrNotTicketOwner):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, domain.ErrInsufficientPayment):
		c.JSON(http.StatusPaymentRequired, ErrorResponse{Error: "insufficient balance"})
		return
	case errors.Is(err, domain.ErrSoldOut),
		errors.Is(err, domain.ErrEventAlreadyStarted),
		errors.Is(err, domain.ErrEventNotStarted),
		errors.Is(err, domain.ErrEventNotEnded),
		errors.Is(err, domain.ErrEventNotLive),
		errors.Is(err, domain.ErrInvalidStatusTransition),
		errors.Is(err, domain.ErrCannotAddContent),
		errors.Is(err, domain.ErrEventNotCompleted),
		errors.Is(err, domain.ErrNoTips),
		errors.Is(err, domain.ErrInvalidTicket):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
		return
	case errors.Is(err, domain.ErrCalculation):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "calculation error"})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}
