package vacations

import (
	"errors"

	polsvc "horas-backend/internal/application/policies"
	vacsvc "horas-backend/internal/application/vacations"
	"horas-backend/internal/domain"
	"horas-backend/internal/middleware"
	"horas-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service  *vacsvc.Service
	Policies *polsvc.Service
}

// POST /api/v1/vacations — create a request for the caller, 201.
func (h *Handlers) CreateRequest(c *fiber.Ctx) error {
	var body struct {
		StartDate string  `json:"start_date"`
		EndDate   string  `json:"end_date"`
		Reason    *string `json:"reason"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Cuerpo de solicitud inválido", 400)
	}
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "No autenticado")
	}
	req, err := h.Service.CreateRequest(c.Context(), userID, vacsvc.CreateRequestInput{
		StartDate: body.StartDate,
		EndDate:   body.EndDate,
		Reason:    body.Reason,
	})
	if err != nil {
		return h.mapError(c, err)
	}
	return response.SuccessCreated(c, "Solicitud de vacaciones creada", req)
}

// GET /api/v1/vacations/my — all requests of the caller.
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "No autenticado")
	}
	reqs, err := h.Service.ListMine(c.Context(), userID)
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, "Solicitudes obtenidas", reqs)
}

// GET /api/v1/vacations — admin listing with filters (status, user_id, from, to).
func (h *Handlers) ListAll(c *fiber.Ctx) error {
	f := vacsvc.ListFilter{Status: c.Query("status")}
	if s := c.Query("user_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return response.Error(c, "user_id inválido", 400)
		}
		f.UserID = id
	}
	if s := c.Query("from"); s != "" {
		d, err := domain.ParseDateOnly(s)
		if err != nil {
			return response.Error(c, "Fecha 'from' inválida", 400)
		}
		f.DateFrom = &d
	}
	if s := c.Query("to"); s != "" {
		d, err := domain.ParseDateOnly(s)
		if err != nil {
			return response.Error(c, "Fecha 'to' inválida", 400)
		}
		f.DateTo = &d
	}
	reqs, err := h.Service.ListAll(c.Context(), f)
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, "Solicitudes obtenidas", reqs)
}

// GET /api/v1/vacations/detail/:id and GET /api/v1/vacations/:id (alias).
func (h *Handlers) GetDetail(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Identificador inválido", 400)
	}
	req, err := h.Service.GetDetail(c.Context(), id, middleware.GetUserID(c), middleware.GetRole(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, "Solicitud obtenida", req)
}

// POST /api/v1/vacations/:id/cancel — owner cancels a pending request.
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Identificador inválido", 400)
	}
	req, err := h.Service.Cancel(c.Context(), id, middleware.GetUserID(c))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, "Solicitud cancelada", req)
}

// PUT /api/v1/vacations/:id/decision — admin approves or rejects.
func (h *Handlers) Decide(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Identificador inválido", 400)
	}
	var body struct {
		Status       string  `json:"status"`
		AdminComment *string `json:"admin_comment"`
	}
	if err := c.BodyParser(&body); err != nil || body.Status == "" {
		return response.Error(c, "El estado de la decisión es requerido", 400)
	}
	req, err := h.Service.Decide(c.Context(), id, middleware.GetUserID(c), body.Status, body.AdminComment)
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, "Decisión registrada", req)
}

// GET /api/v1/vacations/stats — counts by status (admin).
func (h *Handlers) Stats(c *fiber.Ctx) error {
	stats, err := h.Service.Stats(c.Context())
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, "Estadísticas obtenidas", stats)
}

// GET /api/v1/vacations/policies — full policy map (admin).
func (h *Handlers) GetPolicies(c *fiber.Ctx) error {
	pols, err := h.Policies.GetAll(c.Context())
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, "Políticas obtenidas", pols)
}

// PUT /api/v1/vacations/policies — update policy values (admin, one transaction).
func (h *Handlers) SetPolicies(c *fiber.Ctx) error {
	var body map[string]string
	if err := c.BodyParser(&body); err != nil || len(body) == 0 {
		return response.Error(c, "Cuerpo de solicitud inválido", 400)
	}
	if err := h.Policies.Set(c.Context(), body); err != nil {
		var unknown polsvc.ErrUnknownPolicyKey
		if errors.As(err, &unknown) {
			return response.Error(c, err.Error(), 400)
		}
		return h.mapError(c, err)
	}
	return response.Success(c, "Políticas actualizadas", nil)
}

// GET /api/v1/vacations/policies/public — policy subset, no auth.
func (h *Handlers) GetPoliciesPublic(c *fiber.Ctx) error {
	return response.Success(c, "Políticas públicas", h.Policies.GetPublic(c.Context()))
}

// GET /api/v1/vacations/balance/my — caller's balance (query: year?).
func (h *Handlers) GetMyBalance(c *fiber.Ctx) error {
	userID := middleware.GetUserID(c)
	if userID == uuid.Nil {
		return response.Unauthorized(c, "No autenticado")
	}
	bal, err := h.Service.GetBalance(c.Context(), userID, c.QueryInt("year"))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, "Saldo obtenido", bal)
}

// GET /api/v1/vacations/balance/:userId — any user's balance (admin).
func (h *Handlers) GetUserBalance(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return response.Error(c, "userId inválido", 400)
	}
	bal, err := h.Service.GetBalance(c.Context(), userID, c.QueryInt("year"))
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, "Saldo obtenido", bal)
}

// PUT /api/v1/vacations/balance/:userId — admin upsert of both fields.
func (h *Handlers) UpsertBalance(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("userId"))
	if err != nil {
		return response.Error(c, "userId inválido", 400)
	}
	var body struct {
		Year          int `json:"year"`
		DaysAllocated int `json:"days_allocated"`
		DaysCarried   int `json:"days_carried"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Cuerpo de solicitud inválido", 400)
	}
	bal, err := h.Service.UpsertBalance(c.Context(), userID, body.Year, body.DaysAllocated, body.DaysCarried)
	if err != nil {
		return h.mapError(c, err)
	}
	return response.Success(c, "Saldo actualizado", bal)
}

// mapError translates service errors to HTTP statuses. Unknown errors are
// logged and surfaced as a generic 500.
func (h *Handlers) mapError(c *fiber.Ctx, err error) error {
	var ve vacsvc.ValidationError
	var pv vacsvc.PolicyViolation
	switch {
	case errors.As(err, &ve), errors.As(err, &pv):
		return response.Error(c, err.Error(), 400)
	case errors.Is(err, vacsvc.ErrInvalidTransition):
		return response.Error(c, err.Error(), 400)
	case errors.Is(err, vacsvc.ErrForbidden):
		return response.Error(c, err.Error(), 403)
	case errors.Is(err, vacsvc.ErrNotFound):
		return response.Error(c, err.Error(), 404)
	default:
		log.Error().Str("trace_id", middleware.GetTraceID(c)).Err(err).Msg("vacations handler error")
		return response.Error(c, "Error interno del servidor", 500)
	}
}
