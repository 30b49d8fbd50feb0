package timeentries

import (
	"errors"

	tesvc "horas-backend/internal/application/timeentries"
	"horas-backend/internal/domain"
	"horas-backend/internal/middleware"
	"horas-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *tesvc.Service
}

// POST /api/v1/time-entries — log hours for the caller, 201.
func (h *Handlers) Create(c *fiber.Ctx) error {
	var body struct {
		EntryDate   string  `json:"entry_date"`
		Hours       float64 `json:"hours"`
		Project     string  `json:"project"`
		Description string  `json:"description"`
	}
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Cuerpo de solicitud inválido", 400)
	}
	entry, err := h.Service.Create(c.Context(), middleware.GetUserID(c), tesvc.CreateEntryInput{
		EntryDate:   body.EntryDate,
		Hours:       body.Hours,
		Project:     body.Project,
		Description: body.Description,
	})
	if err != nil {
		return response.Error(c, err.Error(), 400)
	}
	return response.SuccessCreated(c, "Registro de horas creado", entry)
}

// GET /api/v1/time-entries/my — caller's entries (query: from?, to?, project?).
func (h *Handlers) ListMine(c *fiber.Ctx) error {
	f := tesvc.ListFilter{UserID: middleware.GetUserID(c), Project: c.Query("project")}
	var err error
	if f.DateFrom, f.DateTo, err = parseRange(c); err != nil {
		return response.Error(c, err.Error(), 400)
	}
	entries, err := h.Service.List(c.Context(), f)
	if err != nil {
		return h.internal(c, err)
	}
	return response.Success(c, "Registros obtenidos", entries)
}

// GET /api/v1/time-entries — all entries (admin; query: user_id?, from?, to?, project?).
func (h *Handlers) ListAll(c *fiber.Ctx) error {
	f := tesvc.ListFilter{Project: c.Query("project")}
	if s := c.Query("user_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return response.Error(c, "user_id inválido", 400)
		}
		f.UserID = id
	}
	var err error
	if f.DateFrom, f.DateTo, err = parseRange(c); err != nil {
		return response.Error(c, err.Error(), 400)
	}
	entries, err := h.Service.List(c.Context(), f)
	if err != nil {
		return h.internal(c, err)
	}
	return response.Success(c, "Registros obtenidos", entries)
}

// PUT /api/v1/time-entries/:id — update own entry.
func (h *Handlers) Update(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Identificador inválido", 400)
	}
	var fields map[string]interface{}
	if err := c.BodyParser(&fields); err != nil {
		return response.Error(c, "Cuerpo de solicitud inválido", 400)
	}
	entry, err := h.Service.Update(c.Context(), id, middleware.GetUserID(c), fields)
	if err != nil {
		if errors.Is(err, tesvc.ErrEntryNotFound) {
			return response.Error(c, err.Error(), 404)
		}
		return response.Error(c, err.Error(), 400)
	}
	return response.Success(c, "Registro actualizado", entry)
}

// DELETE /api/v1/time-entries/:id — delete own entry.
func (h *Handlers) Delete(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Identificador inválido", 400)
	}
	if err := h.Service.Delete(c.Context(), id, middleware.GetUserID(c)); err != nil {
		if errors.Is(err, tesvc.ErrEntryNotFound) {
			return response.Error(c, err.Error(), 404)
		}
		return h.internal(c, err)
	}
	return response.Success(c, "Registro eliminado", nil)
}

// GET /api/v1/time-entries/summary — hours aggregated by user and project (admin).
func (h *Handlers) Summary(c *fiber.Ctx) error {
	from, to, err := parseRange(c)
	if err != nil {
		return response.Error(c, err.Error(), 400)
	}
	summary, err := h.Service.Summary(c.Context(), from, to)
	if err != nil {
		return h.internal(c, err)
	}
	return response.Success(c, "Resumen de horas obtenido", summary)
}

func (h *Handlers) internal(c *fiber.Ctx, err error) error {
	log.Error().Str("trace_id", middleware.GetTraceID(c)).Err(err).Msg("time entries handler error")
	return response.Error(c, "Error interno del servidor", 500)
}

func parseRange(c *fiber.Ctx) (*domain.DateOnly, *domain.DateOnly, error) {
	var from, to *domain.DateOnly
	if s := c.Query("from"); s != "" {
		d, err := domain.ParseDateOnly(s)
		if err != nil {
			return nil, nil, errors.New("Fecha 'from' inválida")
		}
		from = &d
	}
	if s := c.Query("to"); s != "" {
		d, err := domain.ParseDateOnly(s)
		if err != nil {
			return nil, nil, errors.New("Fecha 'to' inválida")
		}
		to = &d
	}
	return from, to, nil
}
