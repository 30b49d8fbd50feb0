package users

import (
	usersvc "horas-backend/internal/application/user"
	"horas-backend/internal/middleware"
	"horas-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Service *usersvc.Service
}

// POST /api/v1/users — create a user (admin).
func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	var body usersvc.CreateUserInput
	if err := c.BodyParser(&body); err != nil {
		return response.Error(c, "Cuerpo de solicitud inválido", 400)
	}
	u, err := h.Service.CreateUser(c.Context(), body)
	if err != nil {
		return response.Error(c, err.Error(), 400)
	}
	return response.SuccessCreated(c, "Usuario creado", u)
}

// GET /api/v1/users — list all users (admin).
func (h *Handlers) ListUsers(c *fiber.Ctx) error {
	users, err := h.Service.ListUsers(c.Context())
	if err != nil {
		log.Error().Str("trace_id", middleware.GetTraceID(c)).Err(err).Msg("list users")
		return response.Error(c, "Error interno del servidor", 500)
	}
	return response.Success(c, "Usuarios obtenidos", users)
}

// GET /api/v1/users/:id — view one user (admin).
func (h *Handlers) ViewUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Identificador inválido", 400)
	}
	u, err := h.Service.ViewUser(c.Context(), id)
	if err != nil {
		if err.Error() == "Usuario no encontrado" {
			return response.Error(c, err.Error(), 404)
		}
		return response.Error(c, "Error interno del servidor", 500)
	}
	return response.Success(c, "Usuario obtenido", u)
}

// PUT /api/v1/users/:id — update fullname/email/password/role/active (admin).
func (h *Handlers) UpdateUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return response.Error(c, "Identificador inválido", 400)
	}
	var fields map[string]interface{}
	if err := c.BodyParser(&fields); err != nil {
		return response.Error(c, "Cuerpo de solicitud inválido", 400)
	}
	u, err := h.Service.UpdateUser(c.Context(), id, fields)
	if err != nil {
		if err.Error() == "Usuario no encontrado" {
			return response.Error(c, err.Error(), 404)
		}
		return response.Error(c, err.Error(), 400)
	}
	return response.Success(c, "Usuario actualizado", u)
}
