package auth

import "errors"

var (
	ErrEmailPasswordRequired = errors.New("Email y contraseña son requeridos")
	ErrInvalidCredentials    = errors.New("Credenciales inválidas")
	ErrUserInactive          = errors.New("Usuario inactivo")
	ErrNotAuthenticated      = errors.New("No autenticado")
)
