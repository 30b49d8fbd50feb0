package vacations

import "errors"

// ValidationError marks malformed or missing input. Surfaced as 400.
type ValidationError string

func (e ValidationError) Error() string { return string(e) }

// PolicyViolation marks a business rule rejecting an otherwise well-formed
// request. Surfaced as 400; the caller must alter the input.
type PolicyViolation string

func (e PolicyViolation) Error() string { return string(e) }

var (
	ErrNotFound  = errors.New("Solicitud no encontrada")
	ErrForbidden = errors.New("No tiene permiso para ver esta solicitud")

	// ErrInvalidTransition is returned when a guarded update matched zero
	// rows. Not found, wrong owner and wrong state are deliberately not
	// disambiguated: the conditional update re-checks state at the database.
	ErrInvalidTransition = errors.New("La solicitud no está pendiente o no existe")
)
