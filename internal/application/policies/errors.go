package policies

import "fmt"

// ErrUnknownPolicyKey rejects writes to keys outside the known policy schema.
type ErrUnknownPolicyKey string

func (e ErrUnknownPolicyKey) Error() string {
	return fmt.Sprintf("Clave de política desconocida: %s", string(e))
}
