package models

// Operator is the authenticated user as seen by the draft subsystem.
// It is read, never mutated, by the core.
type Operator struct {
	ID                 int    `json:"id"`
	Username           string `json:"username,omitempty"`
	MustChangePassword bool   `json:"precisa_trocar_senha"`
}

// OperatorID returns a pointer suitable for Draft.UserID (nil when anonymous)
func OperatorID(op *Operator) *int {
	if op == nil {
		return nil
	}
	id := op.ID
	return &id
}
