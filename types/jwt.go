package types

import "github.com/golang-jwt/jwt/v5"

const (
	RoleCustomer = "customer"
	RoleWorker   = "worker"
)

// Claims represents the JWT claims
type Claims struct {
	UserID uint   `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	ID   uint
	Role string
}

func (p Principal) IsCustomer() bool { return p.Role == RoleCustomer }

func (p Principal) IsWorker() bool { return p.Role == RoleWorker }
