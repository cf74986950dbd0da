package authsdk

import "time"

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description"`
	Fields           map[string]string `json:"fields,omitempty"`
}

// UserResponse summarises an identity. Role uses the lower-case wire names
// ("admin", "client", "fee_earner").
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// LoginResponse carries the session token and the identity it speaks for.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        UserResponse `json:"user"`
}

// RegisterRequest claims an invite. Email is optional and, when present,
// must match the address the invite was sent to.
type RegisterRequest struct {
	InviteToken string `json:"invite_token" validate:"required,max=128"`
	Email       string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	FullName    string `json:"full_name" validate:"required,max=128"`
	Password    string `json:"password" validate:"required,min=6,max=128"`
}

type InviteRequest struct {
	Email string `json:"email" validate:"required,email,max=254"`
	Role  string `json:"role" validate:"required,oneof=client fee_earner CLIENT FEE_EARNER"`
}

// InviteResponse describes an invite. InviteToken is only populated in the
// response to the admin who created it.
type InviteResponse struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	InviteToken string     `json:"invite_token,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

type InviteListResponse struct {
	Invites []InviteResponse `json:"invites"`
}

type BootstrapRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	FullName string `json:"full_name" validate:"required,max=128"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type BootstrapResponse struct {
	User UserResponse `json:"user"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports per-dependency readiness.
type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}
