package http

import (
	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/pkg/authsdk"
)

func toUserResponse(u domain.User) authsdk.UserResponse {
	return authsdk.UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role.WireName(),
		IsActive:  u.Active,
		CreatedAt: u.CreatedAt,
	}
}

// toInviteResponse never includes the raw token; callers that may show it
// set InviteToken themselves.
func toInviteResponse(inv domain.Invite) authsdk.InviteResponse {
	return authsdk.InviteResponse{
		ID:        inv.ID,
		Email:     inv.Email,
		Role:      inv.Role.WireName(),
		Status:    inv.Status.String(),
		CreatedAt: inv.CreatedAt,
		ExpiresAt: inv.ExpiresAt,
	}
}
