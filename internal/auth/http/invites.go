package http

import (
	"net/http"
	"strconv"

	"github.com/aussiebroadwan/chambers/internal/auth/domain"
	"github.com/aussiebroadwan/chambers/internal/auth/service"
	"github.com/aussiebroadwan/chambers/pkg/authsdk"
	"github.com/aussiebroadwan/chambers/pkg/httpx"
)

type InvitesHandler struct {
	InviteService *service.InviteService
	Metrics       *Metrics
}

// HandleSend creates an invite.
//
//	@Summary		Send an invite
//	@Description	Creates a single-use invite for a client or fee earner. The token is only returned here. Admin only.
//	@Tags			Invitations
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.InviteRequest	true	"Invitee email and role"
//	@Success		201		{object}	authsdk.InviteResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"Validation failed or role not invitable"
//	@Failure		401		{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Failure		403		{object}	authsdk.ErrorResponse	"Caller is not an admin"
//	@Failure		409		{object}	authsdk.ErrorResponse	"Email registered or invite already pending"
//	@Router			/api/invites/send-invite [post].
func (h *InvitesHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req authsdk.InviteRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		authsdk.ErrInvalidRequest.WithDescription("request body must be a JSON object").WriteError(w)
		return
	}
	if errs := req.Validate(); errs != nil {
		if _, bad := errs["role"]; bad && len(errs) == 1 {
			authsdk.ErrInvalidRole.WriteError(w)
			return
		}
		authsdk.ErrInvalidRequest.WithFields(errs).WriteError(w)
		return
	}

	role, err := domain.ParseRole(req.Role)
	if err != nil {
		authsdk.ErrInvalidRole.WriteError(w)
		return
	}

	inv, err := h.InviteService.Create(r.Context(), req.Email, role, admin)
	if err != nil {
		h.Metrics.InviteEvent("create", apiError(err).Code)
		writeError(w, r, err)
		return
	}
	h.Metrics.InviteEvent("create", "ok")

	resp := toInviteResponse(inv)
	resp.InviteToken = inv.Token
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

// HandleList lists pending invites.
//
//	@Summary		List pending invites
//	@Tags			Invitations
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.InviteListResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"Missing, invalid or expired token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Caller is not an admin"
//	@Router			/api/invites [get].
func (h *InvitesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	invites, err := h.InviteService.ListPending(r.Context(), admin)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := authsdk.InviteListResponse{Invites: make([]authsdk.InviteResponse, 0, len(invites))}
	for _, inv := range invites {
		resp.Invites = append(resp.Invites, toInviteResponse(inv))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleReject withdraws a pending invite.
//
//	@Summary		Reject an invite
//	@Tags			Invitations
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		int	true	"Invite ID"
//	@Success		200	{object}	authsdk.InviteResponse
//	@Failure		400	{object}	authsdk.ErrorResponse	"Bad invite id"
//	@Failure		403	{object}	authsdk.ErrorResponse	"Caller is not an admin"
//	@Failure		404	{object}	authsdk.ErrorResponse	"Unknown invite"
//	@Failure		410	{object}	authsdk.ErrorResponse	"Invite is not pending"
//	@Router			/api/invites/{id}/reject [post].
func (h *InvitesHandler) HandleReject(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		authsdk.ErrInvalidRequest.WithDescription("invite id must be a positive integer").WriteError(w)
		return
	}

	inv, err := h.InviteService.Reject(r.Context(), id, admin)
	if err != nil {
		h.Metrics.InviteEvent("reject", apiError(err).Code)
		writeError(w, r, err)
		return
	}
	h.Metrics.InviteEvent("reject", "ok")

	httpx.WriteJSON(w, http.StatusOK, toInviteResponse(inv))
}

// HandleVerify reports whether an invite token can still be used.
//
//	@Summary		Verify an invite
//	@Description	Read-only check used by the registration page before showing the form.
//	@Tags			Invitations
//	@Produce		json
//	@Param			token	path		string	true	"Invite token"
//	@Success		200		{object}	authsdk.InviteResponse
//	@Failure		404		{object}	authsdk.ErrorResponse	"Unknown invite token"
//	@Failure		410		{object}	authsdk.ErrorResponse	"Invite expired or no longer valid"
//	@Router			/api/invites/invite/{token} [get].
func (h *InvitesHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	inv, err := h.InviteService.Verify(r.Context(), r.PathValue("token"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toInviteResponse(inv))
}
