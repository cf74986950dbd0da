/*
Package authsdk provides a client SDK for the chambers authentication service.

# SDKClient vs Session

  - SDKClient: unauthenticated operations (login, invite lookup, registration,
    bootstrap, health) and Session creation
  - Session: operations that need a bearer token

	client := authsdk.NewSDKClient("https://auth.example.com")

	session, err := client.Login(ctx, "admin@example.com", "password")
	if err != nil {
		return err
	}

	invite, err := session.SendInvite(ctx, authsdk.InviteRequest{
		Email: "bob@example.com",
		Role:  "client",
	})

The invitee then checks and claims the invite:

	if _, err := client.GetInvite(ctx, invite.InviteToken); err != nil {
		return err
	}
	user, err := client.Register(ctx, authsdk.RegisterRequest{
		InviteToken: invite.InviteToken,
		FullName:    "Bob",
		Password:    "secret-password",
	})

# Tokens

Session tokens are short-lived and cannot be refreshed or revoked. Once a
token expires, Session methods return ErrSessionExpired without contacting the
server and the caller must log in again.

# Error Handling

Every non-2xx response is returned as an *APIError. The predefined values
(ErrInvalidToken, ErrForbidden, ErrInviteExpired, ...) match with errors.Is:

	_, err := session.ClientHome(ctx)
	switch {
	case errors.Is(err, authsdk.ErrForbidden):
		// signed in, wrong role
	case errors.Is(err, authsdk.ErrInvalidToken):
		// log in again
	}

Request types validate themselves before they are sent. Validation failures
are returned as ErrInvalidRequest with Fields populated.
*/
package authsdk
