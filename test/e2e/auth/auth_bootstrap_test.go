//go:build e2e

package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/chambers/pkg/authsdk"
)

func TestBootstrapSuccess(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainer(t))

	session := bootstrapService(t, client)

	me, err := session.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, adminEmail, me.Email)
	require.Equal(t, "admin", me.Role)
}

func TestBootstrapOnlyOnce(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainer(t))
	bootstrapService(t, client)

	_, err := client.Bootstrap(t.Context(), bootstrapToken, authsdk.BootstrapRequest{
		Email:    "another@chambers.test",
		FullName: "Another Admin",
		Password: "AnotherPassword123!",
	})
	requireAPIError(t, err, authsdk.ErrAlreadyBootstrapped, "second bootstrap")
}

func TestBootstrapWrongToken(t *testing.T) {
	client := authsdk.NewSDKClient(setupAuthContainer(t))

	_, err := client.Bootstrap(t.Context(), "not-the-token", authsdk.BootstrapRequest{
		Email:    adminEmail,
		FullName: adminName,
		Password: adminPassword,
	})
	requireAPIError(t, err, authsdk.ErrInvalidToken, "wrong bootstrap token")
}
