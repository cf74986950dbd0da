//go:build e2e

package auth_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/aussiebroadwan/chambers/pkg/authsdk"
)

/*
 * Container setup and shared flows for the auth service end-to-end tests.
 * Run with: go test -tags e2e ./test/e2e/...
 */

const (
	testImageName = "chambers-auth-test:latest"

	bootstrapToken = "test-bootstrap-token-12345"
	secretKey      = "e2e-secret-key-0123456789abcdef-0123456789"
	adminEmail     = "admin@chambers.test"
	adminName      = "Administrator"
	adminPassword  = "Admin123!"
)

// TestMain builds the image once for every test and removes it afterwards.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Auth Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Auth Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.CommandContext(context.Background(), "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/auth/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.CommandContext(context.Background(), "docker", "rmi", "-f", testImageName).Run()
}

func baseEnv() map[string]string {
	return map[string]string{
		"AUTH_SECRET_KEY":    secretKey,
		"AUTH_ISSUER":        "chambers-e2e",
		"AUTH_DATABASE_FILE": "/data/auth.db",
		"AUTH_PASSWORD_COST": "10",
		"BOOTSTRAP_TOKEN":    bootstrapToken,
		"ENV":                "test",
		"LOG_LEVEL":          "info",
		"LOG_FORMAT":         "json",
	}
}

// setupAuthContainer starts the service with relaxed rate limits so tests
// can make many rapid requests.
func setupAuthContainer(t *testing.T) string {
	t.Helper()
	env := baseEnv()
	env["RATELIMIT_STRICT_REQUESTS"] = "1000"
	env["RATELIMIT_STRICT_WINDOW_SEC"] = "60"
	env["RATELIMIT_STRICT_BURST"] = "1000"
	env["RATELIMIT_MODERATE_REQUESTS"] = "1000"
	env["RATELIMIT_MODERATE_BURST"] = "1000"
	return startContainer(t, env)
}

// setupAuthContainerWithDefaultRateLimits keeps the production limits, for
// the tests that exercise them.
func setupAuthContainerWithDefaultRateLimits(t *testing.T) string {
	t.Helper()
	return startContainer(t, baseEnv())
}

func startContainer(t *testing.T, env map[string]string) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("http://%s:%s", host, mappedPort.Port())
}

// bootstrapService creates the first admin and returns their session.
func bootstrapService(t *testing.T, client *authsdk.SDKClient) *authsdk.Session {
	t.Helper()
	ctx := t.Context()

	resp, err := client.Bootstrap(ctx, bootstrapToken, authsdk.BootstrapRequest{
		Email:    adminEmail,
		FullName: adminName,
		Password: adminPassword,
	})
	require.NoError(t, err, "Bootstrap should succeed")
	require.Equal(t, "admin", resp.User.Role)

	session, err := client.Login(ctx, adminEmail, adminPassword)
	require.NoError(t, err, "Admin login should succeed")
	return session
}

// onboard invites email with role, registers it and logs in.
func onboard(t *testing.T, client *authsdk.SDKClient, admin *authsdk.Session, email, role string) *authsdk.Session {
	t.Helper()
	ctx := t.Context()

	inv, err := admin.SendInvite(ctx, authsdk.InviteRequest{Email: email, Role: role})
	require.NoError(t, err)
	require.NotEmpty(t, inv.InviteToken)

	_, err = client.Register(ctx, authsdk.RegisterRequest{
		InviteToken: inv.InviteToken,
		FullName:    "Member " + role,
		Password:    "Member123!",
	})
	require.NoError(t, err)

	session, err := client.Login(ctx, email, "Member123!")
	require.NoError(t, err)
	return session
}

// requireAPIError asserts err is the API error want (same status and code).
func requireAPIError(t *testing.T, err error, want *authsdk.APIError, msg string) {
	t.Helper()
	require.Error(t, err, msg)
	var apiErr *authsdk.APIError
	require.True(t, errors.As(err, &apiErr), "%s: expected *authsdk.APIError, got %T: %v", msg, err, err)
	require.ErrorIs(t, err, want, msg)
}
