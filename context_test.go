package gatekit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestContextPrincipal tests principal storage and the Must variant
func TestContextPrincipal(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetPrincipalID(ctx))

	ctx = WithPrincipalID(ctx, "u1")
	assert.Equal(t, "u1", GetPrincipalID(ctx))
	assert.Equal(t, "u1", MustGetPrincipalID(ctx))

	assert.Panics(t, func() {
		MustGetPrincipalID(context.Background())
	})
}

// TestContextActorFallback tests that the actor falls back to the principal
func TestContextActorFallback(t *testing.T) {
	ctx := WithPrincipalID(context.Background(), "u1")
	assert.Equal(t, "u1", GetActorID(ctx))

	ctx = WithActorID(ctx, "admin-7")
	assert.Equal(t, "admin-7", GetActorID(ctx))
	assert.Equal(t, "u1", GetPrincipalID(ctx))
}

// TestContextTenant tests tenant storage
func TestContextTenant(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTenantID(ctx))
	ctx = WithTenantID(ctx, "tenant-a")
	assert.Equal(t, "tenant-a", GetTenantID(ctx))
}

// TestContextService tests service storage and the FromContext alias
func TestContextService(t *testing.T) {
	assert.Nil(t, GetService(context.Background()))

	svc := &Service{}
	ctx := WithService(context.Background(), svc)
	assert.Same(t, svc, GetService(ctx))
	assert.Same(t, svc, FromContext(ctx))
}

// TestAuditContextRoundTrip tests the bundled audit getters and setters
func TestAuditContextRoundTrip(t *testing.T) {
	ac := AuditContext{
		ActorID:   "admin-7",
		IPAddress: "10.0.0.1",
		UserAgent: "curl/8.0",
		RequestID: "req-123",
	}

	ctx := WithAuditContext(context.Background(), ac)
	assert.Equal(t, ac, GetAuditContext(ctx))

	assert.Equal(t, "10.0.0.1", GetIPAddress(ctx))
	assert.Equal(t, "curl/8.0", GetUserAgent(ctx))
	assert.Equal(t, "req-123", GetRequestID(ctx))
}

// TestAuditContextPartial tests that empty fields do not overwrite
func TestAuditContextPartial(t *testing.T) {
	ctx := WithIPAddress(context.Background(), "10.0.0.1")
	ctx = WithAuditContext(ctx, AuditContext{RequestID: "req-9"})

	assert.Equal(t, "10.0.0.1", GetIPAddress(ctx))
	assert.Equal(t, "req-9", GetRequestID(ctx))
}
