package gatekit

import (
	"net/http"
)

// Middleware provides HTTP guards over the decision functions.
type Middleware struct {
	service        *Service
	getPrincipalID func(*http.Request) string
	getTenantID    func(*http.Request) string
	errorHandler   func(http.ResponseWriter, *http.Request, error)
}

// MiddlewareOption configures the Middleware.
type MiddlewareOption func(*Middleware)

// NewMiddleware creates a new Middleware instance.
//
// Example:
//
//	mw := gatekit.NewMiddleware(service,
//	    gatekit.WithPrincipalExtractor(func(r *http.Request) string {
//	        return r.Context().Value("user_id").(string)
//	    }),
//	)
func NewMiddleware(service *Service, opts ...MiddlewareOption) *Middleware {
	m := &Middleware{
		service:        service,
		getPrincipalID: defaultGetPrincipalID,
		getTenantID:    defaultGetTenantID,
		errorHandler:   defaultErrorHandler,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// WithPrincipalExtractor sets a custom function to extract the principal ID from a request.
func WithPrincipalExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getPrincipalID = fn
	}
}

// WithTenantExtractor sets a custom function to extract the tenant ID from a request.
func WithTenantExtractor(fn func(*http.Request) string) MiddlewareOption {
	return func(m *Middleware) {
		m.getTenantID = fn
	}
}

// WithErrorHandler sets a custom error handler for middleware.
func WithErrorHandler(fn func(http.ResponseWriter, *http.Request, error)) MiddlewareOption {
	return func(m *Middleware) {
		m.errorHandler = fn
	}
}

func defaultGetPrincipalID(r *http.Request) string {
	return GetPrincipalID(r.Context())
}

func defaultGetTenantID(r *http.Request) string {
	return GetTenantID(r.Context())
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	if IsUnauthorized(err) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	if IsNotFound(err) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// EntityExtractor extracts the target entity ID from an HTTP request.
type EntityExtractor func(*http.Request) (entityID string, err error)

// EntityFromParam creates an EntityExtractor that reads the entity ID from
// a URL path parameter. Compatible with net/http 1.22 routing patterns and
// routers that stash parameters in context.
//
// Example:
//
//	// For route /projects/{projectID}
//	mw.RequirePermission("update", gatekit.EntityFromParam("projectID"))
func EntityFromParam(paramName string) EntityExtractor {
	return func(r *http.Request) (string, error) {
		entityID := r.PathValue(paramName)
		if entityID == "" {
			// Try context (set by router middleware)
			if v := r.Context().Value(paramName); v != nil {
				if s, ok := v.(string); ok {
					entityID = s
				}
			}
		}
		if entityID == "" {
			return "", NewError(ErrEntityNotFound, "entity ID not found in request")
		}
		return entityID, nil
	}
}

// EntityFromQuery creates an EntityExtractor that reads the entity ID from
// a query parameter.
//
// Example:
//
//	// For route /api/files?entity_id=...
//	mw.RequirePermission("read", gatekit.EntityFromQuery("entity_id"))
func EntityFromQuery(queryParam string) EntityExtractor {
	return func(r *http.Request) (string, error) {
		entityID := r.URL.Query().Get(queryParam)
		if entityID == "" {
			return "", NewError(ErrEntityNotFound, "entity ID not found in query")
		}
		return entityID, nil
	}
}

// EntityFromHeader creates an EntityExtractor that reads the entity ID from
// a header.
//
// Example:
//
//	// For header X-Entity-ID: ...
//	mw.RequirePermission("read", gatekit.EntityFromHeader("X-Entity-ID"))
func EntityFromHeader(headerName string) EntityExtractor {
	return func(r *http.Request) (string, error) {
		entityID := r.Header.Get(headerName)
		if entityID == "" {
			return "", NewError(ErrEntityNotFound, "entity ID not found in header")
		}
		return entityID, nil
	}
}

// StaticEntity creates an EntityExtractor that always returns the same
// entity. Useful for singleton resources.
func StaticEntity(entityID string) EntityExtractor {
	return func(r *http.Request) (string, error) {
		return entityID, nil
	}
}

// RequirePermission creates middleware that requires a permission on the
// extracted entity.
//
// Example:
//
//	router.With(mw.RequirePermission("update", gatekit.EntityFromParam("projectID"))).
//	    Post("/projects/{projectID}", updateProjectHandler)
func (m *Middleware) RequirePermission(permission string, extractor EntityExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principalID := m.getPrincipalID(r)
			if principalID == "" {
				m.errorHandler(w, r, ErrNoPrincipalID)
				return
			}

			entityID, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			result, err := m.service.CheckPermission(ctx, principalID, entityID, permission, m.getTenantID(r))
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !result.Allowed {
				m.errorHandler(w, r, NewError(ErrUnauthorized, "missing required permission").
					WithEntity(entityID).
					WithPermission(permission).
					WithPrincipal(principalID))
				return
			}

			// Make the service reachable from handlers
			ctx = WithService(ctx, m.service)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAnyPermission creates middleware that passes when the principal
// holds at least one of the permissions on the extracted entity.
//
// Example:
//
//	router.With(mw.RequireAnyPermission([]string{"read", "update"}, extractor)).
//	    Get("/projects/{projectID}", getProjectHandler)
func (m *Middleware) RequireAnyPermission(permissions []string, extractor EntityExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principalID := m.getPrincipalID(r)
			if principalID == "" {
				m.errorHandler(w, r, ErrNoPrincipalID)
				return
			}

			entityID, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			tenantID := m.getTenantID(r)
			allowed := false
			for _, permission := range permissions {
				result, err := m.service.CheckPermission(ctx, principalID, entityID, permission, tenantID)
				if err != nil {
					m.errorHandler(w, r, err)
					return
				}
				if result.Allowed {
					allowed = true
					break
				}
			}
			if !allowed {
				m.errorHandler(w, r, NewError(ErrUnauthorized, "missing required permission").
					WithEntity(entityID).
					WithPrincipal(principalID))
				return
			}

			ctx = WithService(ctx, m.service)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireFieldPermission creates middleware that requires a permission on a
// specific field of the extracted entity.
//
// Example:
//
//	router.With(mw.RequireFieldPermission("update", "salary", gatekit.EntityFromParam("employeeID"))).
//	    Patch("/employees/{employeeID}/salary", updateSalaryHandler)
func (m *Middleware) RequireFieldPermission(permission, fieldName string, extractor EntityExtractor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			principalID := m.getPrincipalID(r)
			if principalID == "" {
				m.errorHandler(w, r, ErrNoPrincipalID)
				return
			}

			entityID, err := extractor(r)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			result, err := m.service.CheckFieldPermission(ctx, principalID, entityID, permission, fieldName, m.getTenantID(r))
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}
			if !result.Allowed {
				m.errorHandler(w, r, NewError(ErrUnauthorized, "missing required field permission").
					WithEntity(entityID).
					WithPermission(permission).
					WithPrincipal(principalID))
				return
			}

			ctx = WithService(ctx, m.service)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// InjectAuditContext creates middleware that extracts audit information
// from the request and adds it to the context for use in assignment writes
// and the decision log.
//
// Example:
//
//	router.Use(mw.InjectAuditContext())
func (m *Middleware) InjectAuditContext() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// Extract IP address
			ip := r.Header.Get("X-Forwarded-For")
			if ip == "" {
				ip = r.Header.Get("X-Real-IP")
			}
			if ip == "" {
				ip = r.RemoteAddr
			}
			ctx = WithIPAddress(ctx, ip)

			// Extract User Agent
			ctx = WithUserAgent(ctx, r.UserAgent())

			// Extract Request ID (commonly set by other middleware)
			requestID := r.Header.Get("X-Request-ID")
			if requestID != "" {
				ctx = WithRequestID(ctx, requestID)
			}

			// Set actor ID from principal ID if available
			principalID := m.getPrincipalID(r)
			if principalID != "" {
				ctx = WithActorID(ctx, principalID)
				ctx = WithPrincipalID(ctx, principalID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
