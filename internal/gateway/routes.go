// Package gateway wires the HTTP surface: chi router, middleware, and the
// handler set backed by the domain services.
package gateway

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/codeAKstan/gradesync-sub000/internal/admin"
	"github.com/codeAKstan/gradesync-sub000/internal/auth"
	"github.com/codeAKstan/gradesync-sub000/internal/catalog"
	"github.com/codeAKstan/gradesync-sub000/internal/gateway/handlers"
	"github.com/codeAKstan/gradesync-sub000/internal/gateway/util"
	"github.com/codeAKstan/gradesync-sub000/internal/ingest"
	"github.com/codeAKstan/gradesync-sub000/internal/registration"
	"github.com/codeAKstan/gradesync-sub000/internal/results"
	"github.com/codeAKstan/gradesync-sub000/internal/shared"
)

// Services bundles everything the router needs.
type Services struct {
	Auth          *auth.Service
	Registrations *registration.Service
	Ingest        *ingest.Service
	Catalog       *catalog.Service
	Admin         *admin.Service
	Reader        *results.Reader
	Approver      *results.Approver
}

// SetupRoutes configures the chi router, middleware, and route handlers.
func SetupRoutes(svc *Services, corsCfg shared.CORSConfig) *chi.Mux {
	r := chi.NewRouter()

	// 1. Global Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsCfg.AllowedOrigins,
		AllowedMethods:   corsCfg.AllowedMethods,
		AllowedHeaders:   corsCfg.AllowedHeaders,
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: corsCfg.AllowCredentials,
		MaxAge:           corsCfg.MaxAge,
	}))

	// 2. Initialize Handlers
	authHandler := &handlers.AuthHandler{Auth: svc.Auth}
	regHandler := &handlers.RegistrationHandler{Registrations: svc.Registrations}
	scoreHandler := &handlers.ScoreHandler{Ingest: svc.Ingest, Catalog: svc.Catalog, Reader: svc.Reader}
	resultHandler := &handlers.ResultHandler{Reader: svc.Reader}
	catalogHandler := &handlers.CatalogHandler{Catalog: svc.Catalog}
	adminHandler := &handlers.AdminHandler{Admin: svc.Admin, Approver: svc.Approver}

	// 3. Define Routes (grouped by prefix)
	r.Route("/api", func(r chi.Router) {

		// --- Public Routes ---
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/logout", authHandler.Logout) // handles its own token extraction

		// --- Protected Routes (Require Valid Token) ---
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(svc.Auth))

			r.Get("/auth/validate", authHandler.ValidateToken)
			r.Post("/auth/change-password", authHandler.ChangePassword)

			// Course catalog (any authenticated user)
			r.Get("/courses", catalogHandler.ListCourses)
			r.Get("/courses/{id}", catalogHandler.GetCourse)

			// Registration ledger (student only)
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(shared.RoleStudent))
				r.Post("/registrations", regHandler.Register)
				r.Delete("/registrations/{id}", regHandler.Drop)
				r.Get("/registrations", regHandler.List)

				// Result reader (redacted until published)
				r.Get("/results", resultHandler.StudentResults)
				r.Get("/results/summaries", resultHandler.Summaries)
			})

			// Score sheets (lecturer or admin; per-course ownership is
			// checked in the handler)
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(shared.RoleLecturer, shared.RoleAdmin))
				r.Get("/scores/template/{course_id}", scoreHandler.Template)
				r.Post("/scores/upload/{course_id}", scoreHandler.Upload)
				r.Get("/scores/course/{course_id}", scoreHandler.CourseResults)
			})

			// Admin Management
			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireRole(shared.RoleAdmin))

				// Approval gate
				r.Post("/approve", adminHandler.Approve)
				r.Get("/results/{course_id}", scoreHandler.CourseResults)

				// Master data
				r.Get("/departments", catalogHandler.ListDepartments)
				r.Post("/departments", catalogHandler.CreateDepartment)
				r.Get("/sessions", catalogHandler.ListAcademicSessions)
				r.Post("/sessions", catalogHandler.CreateAcademicSession)
				r.Get("/semesters", catalogHandler.ListSemesters)
				r.Post("/semesters", catalogHandler.CreateSemester)
				r.Post("/semesters/{id}/current", catalogHandler.SetCurrentSemester)

				// Courses
				r.Post("/courses", catalogHandler.CreateCourse)
				r.Put("/courses/{id}", catalogHandler.UpdateCourse)
				r.Delete("/courses/{id}", catalogHandler.DeleteCourse)
				r.Post("/courses/{id}/assign-lecturer", catalogHandler.AssignLecturer)

				// Users
				r.Post("/users", adminHandler.CreateUser)
				r.Get("/users", adminHandler.ListUsers)
				r.Post("/users/{id}/reset-password", adminHandler.ResetPassword)
				r.Patch("/users/{id}/status", adminHandler.SetUserStatus)

				// Observability
				r.Get("/audit-logs", adminHandler.AuditLogs)
				r.Get("/stats", adminHandler.Stats)
			})
		})
	})

	return r
}

// AuthMiddleware validates the bearer token and injects the user into the
// request context.
func AuthMiddleware(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, err := util.ExtractToken(r)
			if err != nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "Authorization token required")
				return
			}

			user, err := authService.ValidateToken(r.Context(), tokenStr)
			if err != nil {
				util.HandleServiceError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(handlers.ContextWithUser(r.Context(), user)))
		})
	}
}

// RequireRole rejects requests whose authenticated user has none of the
// allowed roles. Must sit below AuthMiddleware.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := handlers.UserFrom(r.Context())
			if user == nil {
				util.WriteJSONError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			util.WriteJSONError(w, http.StatusForbidden, "insufficient permissions")
		})
	}
}
