package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/procurement-management/internal/audit"
	"github.com/frahmantamala/procurement-management/internal/auth"
	"github.com/frahmantamala/procurement-management/internal/authz"
	"github.com/frahmantamala/procurement-management/internal/document"
	"github.com/frahmantamala/procurement-management/internal/organization"
	"github.com/frahmantamala/procurement-management/internal/request"
	"github.com/frahmantamala/procurement-management/internal/transport/middleware"
	"github.com/frahmantamala/procurement-management/internal/transport/swagger"
	"github.com/frahmantamala/procurement-management/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// Handlers carries every HTTP handler the router mounts. Nil handlers are
// skipped so partial deployments (for example storage disabled) still boot.
type Handlers struct {
	Auth         *auth.Handler
	Request      *request.Handler
	Document     *document.Handler
	User         *user.Handler
	Organization *organization.Handler
	Audit        *audit.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)
	rbac := auth.NewRBACAuthorization(logger)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.TraceID)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))

	// OpenAPI spec and Swagger UI live outside the API prefix.
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Auth != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", h.Auth.Login)
				sr.Post("/refresh", h.Auth.RefreshToken)
				sr.Post("/logout", h.Auth.Logout)
			})
		}

		if h.Auth == nil {
			return
		}

		// Everything below requires an authenticated user.
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/auth/me", h.Auth.Me)

			if h.Request != nil {
				pr.Route("/requests", func(rr chi.Router) {
					rr.Post("/", h.Request.CreateRequest)
					rr.Get("/", h.Request.ListMyRequests)
					rr.Get("/pending-approvals", h.Request.ListPendingApprovals)

					rr.Group(func(ar chi.Router) {
						ar.Use(rbac.RequirePermission(string(authz.PermViewAllRequests)))
						ar.Get("/all", h.Request.ListAllRequests)
					})

					rr.Group(func(qr chi.Router) {
						qr.Use(rbac.RequirePurchase())
						qr.Get("/purchasing-queue", h.Request.ListPurchasingQueue)
					})

					rr.Route("/{id}", func(ir chi.Router) {
						ir.Get("/", h.Request.GetRequest)
						ir.Put("/", h.Request.UpdateRequest)
						ir.Delete("/", h.Request.DeleteRequest)
						ir.Get("/history", h.Request.GetHistory)

						// Requester lifecycle
						ir.Patch("/submit", h.Request.Submit)
						ir.Patch("/resubmit", h.Request.Resubmit)

						// Approver decisions; fine-grained checks happen in
						// the service against the approval chain.
						ir.Group(func(mr chi.Router) {
							mr.Use(rbac.RequirePermission(string(authz.PermApproveRequests)))
							mr.Patch("/move-to-review", h.Request.MoveToReview)
							mr.Patch("/approve", h.Request.Approve)
							mr.Patch("/request-revision", h.Request.RequestRevision)
						})
						// Rejection is also open to purchasing, so the
						// middleware gate stays coarse.
						ir.Patch("/reject", h.Request.Reject)

						ir.Group(func(cr chi.Router) {
							cr.Use(rbac.RequirePurchase())
							cr.Patch("/assign-purchasing", h.Request.AssignPurchasing)
							cr.Patch("/mark-ordered", h.Request.MarkOrdered)
							cr.Patch("/mark-delivered", h.Request.MarkDelivered)
						})
						ir.Patch("/mark-completed", h.Request.MarkCompleted)

						if h.Document != nil {
							ir.Post("/documents", h.Document.CreateDocument)
							ir.Get("/documents", h.Document.ListForRequest)
						}
					})
				})
			}

			if h.Document != nil {
				pr.Route("/documents/{documentID}", func(dr chi.Router) {
					dr.Post("/confirm", h.Document.ConfirmUpload)
					dr.Get("/download", h.Document.Download)
					dr.Delete("/", h.Document.DeleteDocument)
				})
			}

			if h.User != nil {
				pr.Route("/users", func(ur chi.Router) {
					ur.Get("/{id}", h.User.GetUser)
					ur.Get("/{id}/subordinates", h.User.Subordinates)
					ur.Patch("/{id}/password", h.User.ChangePassword)

					ur.Group(func(ar chi.Router) {
						ar.Use(rbac.RequireAdmin())
						ar.Post("/", h.User.CreateUser)
						ar.Get("/", h.User.ListUsers)
						ar.Patch("/{id}", h.User.UpdateUser)
						ar.Patch("/{id}/supervisor", h.User.ChangeSupervisor)
						ar.Delete("/{id}", h.User.DeactivateUser)
					})
				})
			}

			if h.Organization != nil {
				pr.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireAdmin())

					ar.Route("/worksites", func(wr chi.Router) {
						wr.Post("/", h.Organization.CreateWorksite)
						wr.Get("/", h.Organization.ListWorksites)
						wr.Put("/{id}", h.Organization.UpdateWorksite)
						wr.Delete("/{id}", h.Organization.DeleteWorksite)
					})

					ar.Route("/divisions", func(dr chi.Router) {
						dr.Post("/", h.Organization.CreateDivision)
						dr.Get("/", h.Organization.ListDivisions)
						dr.Delete("/{id}", h.Organization.DeleteDivision)
					})

					ar.Route("/groups", func(gr chi.Router) {
						gr.Post("/", h.Organization.CreateGroup)
						gr.Get("/", h.Organization.ListGroups)
						gr.Delete("/{id}", h.Organization.DeleteGroup)
						gr.Post("/{id}/members", h.Organization.AddGroupMember)
						gr.Delete("/{id}/members/{userID}", h.Organization.RemoveGroupMember)
					})
				})
			}

			if h.Audit != nil {
				pr.Group(func(ar chi.Router) {
					ar.Use(rbac.RequireAdmin())
					ar.Get("/audit", h.Audit.ListEntries)
					ar.Get("/audit/stats", h.Audit.GetStats)
				})
			}
		})
	})
}
