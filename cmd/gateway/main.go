package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/studyforge/studyforge-backend/internal/api/http"
	"github.com/studyforge/studyforge-backend/internal/assignment"
	auth "github.com/studyforge/studyforge-backend/internal/auth/middleware"
	"github.com/studyforge/studyforge-backend/internal/catalog"
	"github.com/studyforge/studyforge-backend/internal/config"
	"github.com/studyforge/studyforge-backend/internal/db"
	"github.com/studyforge/studyforge-backend/internal/grading"
	"github.com/studyforge/studyforge-backend/internal/rbac"
)

func main() {
	_ = godotenv.Load() // optional .env for local development

	cfg := config.FromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	store := assignment.NewSQLStore(dbh)
	cat := catalog.NewSQLStore(dbh)
	svc := assignment.NewService(store, cat, grading.NewEngine(), logger)

	authSvc := auth.NewAuthService(cfg.AuthHMACSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT → subject+role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Mode == config.ModeOffline))

		pr.With(rbac.Require("user:change_password")).
			Post("/users/password", api.ChangePasswordHandler(dbh))

		// Manager lifecycle
		pr.With(rbac.Require("assignment:create")).
			Post("/assignments", api.CreateAssignmentHandler(svc))
		pr.With(rbac.Require("assignment:update")).
			Patch("/assignments/{assignmentID}", api.UpdateAssignmentHandler(svc))
		pr.With(rbac.Require("assignment:delete")).
			Delete("/assignments/{assignmentID}", api.RemoveAssignmentHandler(svc))
		pr.With(rbac.Require("assignment:view")).
			Get("/assignments/{assignmentID}", api.GetAssignmentHandler(svc))

		// Student flow
		pr.With(rbac.Require("assignment:list-available")).
			Get("/assignments", api.ListAvailableAssignmentsHandler(svc))
		pr.With(rbac.Require("response:start")).
			Post("/assignments/{assignmentID}/start", api.StartAssignmentHandler(svc))
		pr.With(rbac.Require("response:submit")).
			Post("/assignments/{assignmentID}/submit", api.SubmitAnswersHandler(svc))

		// Grading
		pr.With(rbac.Require("response:list")).
			Get("/assignments/{assignmentID}/responses", api.ListResponsesHandler(svc))
		pr.With(rbac.Require("response:grade")).
			Post("/responses/{responseID}/grade", api.GradeResponseHandler(svc))
		pr.With(rbac.Require("response:withdraw")).
			Post("/responses/{responseID}/withdraw", api.WithdrawResponseHandler(svc))
		pr.With(rbac.Require("grades:publish")).
			Post("/assignments/{assignmentID}/publish-grades", api.PublishGradesHandler(svc))

		// Accounts (manager/admin)
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	logger.Info("listening", "addr", cfg.HTTPAddr, "mode", string(cfg.Mode), "db", cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
