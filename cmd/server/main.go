package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"

	"medmatch/internal/api"
	"medmatch/internal/auth"
	"medmatch/internal/repository"
	"medmatch/internal/service"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v78"
)

func main() {
	godotenv.Load()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	database, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := database.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")

	doctorRepo := repository.NewDoctorRepository(database)
	hospitalRepo := repository.NewHospitalRepository(database)
	assignmentRepo := repository.NewAssignmentRepository(database)
	authRepo := repository.NewAuthRepository(database)
	jobRepo := repository.NewJobRepository(database)

	senderService := service.NewSenderService()
	scheduleService := service.NewScheduleService(doctorRepo)
	assignmentService := service.NewAssignmentService(assignmentRepo, doctorRepo, hospitalRepo, senderService)
	searchService := service.NewSearchService(doctorRepo, hospitalRepo)
	authService := service.NewAuthService(authRepo, doctorRepo, hospitalRepo)
	subscriptionService := service.NewSubscriptionService(hospitalRepo)
	jobService := service.NewJobService(jobRepo, scheduleService)

	authHandler := api.NewAuthHandler(authService)
	doctorHandler := api.NewDoctorHandler(scheduleService, assignmentService)
	hospitalHandler := api.NewHospitalHandler(searchService, assignmentService, subscriptionService, hospitalRepo)
	assignmentHandler := api.NewAssignmentHandler(assignmentService)
	stripeHandler := api.NewStripeWebhookHandler(os.Getenv("STRIPE_WEBHOOK_SECRET"), subscriptionService)
	cronHandler := api.NewCronHandler(jobService)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/auth/register/doctor", authHandler.RegisterDoctor).Methods("POST")
	r.HandleFunc("/api/auth/register/hospital", authHandler.RegisterHospital).Methods("POST")
	r.HandleFunc("/api/stripe/webhook", stripeHandler.HandleWebhook).Methods("POST")

	// Cron endpoints (shared-secret header)
	r.HandleFunc("/api/cron/expire-assignments", cronHandler.ExpireAssignments).Methods("POST")
	r.HandleFunc("/api/cron/materialize-slots", cronHandler.MaterializeSlots).Methods("POST")

	// Doctor endpoints
	doctor := r.PathPrefix("/api/doctor").Subrouter()
	doctor.Use(auth.Middleware("doctor"))
	doctor.HandleFunc("/templates", doctorHandler.CreateTemplate).Methods("POST")
	doctor.HandleFunc("/templates", doctorHandler.ListTemplates).Methods("GET")
	doctor.HandleFunc("/templates/{id}", doctorHandler.UpdateTemplate).Methods("PUT")
	doctor.HandleFunc("/templates/{id}", doctorHandler.DeleteTemplate).Methods("DELETE")
	doctor.HandleFunc("/slots", doctorHandler.CreateSlot).Methods("POST")
	doctor.HandleFunc("/slots", doctorHandler.ListSlots).Methods("GET")
	doctor.HandleFunc("/slots/{id}", doctorHandler.UpdateSlot).Methods("PUT")
	doctor.HandleFunc("/slots/{id}", doctorHandler.DeleteSlot).Methods("DELETE")
	doctor.HandleFunc("/slots/{id}/block", doctorHandler.BlockSlot).Methods("POST")
	doctor.HandleFunc("/slots/{id}/unblock", doctorHandler.UnblockSlot).Methods("POST")
	doctor.HandleFunc("/assignments", doctorHandler.ListAssignments).Methods("GET")

	// Hospital endpoints
	hospital := r.PathPrefix("/api/hospital").Subrouter()
	hospital.Use(auth.Middleware("hospital"))
	hospital.HandleFunc("/doctors", hospitalHandler.FindDoctors).Methods("GET")
	hospital.HandleFunc("/patients", hospitalHandler.CreatePatient).Methods("POST")
	hospital.HandleFunc("/assignments", assignmentHandler.Create).Methods("POST")
	hospital.HandleFunc("/assignments", hospitalHandler.ListAssignments).Methods("GET")
	hospital.HandleFunc("/dashboard", hospitalHandler.Dashboard).Methods("GET")
	hospital.HandleFunc("/subscription", hospitalHandler.CurrentSubscription).Methods("GET")
	hospital.HandleFunc("/subscription/checkout", hospitalHandler.SubscriptionCheckout).Methods("POST")

	// Shared endpoints (doctor or hospital)
	shared := r.PathPrefix("/api/assignments").Subrouter()
	shared.Use(auth.Middleware(""))
	shared.HandleFunc("/{id}", assignmentHandler.Get).Methods("GET")
	shared.HandleFunc("/{id}/status", assignmentHandler.UpdateStatus).Methods("PATCH")

	startCronJobs(jobService)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{os.Getenv("FRONTEND_URL"), "http://localhost:3000"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "x-cron-secret"}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handlers.LoggingHandler(os.Stdout, corsHandler(r))))
}

func startCronJobs(jobService *service.JobService) {
	c := cron.New()

	// Sweep expired pending assignments every 5 minutes.
	if _, err := c.AddFunc("@every 5m", func() {
		if _, err := jobService.ExpirePendingAssignments(context.Background()); err != nil {
			log.Printf("Cron Job error: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule expiry job: %v", err)
	}

	// Materialize template slots for the next 30 days, nightly.
	if _, err := c.AddFunc("0 2 * * *", func() {
		if _, err := jobService.MaterializeUpcomingSlots(context.Background(), 30); err != nil {
			log.Printf("Cron Job error: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule materialization job: %v", err)
	}

	c.Start()
}
