package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"hostbook/internal/api"
	"hostbook/internal/auth"
	"hostbook/internal/repository"
	"hostbook/internal/service"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
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

	userRepo := repository.NewUserRepository(database)
	ruleRepo := repository.NewAvailabilityRepository(database)
	bookingRepo := repository.NewBookingRepository(database)
	analyticsRepo := repository.NewAnalyticsRepository(database)

	lockTTL := service.DefaultLockTTL
	if v := os.Getenv("LOCK_TTL_MINUTES"); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			lockTTL = time.Duration(minutes) * time.Minute
		}
	}

	locker := service.NewLockManager(bookingRepo, lockTTL)
	priceSvc := service.NewPriceService(ruleRepo)
	availabilitySvc := service.NewAvailabilityService(ruleRepo, bookingRepo, lockTTL)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, bookingRepo)
	insightsSvc := service.NewInsightsService(analyticsRepo, ruleRepo)
	notifySvc := service.NewNotifyService(userRepo, service.NotifyConfig{
		SendGridAPIKey:   os.Getenv("SENDGRID_API_KEY"),
		FromEmail:        os.Getenv("SENDGRID_FROM_EMAIL"),
		FromName:         os.Getenv("SENDGRID_FROM_NAME"),
		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber: os.Getenv("TWILIO_FROM_NUMBER"),
	})
	authSvc := service.NewAuthService(userRepo, os.Getenv("JWT_SECRET"))

	razorpayINR := service.NewRazorpayClient(os.Getenv("RAZORPAY_KEY_ID"), os.Getenv("RAZORPAY_KEY_SECRET"))
	razorpayUSD := service.NewRazorpayClient(os.Getenv("RAZORPAY_KEY_ID_USD"), os.Getenv("RAZORPAY_KEY_SECRET_USD"))
	payuSvc := service.NewPayUService(os.Getenv("PAYU_MERCHANT_KEY"), os.Getenv("PAYU_SALT"), os.Getenv("PAYU_PAYMENT_URL"))

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
	}
	stripeSvc := service.NewStripeService(os.Getenv("STRIPE_SECRET_KEY"),
		frontendURL+"/booking/success?session_id={CHECKOUT_SESSION_ID}",
		frontendURL+"/booking/failed")

	bookingSvc := service.NewBookingService(bookingRepo, locker, priceSvc, notifySvc, analyticsSvc,
		razorpayINR, razorpayUSD, payuSvc, stripeSvc, lockTTL)
	jobSvc := service.NewJobService(locker, bookingRepo)

	authHandler := api.NewAuthHandler(authSvc)
	hostHandler := api.NewHostHandler(availabilitySvc, analyticsSvc, insightsSvc, notifySvc, userRepo, bookingRepo)
	bookingHandler := api.NewBookingHandler(bookingSvc, frontendURL)
	adminHandler := api.NewAdminHandler(userRepo, bookingRepo)
	stripeHandler := api.NewStripeWebhookHandler(os.Getenv("STRIPE_WEBHOOK_SECRET"), bookingSvc)

	mw := auth.NewMiddleware(os.Getenv("JWT_SECRET"))

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")
	r.HandleFunc("/api/hosts/{username}/profile", hostHandler.GetProfile).Methods("GET")
	r.HandleFunc("/api/hosts/{id:[0-9]+}/availability", hostHandler.GetAvailability).Methods("GET")
	r.HandleFunc("/api/hosts/{id:[0-9]+}/month-availability", hostHandler.GetMonthAvailability).Methods("GET")
	r.HandleFunc("/api/hosts/{id:[0-9]+}/schedule", hostHandler.GetSchedule).Methods("GET")
	r.HandleFunc("/api/bookings/quote", bookingHandler.Quote).Methods("POST")
	r.HandleFunc("/api/bookings/razorpay-order", bookingHandler.CreateRazorpayOrder).Methods("POST")
	r.HandleFunc("/api/bookings/verify-payment", bookingHandler.VerifyRazorpayPayment).Methods("POST")
	r.HandleFunc("/api/bookings/payu-order", bookingHandler.CreatePayUOrder).Methods("POST")
	r.HandleFunc("/api/bookings/payu-response", bookingHandler.HandlePayUResponse).Methods("POST")
	r.HandleFunc("/api/bookings/stripe-checkout", bookingHandler.CreateStripeCheckout).Methods("POST")
	r.HandleFunc("/api/bookings/{id:[0-9]+}", bookingHandler.GetBooking).Methods("GET")
	r.HandleFunc("/api/stripe/webhook", stripeHandler.HandleWebhook).Methods("POST")

	// Host endpoints (protected)
	host := r.PathPrefix("/api/host").Subrouter()
	host.Use(mw.RequireRole("host"))
	host.HandleFunc("/rules", hostHandler.CreateRule).Methods("POST")
	host.HandleFunc("/rules", hostHandler.ListRules).Methods("GET")
	host.HandleFunc("/rules/{id:[0-9]+}", hostHandler.DeleteRule).Methods("DELETE")
	host.HandleFunc("/dashboard", hostHandler.Dashboard).Methods("GET")
	host.HandleFunc("/insights", hostHandler.GetInsights).Methods("GET")
	host.HandleFunc("/send-email", hostHandler.SendEmail).Methods("POST")

	// Admin endpoints (protected)
	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(mw.RequireRole("admin"))
	admin.HandleFunc("/stats", adminHandler.Stats).Methods("GET")
	admin.HandleFunc("/users", adminHandler.ListUsers).Methods("GET")
	admin.HandleFunc("/bookings", adminHandler.ListBookings).Methods("GET")
	admin.HandleFunc("/bookings/{id:[0-9]+}/cancel", bookingHandler.CancelBooking).Methods("POST")

	c := cron.New()
	c.AddFunc("*/5 * * * *", jobSvc.ReapExpiredLocks)
	c.AddFunc("*/10 * * * *", func() {
		if err := jobSvc.CompleteFinishedBookings(); err != nil {
			log.Printf("Error completing finished bookings: %v", err)
		}
	})
	c.Start()
	defer c.Stop()

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{frontendURL}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Session-ID"}),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Server running on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, handlers.LoggingHandler(os.Stdout, corsHandler(r))))
}
