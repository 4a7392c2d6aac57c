package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/time/rate"

	"donorlink/internal/pkg/auth/jwt"
	"donorlink/internal/pkg/limiter"
	"donorlink/internal/pkg/logx"
	"donorlink/internal/pkg/resp"
)

const (
	LoginRate   = 0.2
	LoginBurst  = 5
	AnswerRate  = 0.1
	AnswerBurst = 5
	SignupRate  = 0.05
	SignupBurst = 3
	UploadRate  = 0.5
	UploadBurst = 10

	corsMaxAgeSec = 300
)

// Router sets up the main HTTP routing table for the API.
// The rate limiters' sweepers stop when ctx is done.
func Router(ctx context.Context, deps *AppDeps) http.Handler {
	loginLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(LoginRate), LoginBurst)
	answerLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(AnswerRate), AnswerBurst)
	signupLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(SignupRate), SignupBurst)
	uploadLimiter := limiter.NewIPRateLimiter(ctx, rate.Limit(UploadRate), UploadBurst)

	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Deprecation", "Link"},
		AllowCredentials: true,
		MaxAge:           corsMaxAgeSec,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger("/health"))
	r.Use(middleware.Recoverer)
	r.Use(jwt.IdentityExtractorMiddleware(deps.Config.JWTSecret))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondOK(w, r, map[string]any{
			"status":  "ok",
			"service": "donorlink",
			"uploads": deps.Storage != nil,
		})
	})

	// Accounts and password recovery.
	r.With(signupLimiter.Middleware).Post("/signup", HandleSignup(deps))
	r.With(loginLimiter.Middleware).Post("/login", HandleLogin(deps))
	r.Post("/request-password-reset", HandleRequestPasswordReset(deps))
	r.With(answerLimiter.Middleware).Post("/verify-security-answer", HandleVerifySecurityAnswer(deps))
	r.Post("/reset-password", HandleResetPassword(deps))
	r.Get("/check-user/{username}", HandleCheckUser(deps))
	r.Get("/leaderboard", HandleLeaderboard(deps))

	// Legacy recovery paths still called by older app builds.
	r.Post("/request-reset", deprecatedRoute("/request-password-reset", HandleRequestPasswordReset(deps)))
	r.With(answerLimiter.Middleware).Post("/verify-security-question",
		deprecatedRoute("/verify-security-answer", HandleVerifySecurityAnswer(deps)))

	r.Group(func(auth chi.Router) {
		auth.Use(jwt.RequireIdentity)

		auth.Get("/profile", HandleGetProfile(deps))
		auth.Put("/update-profile-image", HandleUpdateProfileImage(deps))

		auth.Route("/donations", func(d chi.Router) {
			d.Get("/", HandleListDonations(deps))
			d.Post("/", HandleCreateDonation(deps))
			d.Get("/{id}", HandleGetDonation(deps))
			d.Put("/{id}", HandleUpdateDonation(deps))
			d.Delete("/{id}", HandleDeleteDonation(deps))
			d.Post("/{id}/pickup", HandleSchedulePickup(deps))
		})

		auth.Route("/pickups", func(p chi.Router) {
			p.Get("/available", HandleAvailablePickups(deps))
			p.Post("/{id}/claim", HandleClaimPickup(deps))
			p.Post("/{id}/complete", HandleCompletePickup(deps))
		})

		auth.With(uploadLimiter.Middleware).Post("/uploads/presign", HandlePresignUpload(deps))
		auth.With(uploadLimiter.Middleware).Post("/uploads", HandleUpload(deps))
	})

	return r
}
