package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/ignatzorin/servicehub-backend/internal/config"
	"github.com/ignatzorin/servicehub-backend/internal/http/handlers"
	"github.com/ignatzorin/servicehub-backend/internal/http/middleware"
)

// Handlers набор HTTP хэндлеров приложения.
type Handlers struct {
	Auth     *handlers.AuthHandler
	Profile  *handlers.ProfileHandler
	Catalog  *handlers.CatalogHandler
	Provider *handlers.ProviderHandler
	Review   *handlers.ReviewHandler
	Feed     *handlers.FeedHandler
	Health   *handlers.HealthHandler
	Seed     *handlers.SeedHandler
}

func SetupRouter(
	cfg *config.Config,
	limiterStore limiter.Store,
	tokens middleware.AccessParser,
	h Handlers,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	r.StaticFS("/media", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	if h.Seed != nil && cfg.SeedEnabled {
		api.POST("/seed", h.Seed.Seed)
	}

	requireAuth := middleware.AuthMiddleware(tokens)
	optionalAuth := middleware.OptionalAuth(tokens)
	staffOnly := []gin.HandlerFunc{requireAuth, middleware.RequireStaff()}

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(limiterStore, cfg.AuthRateLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/sign-up", h.Auth.SignUp)
		authGroup.POST("/send-otp", h.Auth.SendOTP)
		authGroup.POST("/verify-otp", h.Auth.VerifyOTP)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/token", h.Auth.Token)
		authGroup.POST("/token/refresh", h.Auth.Refresh)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(requireAuth)
	{
		protectedAuth.GET("/me", h.Auth.Me)
		protectedAuth.GET("/security-events", h.Auth.SecurityEvents)
	}

	profile := api.Group("/profile")
	profile.Use(requireAuth)
	{
		profile.GET("", h.Profile.Get)
		profile.PUT("", h.Profile.Update)
	}

	// Справочники: чтение публичное, запись только для staff
	id := middleware.UUIDValidator("id")
	api.GET("/categories", h.Catalog.ListCategories)
	api.GET("/categories/:id", id, h.Catalog.GetCategory)
	api.GET("/cities", h.Catalog.ListCities)
	api.GET("/addresses", h.Catalog.ListAddresses)
	api.GET("/addresses/:id", id, h.Catalog.GetAddress)
	api.GET("/weekdays", h.Catalog.ListWeekdays)
	api.GET("/experts", h.Catalog.ListExperts)

	staff := api.Group("/")
	staff.Use(staffOnly...)
	{
		staff.POST("/categories", h.Catalog.CreateCategory)
		staff.PUT("/categories/:id", id, h.Catalog.UpdateCategory)
		staff.DELETE("/categories/:id", id, h.Catalog.DeleteCategory)
		staff.POST("/cities", h.Catalog.CreateCity)
		staff.POST("/addresses", h.Catalog.CreateAddress)
		staff.PUT("/addresses/:id", id, h.Catalog.UpdateAddress)
		staff.DELETE("/addresses/:id", id, h.Catalog.DeleteAddress)
		staff.POST("/experts", h.Catalog.CreateExpert)
	}

	// Сервис-провайдеры: чтение публичное, user_rate и лента по необязательному токену
	providers := api.Group("/service-providers")
	providers.Use(middleware.UUIDValidator("id", "itemId"))
	{
		providers.GET("", h.Provider.List)
		providers.GET("/:id", optionalAuth, h.Provider.Get)
		providers.GET("/:id/work-times", h.Provider.ListWorkTimes)
		providers.GET("/:id/tags", h.Provider.ListTags)
		providers.GET("/:id/images", h.Provider.ListImages)
		providers.GET("/:id/experts", h.Provider.ListExperts)
		providers.GET("/:id/reviews", h.Review.ListReviews)
		providers.GET("/:id/rates", h.Review.ListRates)
		providers.GET("/:id/feed", optionalAuth, h.Feed.Handle)
	}

	owned := api.Group("/service-providers")
	owned.Use(middleware.UUIDValidator("id", "itemId"), requireAuth)
	{
		owned.POST("", h.Provider.Create)
		owned.PUT("/:id", h.Provider.Update)
		owned.DELETE("/:id", h.Provider.Delete)

		owned.POST("/:id/work-times", h.Provider.CreateWorkTime)
		owned.PUT("/:id/work-times/:itemId", h.Provider.UpdateWorkTime)
		owned.DELETE("/:id/work-times/:itemId", h.Provider.DeleteWorkTime)

		owned.POST("/:id/tags", h.Provider.CreateTag)
		owned.DELETE("/:id/tags/:itemId", h.Provider.DeleteTag)

		owned.POST("/:id/images", h.Provider.UploadImage)
		owned.DELETE("/:id/images/:itemId", h.Provider.DeleteImage)

		owned.POST("/:id/experts", h.Provider.AddExpert)
		owned.DELETE("/:id/experts/:itemId", h.Provider.RemoveExpert)

		owned.POST("/:id/reviews", h.Review.CreateReview)
		owned.PUT("/:id/reviews/:itemId", h.Review.UpdateReview)
		owned.DELETE("/:id/reviews/:itemId", h.Review.DeleteReview)

		owned.PUT("/:id/rates", h.Review.Rate)
		owned.DELETE("/:id/rates", h.Review.DeleteRate)
	}

	api.GET("/owners/me", requireAuth, h.Provider.OwnerMe)

	return r
}
