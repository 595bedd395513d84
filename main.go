package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/imperialbin/imperial/assets"
	"github.com/imperialbin/imperial/config"
	"github.com/imperialbin/imperial/handlers"
	"github.com/imperialbin/imperial/metrics"
	"github.com/imperialbin/imperial/render"
	"github.com/imperialbin/imperial/services"
	"github.com/imperialbin/imperial/storage"
	"github.com/imperialbin/imperial/users"
	"github.com/imperialbin/imperial/utils"

	// Lambda imports (only used when in Lambda mode)
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
)

// Version/build info (set via -ldflags at build time)
var (
	Version    = "dev"
	BuildTime  = "unknown"
	CommitHash = "none"
)

// Lambda-specific variables
var (
	ginLambdaV1   *ginadapter.GinLambda
	ginLambdaV2   *ginadapter.GinLambdaV2
	ginLambdaOnce sync.Once
)

// isLambdaEnvironment detects if running in AWS Lambda
func isLambdaEnvironment() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

func main() {
	// Load .env if present; real environment still wins
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	log.Printf("Imperial Version: %s", Version)
	log.Printf("Build Time:       %s", BuildTime)
	log.Printf("Commit Hash:      %s", CommitHash)

	cfg := config.LoadConfig(os.Args[1:])
	cfg.Version = Version
	cfg.BuildTime = BuildTime
	cfg.CommitHash = CommitHash

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	if utils.IsDebugEnabled() {
		log.Printf("[DEBUG] Loaded config: %+v", cfg)
	}

	// Lambda deployments have no local disk; force the DynamoDB backend
	if isLambdaEnvironment() && cfg.Backend == config.BackendFilesystem {
		log.Println("Lambda mode: overriding backend to dynamo")
		cfg.Backend = config.BackendDynamo
	}

	store, err := openDocumentStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize %s storage: %v", cfg.Backend, err)
	}
	log.Printf("Using %s document storage", cfg.Backend)

	userStore := openUserStore(cfg)
	renderer := buildRenderer(cfg)

	registry := prometheus.NewRegistry()
	m, err := metrics.New(registry)
	if err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	svc := services.NewDocumentService(store, userStore, renderer, m, cfg)
	router := setupRouter(svc, userStore, m, registry, cfg)

	if isLambdaEnvironment() {
		log.Println("Starting in AWS Lambda mode")
		ginLambdaOnce.Do(func() {
			ginLambdaV1 = ginadapter.New(router)
			ginLambdaV2 = ginadapter.NewV2(router)
		})
		lambda.Start(lambdaHandler)
		return
	}

	// The filesystem backend has no server-side TTL, so sweep expired
	// documents on a ticker
	if fs, ok := store.(*storage.FilesystemStore); ok && cfg.SweepInterval > 0 {
		go sweepExpired(fs, cfg.SweepInterval)
	}

	log.Println("Starting in HTTP server mode")
	runHTTPServer(router, cfg, store, userStore)
}

// openDocumentStore selects a document backend from configuration
func openDocumentStore(cfg *config.Config) (storage.DocumentStore, error) {
	switch cfg.Backend {
	case config.BackendMongo:
		return storage.NewMongoStore(cfg.MongoURL, cfg.MongoDatabase)
	case config.BackendDynamo:
		return storage.NewDynamoStore(cfg.DynamoTable, cfg.AWSRegion)
	case config.BackendFilesystem:
		return storage.NewFilesystemStore(cfg.DataDir)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// openUserStore wires the identity directory. Without MongoDB there are no
// accounts, so every request is treated as anonymous.
func openUserStore(cfg *config.Config) users.Store {
	if cfg.MongoURL == "" {
		log.Println("No MongoDB configured: API tokens disabled, all requests anonymous")
		return users.Disabled{}
	}
	store, err := users.NewMongoStore(cfg.MongoURL, cfg.MongoDatabase)
	if err != nil {
		log.Printf("[ERROR] user store unavailable, falling back to anonymous: %v", err)
		return users.Disabled{}
	}
	return store
}

// buildRenderer wires the screenshot side effect. Returns nil when no
// render endpoint is configured.
func buildRenderer(cfg *config.Config) services.Renderer {
	if cfg.RenderURL == "" {
		return nil
	}

	var assetStore assets.Store
	if cfg.S3Bucket != "" {
		s3Store, err := assets.NewS3Store(cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			log.Printf("[ERROR] S3 asset store unavailable, rendering disabled: %v", err)
			return nil
		}
		assetStore = s3Store
	} else {
		localStore, err := assets.NewLocalStore(cfg.AssetDir)
		if err != nil {
			log.Printf("[ERROR] local asset store unavailable, rendering disabled: %v", err)
			return nil
		}
		assetStore = localStore
	}
	return render.New(cfg.RenderURL, assetStore)
}

// sweepExpired periodically removes expired documents from the filesystem
// backend
func sweepExpired(fs *storage.FilesystemStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		removed, err := fs.DeleteExpired()
		if err != nil {
			log.Printf("[ERROR] expired document sweep failed: %v", err)
			continue
		}
		if removed > 0 {
			log.Printf("Swept %d expired documents", removed)
		}
	}
}

// lambdaHandler handles Lambda requests for both v1 and v2 formats
func lambdaHandler(ctx context.Context, event interface{}) (interface{}, error) {
	ginLambdaOnce.Do(func() {
		if ginLambdaV1 == nil || ginLambdaV2 == nil {
			log.Fatal("Lambda adapters are not initialized")
		}
	})

	eventBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("Failed to marshal event: %v", err)
		return events.APIGatewayV2HTTPResponse{
			StatusCode: 500,
			Body:       "Failed to process event",
			Headers:    map[string]string{"Content-Type": "text/plain"},
		}, err
	}

	// Lambda Function URLs and HTTP APIs deliver v2 events
	var reqV2 events.APIGatewayV2HTTPRequest
	if err := json.Unmarshal(eventBytes, &reqV2); err == nil && reqV2.RequestContext.HTTP.Method != "" {
		return ginLambdaV2.ProxyWithContext(ctx, reqV2)
	}

	// REST APIs and ALBs deliver v1 events
	var reqV1 events.APIGatewayProxyRequest
	if err := json.Unmarshal(eventBytes, &reqV1); err == nil && reqV1.HTTPMethod != "" {
		return ginLambdaV1.ProxyWithContext(ctx, reqV1)
	}

	log.Printf("Unable to parse event as APIGateway v1 or v2 format: %s", string(eventBytes))
	return events.APIGatewayV2HTTPResponse{
		StatusCode: 500,
		Body:       "Unsupported event type - this function expects API Gateway or Lambda Function URL events",
		Headers:    map[string]string{"Content-Type": "text/plain"},
	}, fmt.Errorf("unsupported event type: %T", event)
}

// setupRouter creates and configures the Gin router
func setupRouter(svc *services.DocumentService, userStore users.Store, m *metrics.Metrics, registry *prometheus.Registry, cfg *config.Config) *gin.Engine {
	docHandler := handlers.NewDocumentHandler(svc, userStore, cfg)
	systemHandler := handlers.NewSystemHandler()

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(m.Handler())

	api := router.Group("/api")
	{
		api.POST("/document", docHandler.Create)
		api.GET("/document/:slug", docHandler.Get)
		api.PATCH("/document", docHandler.Edit)
		api.DELETE("/document/:slug", docHandler.Delete)
		api.DELETE("/purgeDocuments", docHandler.Purge)
		api.GET("/checkApiToken/:apiToken", docHandler.CheckToken)
		api.GET("/getShareXConfig/:apiToken", docHandler.GetShareXConfig)

		// Legacy aliases kept for older clients
		api.POST("/postCode", docHandler.Create)
		api.POST("/paste", docHandler.Create)
		api.GET("/getCode/:slug", docHandler.Get)
		api.GET("/paste/:slug", docHandler.Get)
	}

	// Raw document bodies, matching the rawLink in create responses
	router.GET("/r/:slug", docHandler.Raw)

	// System routes
	router.GET("/health", systemHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Resource not found"})
	})

	return router
}

// runHTTPServer starts the HTTP server for container mode
func runHTTPServer(router *gin.Engine, cfg *config.Config, store storage.DocumentStore, userStore users.Store) {
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Error closing document storage: %v", err)
		}
		if err := userStore.Close(); err != nil {
			log.Printf("Error closing user storage: %v", err)
		}
	}()

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting imperial server on port %d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	} else {
		log.Println("Server shutdown complete")
	}
}
