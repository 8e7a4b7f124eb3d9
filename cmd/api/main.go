package main

import (
	"context"
	"crypto/rsa"
	"os"
	"strings"
	"time"

	_ "pharmacy/api/swagger" // swagger docs

	"pharmacy/internal/auth"
	"pharmacy/internal/config"
	"pharmacy/internal/database"
	"pharmacy/internal/handler"
	"pharmacy/internal/middleware"
	"pharmacy/internal/repository"
	"pharmacy/internal/service"
	"pharmacy/internal/tenant"
	"pharmacy/internal/websocket"
	"pharmacy/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Pharmacy Management API
// @version         1.0
// @description     Multi-tenant pharmacy management backend (patients, inventory, prescriptions, sales, reports).
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg := config.Load()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	if !cfg.IsProduction() {
		logrus.SetLevel(logrus.DebugLevel)
	}

	db, err := database.NewConnection(cfg.DatabaseDSN)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	logrus.Info("connected to postgres")

	// Signing key: PEM from disk in real deployments, throwaway in dev.
	signingKey, err := loadSigningKey(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("signing key unavailable")
	}
	codecOpts, err := retiredKeyOptions(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("retired key unusable")
	}
	if cfg.JWTAudience != "" {
		codecOpts = append(codecOpts, auth.WithAudience(cfg.JWTAudience))
	}
	codec, err := auth.NewTokenCodec(cfg.JWTIssuer, cfg.SigningKeyID, signingKey, codecOpts...)
	if err != nil {
		logrus.WithError(err).Fatal("token codec init failed")
	}

	// Revocation store: Redis when configured (multi-node), else Postgres.
	var revocations auth.RevocationStore
	if cfg.RedisAddr != "" {
		rc, err := auth.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, 0)
		if err != nil {
			logrus.WithError(err).Fatal("redis connection failed")
		}
		revocations = auth.NewRedisRevocationStore(rc)
		logrus.Info("using redis revocation store")
	} else {
		revocations = repository.NewRevocationRepository(db)
	}
	auth.StartPurgeLoop(context.Background(), revocations, time.Hour, func(err error) {
		logrus.WithError(err).Warn("revocation purge failed")
	})

	metrics.Init()

	matrix := auth.NewPermissionMatrix()
	branchEval := auth.NewBranchEvaluator(matrix)

	// Repositories
	tenantRepo := repository.NewTenantRepository(db)
	userRepo := repository.NewUserRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	medicineRepo := repository.NewMedicineRepository(db)
	prescriptionRepo := repository.NewPrescriptionRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	txManager := repository.NewTransactionManager(db)

	resolver := tenant.NewResolver(tenantRepo, !cfg.IsProduction())

	// WebSocket hub for tenant notifications
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Services
	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(userRepo, refreshRepo, revocations, codec, matrix, auditService)
	userService := service.NewUserService(userRepo, branchRepo, authService, auditService)
	tenantService := service.NewTenantService(tenantRepo, branchRepo, auditService)
	patientService := service.NewPatientService(patientRepo)
	inventoryService := service.NewInventoryService(medicineRepo, txManager, wsHub, auditService)
	prescriptionService := service.NewPrescriptionService(prescriptionRepo, patientRepo, medicineRepo, txManager, auditService)
	saleService := service.NewSaleService(saleRepo, medicineRepo, txManager, wsHub, auditService)
	reportService := service.NewReportService(saleRepo, medicineRepo)

	pipeline := middleware.NewPipeline(codec, revocations, resolver, branchEval, matrix, db, auditService, !cfg.IsProduction())

	// Router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Tenant-ID", "X-Branch-ID", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, codec)
	})

	root := router.Group("")
	handler.NewAuthHandler(authService, tenantService, userService, pipeline).RegisterRoutes(root)
	handler.NewUserHandler(userService, branchEval, pipeline).RegisterRoutes(root)
	handler.NewTenantHandler(tenantService, branchEval, pipeline).RegisterRoutes(root)
	handler.NewPatientHandler(patientService, branchEval, pipeline).RegisterRoutes(root)
	handler.NewInventoryHandler(inventoryService, branchEval, pipeline).RegisterRoutes(root)
	handler.NewPrescriptionHandler(prescriptionService, branchEval, pipeline).RegisterRoutes(root)
	handler.NewSaleHandler(saleService, branchEval, pipeline).RegisterRoutes(root)
	handler.NewReportHandler(reportService, branchEval, pipeline).RegisterRoutes(root)
	handler.NewAuditHandler(auditService, branchEval, pipeline).RegisterRoutes(root)

	logrus.WithField("port", cfg.Port).Info("server listening")
	if err := router.Run(":" + cfg.Port); err != nil {
		logrus.WithError(err).Fatal("server failed")
	}
}

func loadSigningKey(cfg *config.Config) (*rsa.PrivateKey, error) {
	if cfg.PrivateKeyPath == "" {
		if cfg.IsProduction() {
			logrus.Fatal("JWT_PRIVATE_KEY_PATH is required in production")
		}
		logrus.Warn("no signing key configured, generating a throwaway dev key")
		return auth.GenerateDevKey()
	}
	data, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	return auth.ParseRSAPrivateKeyPEM(data)
}

// retiredKeyOptions loads recently rotated public keys ("kid=path" entries)
// so tokens signed before a rotation keep verifying until they expire.
func retiredKeyOptions(cfg *config.Config) ([]auth.CodecOption, error) {
	var opts []auth.CodecOption
	for _, entry := range cfg.RetiredKeyPaths {
		kid, path, ok := strings.Cut(strings.TrimSpace(entry), "=")
		if !ok {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		key, err := auth.ParseRSAPublicKeyPEM(data)
		if err != nil {
			return nil, err
		}
		opts = append(opts, auth.WithRetiredKey(kid, key))
	}
	return opts, nil
}
