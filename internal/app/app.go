package app

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/stashdrive/stash/internal/cache"
	"github.com/stashdrive/stash/internal/config"
	"github.com/stashdrive/stash/internal/db"
	"github.com/stashdrive/stash/internal/repository"
	"github.com/stashdrive/stash/internal/service"
	"github.com/stashdrive/stash/internal/storage"
)

type App struct {
	Cfg              *config.Config
	DB               *sqlx.DB
	Cache            *cache.MemoryCache
	DirectoryService *service.DirectoryService
	FileService      *service.FileService
	UploadService    *service.UploadService
	ShareService     *service.ShareService
	TrashService     *service.TrashService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %v", err)
	}

	// Repositories
	directoryRepository := repository.NewDirectoryRepository(database)
	fileRepository := repository.NewFileRepository(database)
	trashRepository := repository.NewTrashRepository(database)

	// Storage
	blobStorage, err := storage.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %v", err)
	}

	// Breadcrumb cache
	pathCache := cache.NewMemoryCache()

	// Services
	cascade := service.NewCascadeEngine(directoryRepository, fileRepository, trashRepository, blobStorage, pathCache)
	directoryService := service.NewDirectoryService(directoryRepository, fileRepository, cascade, pathCache, cfg.BreadcrumbTTL)
	fileService := service.NewFileService(fileRepository, directoryRepository, trashRepository, blobStorage)
	uploadService := service.NewUploadService(directoryRepository, fileRepository, blobStorage, cfg.UploadSizeLimit)
	shareService := service.NewShareService(fileRepository, blobStorage, cfg.JWTSecret, cfg.ShareTokenExpiry)
	trashService := service.NewTrashService(trashRepository, fileRepository, blobStorage)

	return &App{
		Cfg:              cfg,
		DB:               database,
		Cache:            pathCache,
		DirectoryService: directoryService,
		FileService:      fileService,
		UploadService:    uploadService,
		ShareService:     shareService,
		TrashService:     trashService,
	}, nil
}

func (a *App) Close() error {
	if a.Cache != nil {
		a.Cache.Close()
	}
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
