package routes

import (
	"net/http"

	"github.com/stashdrive/stash/internal/app"
	"github.com/stashdrive/stash/internal/handler"
	"github.com/stashdrive/stash/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	directory := handler.NewDirectoryHandler(app.DirectoryService)
	file := handler.NewFileHandler(app.FileService, app.UploadService, app.ShareService)
	trash := handler.NewTrashHandler(app.TrashService)
	share := handler.NewShareHandler(app.ShareService)

	mux := http.NewServeMux()

	// Directories
	mux.HandleFunc("GET /api/directory", middleware.RequireAuth(directory.Get))
	mux.HandleFunc("GET /api/directory/{id}", middleware.RequireAuth(directory.Get))
	mux.HandleFunc("GET /api/directory/breadcrumb/{id}", middleware.RequireAuth(directory.Breadcrumb))
	mux.HandleFunc("POST /api/directory/create", middleware.RequireAuth(directory.Create))
	mux.HandleFunc("POST /api/directory/create/{parent}", middleware.RequireAuth(directory.Create))
	mux.HandleFunc("PATCH /api/directory/rename/{id}", middleware.RequireAuth(directory.Rename))
	mux.HandleFunc("DELETE /api/directory/{id}", middleware.RequireAuth(directory.Delete))

	// Files
	mux.HandleFunc("POST /api/files/upload", middleware.RequireAuth(file.Upload))
	mux.HandleFunc("POST /api/files/upload/{parent}", middleware.RequireAuth(file.Upload))
	mux.HandleFunc("GET /api/files/recent", middleware.RequireAuth(file.Recent))
	mux.HandleFunc("GET /api/files/starred", middleware.RequireAuth(file.Starred))
	mux.HandleFunc("GET /api/files/analytics", middleware.RequireAuth(file.Analytics))
	mux.HandleFunc("GET /api/files/{id}", middleware.RequireAuth(file.Metadata))
	mux.HandleFunc("GET /api/files/{id}/details", middleware.RequireAuth(file.Details))
	mux.HandleFunc("PATCH /api/files/rename/{id}", middleware.RequireAuth(file.Rename))
	mux.HandleFunc("PATCH /api/files/star/{id}", middleware.RequireAuth(file.Star))
	mux.HandleFunc("DELETE /api/files/{id}", middleware.RequireAuth(file.Delete))
	mux.HandleFunc("POST /api/files/bulk-delete", middleware.RequireAuth(file.BulkDelete))
	mux.HandleFunc("POST /api/files/share/{id}", middleware.RequireAuth(file.Share))

	// Shared access (capability path, no auth — the token is the credential)
	mux.HandleFunc("GET /api/share/{token}", share.View)

	// Trash
	mux.HandleFunc("GET /api/trash", middleware.RequireAuth(trash.List))
	mux.HandleFunc("DELETE /api/trash/{id}", middleware.RequireAuth(trash.Purge))

	return middleware.Chain(mux,
		middleware.RequestLogging,
		middleware.AuthMiddleware(app.Cfg.JWTSecret, app.DirectoryService),
	)
}
