// Package docs SnapNotes API
//
// @title  SnapNotes API
// @version 0.1.0
// @description Per-user notes with pinning and live refetch notifications.
// @host      localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package docs

import (
	_ "github.com/ldelvillar/snap-notes-sub000/cmd/server/handlers/httperr"
	_ "github.com/ldelvillar/snap-notes-sub000/internal/services/notes"
)
