// Package docs postit API
//
// @title  postit API
// @version 0.1.0
// @description Sticky notes per page URL: REST resource and privileged storage gateway.
// @host      localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
package docs

import (
	_ "postit/cmd/server/handlers/httperr"
	_ "postit/internal/remote"
)
