// Package docs provides the OpenAPI documentation of the knowledge link API
package docs

// @title Knowledge Link API
// @version 1.0
// @description Builds a weighted similarity graph over a user's knowledge base entries from the keywords of their structured summaries

// @contact.name API Support Team

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the Supabase access token

// @schemes http https
