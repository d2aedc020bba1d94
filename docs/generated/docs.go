// Package docs holds the swagger spec for the rankings admin API,
// maintained by hand in the same shape `swag init` generates. Keep it in
// sync with the `@Summary`/`@Router` annotations on the handlers in
// internal/api/handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "description": "Reports that the process is up. It deliberately does not reach into Firestore or Redis.",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/api/v1/rankings/rebuild": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Triggers a full recomputation of every player rating from scratch. The client never blocks on this call's response; it polls the calculation status endpoint for completion.",
                "produces": ["application/json"],
                "tags": ["rankings"],
                "summary": "Start a full player rankings rebuild",
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/api/v1/rankings/calculations/{calculationId}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns the current CalculationState for a given calculation id, including progress and, on failure, the error record.",
                "produces": ["application/json"],
                "tags": ["rankings"],
                "summary": "Get a rebuild's calculation status",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Calculation id",
                        "name": "calculationId",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "Not Found"}
                }
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Player Rankings Engine API",
	Description:      "Admin API for triggering and monitoring full player rankings rebuilds.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
