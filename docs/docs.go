package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/pages/{page}/postits": {
            "get": {
                "produces": ["application/json"],
                "tags": ["postits"],
                "summary": "List the notes of a page",
                "parameters": [
                    {"type": "string", "description": "Path-escaped page URL", "name": "page", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/remote.Record"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["postits"],
                "summary": "Add a note to a page",
                "parameters": [
                    {"type": "string", "description": "Path-escaped page URL", "name": "page", "in": "path", "required": true},
                    {"description": "Note; postit_id is assigned when empty", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/postits.PostitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/remote.Record"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            }
        },
        "/pages/{page}/postits/{id}": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["postits"],
                "summary": "Replace a note",
                "parameters": [
                    {"type": "string", "description": "Path-escaped page URL", "name": "page", "in": "path", "required": true},
                    {"type": "string", "description": "Note ID", "name": "id", "in": "path", "required": true},
                    {"description": "Note", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/postits.PostitRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/remote.Record"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httperr.E"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            },
            "delete": {
                "tags": ["postits"],
                "summary": "Delete a note",
                "parameters": [
                    {"type": "string", "description": "Path-escaped page URL", "name": "page", "in": "path", "required": true},
                    {"type": "string", "description": "Note ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httperr.E"}}
                }
            }
        },
        "/tabs/{tab}/toggle": {
            "post": {
                "produces": ["application/json"],
                "tags": ["gateway"],
                "summary": "Toggle the overlay of a tab",
                "parameters": [
                    {"type": "string", "description": "Tab id", "name": "tab", "in": "path", "required": true}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/gateway.ToggleResponse"}}
                }
            }
        }
    },
    "definitions": {
        "gateway.ToggleResponse": {
            "type": "object",
            "properties": {"bridges": {"type": "integer", "example": 1}}
        },
        "httperr.E": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "Bad Request"}}
        },
        "postits.PostitRequest": {
            "type": "object",
            "required": ["color"],
            "properties": {
                "postit_id": {"type": "string", "maxLength": 64, "example": "01HZX3J8Q4T9V6W2Y5B7C1D0EF"},
                "color": {"type": "string", "enum": ["yellow", "green", "pink", "cyan", "blue", "sienna"], "example": "yellow"},
                "x": {"type": "integer", "example": 120},
                "y": {"type": "integer", "example": 80},
                "rotate": {"type": "integer", "maximum": 5, "minimum": -5, "example": -2},
                "content": {"type": "string", "maxLength": 65536, "example": "<b>call</b> Anna"},
                "minimized": {"type": "boolean", "example": false}
            }
        },
        "remote.Record": {
            "type": "object",
            "properties": {
                "postit_id": {"type": "string"},
                "color": {"type": "string"},
                "x": {"type": "integer"},
                "y": {"type": "integer"},
                "rotate": {"type": "integer"},
                "content": {"type": "string"},
                "minimized": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "Bearer": {
            "description": "Type \"Bearer\" followed by a space and JWT token.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "postit API",
	Description:      "Sticky notes per page URL: REST resource and privileged storage gateway.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
