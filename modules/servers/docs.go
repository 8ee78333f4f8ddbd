package servers

import (
	"sync"

	"github.com/swaggo/swag"
)

var swaggerOnce sync.Once

// registerSwaggerDoc publishes the API description served as doc.json by
// the swagger UI feature.
func registerSwaggerDoc(host, port string) {
	swaggerOnce.Do(func() {
		swag.Register(swag.Name, &swag.Spec{
			Version:          "1.0",
			Host:             host + ":" + port,
			BasePath:         APIPrefix,
			Schemes:          []string{"http"},
			Title:            "mathengine",
			Description:      "Delayed arithmetic operations.",
			InfoInstanceName: swag.Name,
			SwaggerTemplate:  swaggerTemplate,
		})
	})
}

const swaggerTemplate = `{
  "swagger": "2.0",
  "info": {"title": "{{.Title}}", "description": "{{escape .Description}}", "version": "{{.Version}}"},
  "host": "{{.Host}}",
  "basePath": "{{.BasePath}}",
  "schemes": {{ marshal .Schemes }},
  "securityDefinitions": {
    "BearerAuth": {"type": "apiKey", "in": "header", "name": "Authorization"}
  },
  "paths": {
    "/operations": {
      "get": {"summary": "Pending operations", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}},
      "post": {
        "summary": "Submit a question",
        "security": [{"BearerAuth": []}],
        "consumes": ["application/json", "application/x-www-form-urlencoded"],
        "parameters": [{"in": "body", "name": "question", "required": true, "schema": {"$ref": "#/definitions/SubmitRequest"}}],
        "responses": {"200": {"description": "Scheduled"}, "400": {"description": "Invalid input"}, "503": {"description": "Engine not running"}}
      }
    },
    "/operations/cancel": {
      "post": {"summary": "Cancel all pending operations", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
    },
    "/results": {
      "get": {"summary": "Finished results", "responses": {"200": {"description": "OK"}}}
    },
    "/results/clear": {
      "post": {"summary": "Clear the results list", "security": [{"BearerAuth": []}], "responses": {"200": {"description": "OK"}}}
    },
    "/status": {
      "get": {"summary": "Status surface", "responses": {"200": {"description": "OK"}}}
    },
    "/stream": {
      "get": {"summary": "Server-sent pending/results changes", "produces": ["text/event-stream"], "responses": {"200": {"description": "Stream"}}}
    }
  },
  "definitions": {
    "SubmitRequest": {
      "type": "object",
      "required": ["first_operand", "second_operand", "operator", "delay_seconds"],
      "properties": {
        "first_operand": {"type": "string", "example": "2"},
        "second_operand": {"type": "string", "example": "3"},
        "operator": {"type": "string", "enum": ["add", "subtract", "multiply", "divide"]},
        "delay_seconds": {"type": "string", "example": "10"}
      }
    }
  }
}`
