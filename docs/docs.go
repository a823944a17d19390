// Package docs registers the generated OpenAPI document for the /docs route.
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
        "/health": {
            "get": {
                "description": "Check if the service is running",
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Health check",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        },
        "/insights": {
            "get": {
                "description": "Retrieve recent correlated insight records for dashboards",
                "produces": ["application/json"],
                "tags": ["insights"],
                "summary": "Query insight records",
                "parameters": [
                    {"type": "string", "description": "Segment filter (new, returning, vip)", "name": "segment", "in": "query"},
                    {"type": "integer", "description": "Range start as unix seconds", "name": "from", "in": "query", "required": true},
                    {"type": "integer", "description": "Range end as unix seconds", "name": "to", "in": "query", "required": true},
                    {"type": "integer", "description": "Maximum records to return (default 100)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/dto.GetInsightsResponse"}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/dto.ErrorResponse"}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/dto.ErrorResponse"}
                    }
                }
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "validation_error"},
                "message": {"type": "string", "example": "from must be less than or equal to to"}
            }
        },
        "dto.SignalReadingData": {
            "type": "object",
            "properties": {
                "value": {"type": "number", "example": 21.5},
                "label": {"type": "string", "example": "Clear"},
                "stale": {"type": "boolean", "example": false}
            }
        },
        "dto.MetricDeltaData": {
            "type": "object",
            "properties": {
                "current": {"type": "number", "example": 42},
                "baseline": {"type": "number", "example": 30},
                "delta_pct": {"type": "number", "example": 40}
            }
        },
        "dto.InsightData": {
            "type": "object",
            "properties": {
                "insight_id": {"type": "string"},
                "generated_at": {"type": "integer"},
                "window_start": {"type": "integer"},
                "window_end": {"type": "integer"},
                "segment": {"type": "string", "example": "vip"},
                "touchpoint": {"type": "string", "example": "web"},
                "correlated_signals": {"type": "object", "additionalProperties": {"$ref": "#/definitions/dto.SignalReadingData"}},
                "metric_deltas": {"type": "object", "additionalProperties": {"$ref": "#/definitions/dto.MetricDeltaData"}},
                "narrative_tags": {"type": "array", "items": {"type": "string"}},
                "degraded": {"type": "boolean"}
            }
        },
        "dto.GetInsightsResponse": {
            "type": "object",
            "properties": {
                "from": {"type": "integer"},
                "to": {"type": "integer"},
                "segment": {"type": "string"},
                "count": {"type": "integer"},
                "insights": {"type": "array", "items": {"$ref": "#/definitions/dto.InsightData"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "Interaction Insights Service API",
	Description:      "API for querying correlated customer interaction insights",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
