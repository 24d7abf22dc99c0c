package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "RIPE API",
        "description": "Research submission tracking: RIPE code allocation, preview, register exports and notifications.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "RIPE", "description": "Reference number allocation, preview and register"},
        {"name": "Notifications", "description": "Caller's notification inbox"},
        {"name": "Ops", "description": "Health and readiness probes, served outside the API prefix"}
    ],
    "paths": {
        "/ripe/allocations": {
            "post": {
                "tags": ["RIPE"],
                "summary": "Assign the next RIPE code to a submission",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AllocateRequest"}}
                ],
                "responses": {
                    "201": {"description": "Assigned", "schema": {"$ref": "#/definitions/AllocateEnvelope"}},
                    "400": {"description": "Invalid input or submission type", "schema": {"$ref": "#/definitions/AllocateEnvelope"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden or scope mismatch", "schema": {"$ref": "#/definitions/AllocateEnvelope"}},
                    "404": {"description": "Submission unavailable", "schema": {"$ref": "#/definitions/AllocateEnvelope"}},
                    "409": {"description": "Concurrent allocation conflict, retry", "schema": {"$ref": "#/definitions/AllocateEnvelope"}},
                    "500": {"description": "Persistence failure", "schema": {"$ref": "#/definitions/AllocateEnvelope"}}
                }
            }
        },
        "/ripe/preview": {
            "get": {
                "tags": ["RIPE"],
                "summary": "Preview the next RIPE code",
                "description": "Read-only snapshot. Failures answer 200 with success=false and the error object.",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "submission_id", "in": "query", "type": "integer", "required": true},
                    {"name": "college_id", "in": "query", "type": "integer"},
                    {"name": "program_id", "in": "query", "type": "integer"},
                    {"name": "project_id", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "Preview", "schema": {"$ref": "#/definitions/PreviewEnvelope"}}
                }
            }
        },
        "/ripe/register": {
            "get": {
                "tags": ["RIPE"],
                "summary": "Export the RIPE register",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "year", "in": "query", "type": "integer"},
                    {"name": "type", "in": "query", "type": "string", "enum": ["research", "innovation", "publication", "extension"]},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Export generated", "schema": {"$ref": "#/definitions/RegisterExportResponse"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/ripe/register/download": {
            "get": {
                "tags": ["RIPE"],
                "summary": "Download a generated register export",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File", "schema": {"type": "file"}},
                    "403": {"description": "Invalid or expired token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Export removed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List own notifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"},
                    {"name": "unread_only", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/notifications/{id}/read": {
            "patch": {
                "tags": ["Notifications"],
                "summary": "Mark a notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "integer", "required": true}
                ],
                "responses": {
                    "204": {"description": "Marked"},
                    "404": {"description": "Not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "AllocateRequest": {
            "type": "object",
            "required": ["submission_id"],
            "properties": {
                "submission_id": {"type": "integer"},
                "college_id": {"type": "integer", "description": "0 when not selected"},
                "program_id": {"type": "integer", "description": "0 when not selected"},
                "project_id": {"type": "integer", "description": "0 when not selected"}
            }
        },
        "AllocateResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "reference_number": {"type": "string", "example": "R-2025-1-00-00-00-01"}
            }
        },
        "OrgOption": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "code": {"type": "string"},
                "name": {"type": "string"}
            }
        },
        "PreviewResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "message": {"type": "string"},
                "colleges": {"type": "array", "items": {"$ref": "#/definitions/OrgOption"}},
                "programs": {"type": "array", "items": {"$ref": "#/definitions/OrgOption"}},
                "projects": {"type": "array", "items": {"$ref": "#/definitions/OrgOption"}},
                "next_study_number": {"type": "string", "example": "02"},
                "preview_reference_number": {"type": "string", "example": "R-2025-1-CA-01-00-02"}
            }
        },
        "RegisterExportResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "format": {"type": "string"},
                "rows": {"type": "integer"},
                "download_url": {"type": "string"},
                "expires_at": {"type": "string", "format": "date-time"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        },
        "AllocateEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/AllocateResponse"},
                "error": {"$ref": "#/definitions/APIError"}
            }
        },
        "PreviewEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/PreviewResponse"},
                "error": {"$ref": "#/definitions/APIError"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
