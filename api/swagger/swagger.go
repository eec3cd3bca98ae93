package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Taller JN Uniformes API",
        "description": "Reposition workflow service for the garment shop floor",
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
        {"name": "Auth", "description": "Authentication"},
        {"name": "Repositions", "description": "Reposition lifecycle"},
        {"name": "Transfers", "description": "Area handoff handshake"},
        {"name": "Timers", "description": "Working time per area"},
        {"name": "Documents", "description": "Reposition attachments"},
        {"name": "Notifications", "description": "User notification feed"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and obtain an access token",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current user profile",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/repositions": {
            "get": {
                "tags": ["Repositions"],
                "summary": "List repositions visible to the caller",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string"},
                    {"name": "area", "in": "query", "type": "string"},
                    {"name": "include_deleted", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Repositions"],
                "summary": "Open a new reposition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRepositionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error"}
                }
            }
        },
        "/repositions/{id}": {
            "get": {
                "tags": ["Repositions"],
                "summary": "Fetch one reposition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Not found"}
                }
            },
            "put": {
                "tags": ["Repositions"],
                "summary": "Edit and resubmit a rejected reposition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/EditRepositionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Not in a rejectable state"}
                }
            },
            "delete": {
                "tags": ["Repositions"],
                "summary": "Soft-delete a reposition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "403": {"description": "Terminal authority required"}
                }
            }
        },
        "/repositions/{id}/approval": {
            "post": {
                "tags": ["Repositions"],
                "summary": "Approve or reject a pending reposition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApproveRepositionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Not pending"}
                }
            }
        },
        "/repositions/{id}/complete": {
            "post": {
                "tags": ["Repositions"],
                "summary": "Complete a reposition or request its completion",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Not approved"}
                }
            }
        },
        "/repositions/{id}/cancel": {
            "post": {
                "tags": ["Repositions"],
                "summary": "Cancel an approved reposition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CancelRepositionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Terminal authority required"}
                }
            }
        },
        "/repositions/{id}/tracking": {
            "get": {
                "tags": ["Repositions"],
                "summary": "Tracking view of a reposition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/repositions/{id}/tracking/export": {
            "get": {
                "tags": ["Repositions"],
                "summary": "Export the tracking view as CSV or PDF",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"}
                }
            }
        },
        "/repositions/{id}/history": {
            "get": {
                "tags": ["Repositions"],
                "summary": "Audit trail of a reposition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/repositions/{id}/transfers": {
            "get": {
                "tags": ["Transfers"],
                "summary": "Handoff ledger of a reposition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Transfers"],
                "summary": "Request a handoff to another area",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RequestTransferRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Pending transfer exists"},
                    "429": {"description": "Cooldown active"}
                }
            }
        },
        "/repositions/{id}/transfers/cooldown": {
            "get": {
                "tags": ["Transfers"],
                "summary": "Cooldown status for the caller's area",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/transfers/{id}/process": {
            "post": {
                "tags": ["Transfers"],
                "summary": "Accept or reject a pending handoff",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ProcessTransferRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Already processed"}
                }
            }
        },
        "/repositions/{id}/timer/start": {
            "post": {
                "tags": ["Timers"],
                "summary": "Start the caller area's timer",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "Timer already running"}
                }
            }
        },
        "/repositions/{id}/timer/stop": {
            "post": {
                "tags": ["Timers"],
                "summary": "Stop the caller area's running timer",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"},
                    "409": {"description": "No running timer"}
                }
            }
        },
        "/repositions/{id}/timer/manual": {
            "post": {
                "tags": ["Timers"],
                "summary": "Backfill a manual working-time interval",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ManualTimerRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/repositions/{id}/documents": {
            "get": {
                "tags": ["Documents"],
                "summary": "List the attachments of a reposition",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            },
            "post": {
                "tags": ["Documents"],
                "summary": "Attach a file to a reposition",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created"}
                }
            }
        },
        "/documents/{id}/link": {
            "get": {
                "tags": ["Documents"],
                "summary": "Issue a short-lived download link",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/documents/download": {
            "get": {
                "tags": ["Documents"],
                "summary": "Download an attachment via signed token",
                "parameters": [
                    {"name": "token", "in": "query", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "401": {"description": "Invalid or expired token"}
                }
            }
        },
        "/notifications": {
            "get": {
                "tags": ["Notifications"],
                "summary": "List the caller's notifications",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "unread", "in": "query", "type": "boolean"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/notifications/unread-count": {
            "get": {
                "tags": ["Notifications"],
                "summary": "Unread notification count",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/notifications/{id}/read": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark one notification as read",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Marked"}
                }
            }
        },
        "/notifications/read-all": {
            "post": {
                "tags": ["Notifications"],
                "summary": "Mark every notification as read",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "204": {"description": "Marked"}
                }
            }
        }
    },
    "definitions": {
        "LoginRequest": {
            "type": "object",
            "properties": {
                "email": {"type": "string"},
                "password": {"type": "string"}
            },
            "required": ["email", "password"]
        },
        "CreateRepositionRequest": {
            "type": "object",
            "properties": {
                "type": {"type": "string", "enum": ["repocision", "reproceso"]},
                "solicitante_nombre": {"type": "string"},
                "modelo_prenda": {"type": "string"},
                "tela": {"type": "string"},
                "color": {"type": "string"},
                "tipo_pieza": {"type": "string"},
                "consumo_tela": {"type": "number"},
                "urgencia": {"type": "string", "enum": ["urgente", "intermedio", "poco_urgente"]},
                "observaciones": {"type": "string"},
                "causante_dano": {"type": "string"},
                "descripcion_suceso": {"type": "string"},
                "volver_hacer": {"type": "string"},
                "materiales_implicados": {"type": "string"},
                "pieces": {"type": "array", "items": {"$ref": "#/definitions/PiecePayload"}},
                "products": {"type": "array", "items": {"type": "object"}}
            },
            "required": ["type", "solicitante_nombre", "urgencia"]
        },
        "EditRepositionRequest": {
            "type": "object",
            "properties": {
                "solicitante_nombre": {"type": "string"},
                "modelo_prenda": {"type": "string"},
                "tela": {"type": "string"},
                "color": {"type": "string"},
                "urgencia": {"type": "string"},
                "observaciones": {"type": "string"},
                "pieces": {"type": "array", "items": {"$ref": "#/definitions/PiecePayload"}}
            }
        },
        "PiecePayload": {
            "type": "object",
            "properties": {
                "talla": {"type": "string"},
                "cantidad": {"type": "integer"},
                "folio_original": {"type": "string"}
            },
            "required": ["talla", "cantidad"]
        },
        "ApproveRepositionRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["aprobado", "rechazado"]},
                "notes": {"type": "string"}
            },
            "required": ["action"]
        },
        "CancelRepositionRequest": {
            "type": "object",
            "properties": {
                "reason": {"type": "string", "minLength": 10}
            },
            "required": ["reason"]
        },
        "RequestTransferRequest": {
            "type": "object",
            "properties": {
                "to_area": {"type": "string"},
                "notes": {"type": "string"},
                "consumo_tela": {"type": "number"}
            },
            "required": ["to_area"]
        },
        "ProcessTransferRequest": {
            "type": "object",
            "properties": {
                "action": {"type": "string", "enum": ["accepted", "rejected"]},
                "reason": {"type": "string"}
            },
            "required": ["action"]
        },
        "ManualTimerRequest": {
            "type": "object",
            "properties": {
                "start_time": {"type": "string", "example": "23:30"},
                "end_time": {"type": "string", "example": "00:15"},
                "start_date": {"type": "string", "example": "2026-08-01"},
                "end_date": {"type": "string"}
            },
            "required": ["start_time", "end_time", "start_date"]
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
                "status": {"type": "integer"},
                "details": {"type": "object"}
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
