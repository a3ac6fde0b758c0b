package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "SMA Advisory API",
        "description": "Advisory scheduling and booking backend",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Authentication and session management"},
        {"name": "TimeSlots", "description": "Professor weekly availability windows"},
        {"name": "Availability", "description": "Bookable slot discovery"},
        {"name": "AdvisoryRequests", "description": "Student advisory request workflow"},
        {"name": "Advisories", "description": "Advisories, schedules and dated sessions"},
        {"name": "Attendance", "description": "Session attendance and exports"},
        {"name": "Invitations", "description": "Session invitations"},
        {"name": "Notifications", "description": "Email notification preferences and history"},
        {"name": "Dashboard", "description": "Per-role landing summary"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate and issue tokens",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/time-slots": {
            "get": {
                "tags": ["TimeSlots"],
                "summary": "List time slots",
                "parameters": [
                    {"name": "professor_id", "in": "query", "type": "string"},
                    {"name": "day", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "limit", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["TimeSlots"],
                "summary": "Create a weekly availability window",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateTimeSlotRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Overlapping window", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/availability/slots": {
            "get": {
                "tags": ["Availability"],
                "summary": "List bookable slots for a professor on a date",
                "parameters": [
                    {"name": "professor_id", "in": "query", "required": true, "type": "string"},
                    {"name": "date", "in": "query", "required": true, "type": "string", "format": "date"},
                    {"name": "subject_detail_id", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/advisory-requests": {
            "post": {
                "tags": ["AdvisoryRequests"],
                "summary": "Submit an advisory request",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateAdvisoryRequestRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Pending request already exists", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/advisory-requests/{id}/approve": {
            "post": {
                "tags": ["AdvisoryRequests"],
                "summary": "Approve a pending request",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/ProcessRequestPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Request no longer pending", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/advisories/dates/{dateId}/participants": {
            "post": {
                "tags": ["Advisories"],
                "summary": "Join a dated session",
                "parameters": [
                    {"name": "dateId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Session full or already joined", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/attendance/sessions/{dateId}/export": {
            "get": {
                "tags": ["Attendance"],
                "summary": "Export session attendance as CSV or PDF",
                "parameters": [
                    {"name": "dateId", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {
                    "200": {"description": "Report file"}
                }
            }
        },
        "/invitations/{id}/respond": {
            "post": {
                "tags": ["Invitations"],
                "summary": "Accept or decline an invitation",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RespondPayload"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "422": {"description": "Invitation expired or answered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/dashboard": {
            "get": {
                "tags": ["Dashboard"],
                "summary": "Get the caller's dashboard",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
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
        "CreateTimeSlotRequest": {
            "type": "object",
            "properties": {
                "day_of_week": {"type": "string"},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "10:30"},
                "max_students_per_slot": {"type": "integer"},
                "subject_detail_id": {"type": "string"},
                "effective_from": {"type": "string", "format": "date"},
                "effective_until": {"type": "string", "format": "date"}
            },
            "required": ["day_of_week", "start_time", "end_time", "max_students_per_slot"]
        },
        "CreateAdvisoryRequestRequest": {
            "type": "object",
            "properties": {
                "subject_detail_id": {"type": "string"},
                "message": {"type": "string"}
            },
            "required": ["subject_detail_id"]
        },
        "ProcessRequestPayload": {
            "type": "object",
            "properties": {
                "response": {"type": "string"}
            }
        },
        "RespondPayload": {
            "type": "object",
            "properties": {
                "accept": {"type": "boolean"}
            },
            "required": ["accept"]
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
