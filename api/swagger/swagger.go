package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "UAI SAF API",
        "description": "Thesis approval workflow and DSpace Simple Archive Format export pipeline",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Groups", "description": "Sustentation day groups"},
        {"name": "Records", "description": "Thesis record registry and review workflow"},
        {"name": "Files", "description": "Record documents"},
        {"name": "Batches", "description": "SAF export batches"},
        {"name": "Careers", "description": "Career catalogue"}
    ],
    "paths": {
        "/careers": {
            "get": {
                "tags": ["Careers"],
                "summary": "List active careers",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/groups": {
            "get": {
                "tags": ["Groups"],
                "summary": "List sustentation groups",
                "parameters": [
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Groups"],
                "summary": "Create the group for one sustentation day",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateGroupRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "A group already exists for that date"}
                }
            }
        },
        "/groups/{id}": {
            "get": {
                "tags": ["Groups"],
                "summary": "Get one group with its records",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "delete": {
                "tags": ["Groups"],
                "summary": "Delete an empty group",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"},
                    "409": {"description": "Group still has records"}
                }
            }
        },
        "/groups/{id}/submit": {
            "post": {
                "tags": ["Groups"],
                "summary": "Send every ready record of the group into review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Some records are not ready"}
                }
            }
        },
        "/records": {
            "get": {
                "tags": ["Records"],
                "summary": "List thesis records",
                "parameters": [
                    {"name": "groupId", "in": "query", "type": "string"},
                    {"name": "status", "in": "query", "type": "string"},
                    {"name": "q", "in": "query", "type": "string"},
                    {"name": "limit", "in": "query", "type": "integer"},
                    {"name": "offset", "in": "query", "type": "integer"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Records"],
                "summary": "Register a new thesis record",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateRecordRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/records/{id}": {
            "get": {
                "tags": ["Records"],
                "summary": "Get one thesis record",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "put": {
                "tags": ["Records"],
                "summary": "Update a record's bibliographic fields",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateRecordRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Record not editable in current status"}
                }
            }
        },
        "/records/{id}/validate": {
            "get": {
                "tags": ["Records"],
                "summary": "Run completeness checks without changing state",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/records/{id}/ready": {
            "post": {
                "tags": ["Records"],
                "summary": "Mark a complete record as ready for group submission",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Record is incomplete"}
                }
            }
        },
        "/records/{id}/observe": {
            "post": {
                "tags": ["Records"],
                "summary": "Reject a record under review back to its loader",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ObservationRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/records/{id}/approve": {
            "post": {
                "tags": ["Records"],
                "summary": "Approve a record under review",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/records/{id}/history": {
            "get": {
                "tags": ["Records"],
                "summary": "Record audit trail",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/records/{id}/files": {
            "get": {
                "tags": ["Files"],
                "summary": "List a record's documents",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Files"],
                "summary": "Upload a document for a record",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "type", "in": "formData", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/files/{fileId}": {
            "delete": {
                "tags": ["Files"],
                "summary": "Delete one document",
                "parameters": [
                    {"name": "fileId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "204": {"description": "Deleted"}
                }
            }
        },
        "/saf/batches": {
            "get": {
                "tags": ["Batches"],
                "summary": "List export batches",
                "parameters": [
                    {"name": "groupId", "in": "query", "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            },
            "post": {
                "tags": ["Batches"],
                "summary": "Create an export batch from a group's approved records",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateBatchRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/saf/batches/{id}": {
            "get": {
                "tags": ["Batches"],
                "summary": "Batch progress and per-item results",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/saf/batches/{id}/generate": {
            "post": {
                "tags": ["Batches"],
                "summary": "Start background generation of the SAF tree",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Already generated or in progress"}
                }
            }
        },
        "/saf/batches/{id}/scripts": {
            "post": {
                "tags": ["Batches"],
                "summary": "Rewrite import scripts and archive without regenerating items",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/saf/batches/{id}/download": {
            "get": {
                "tags": ["Batches"],
                "summary": "Issue a signed download link for the batch archive",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/saf/batches/download/{token}": {
            "get": {
                "tags": ["Batches"],
                "summary": "Stream the batch archive for a signed token",
                "produces": ["application/zip"],
                "parameters": [
                    {"name": "token", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "Archive stream"},
                    "403": {"description": "Invalid or expired token"}
                }
            }
        },
        "/saf/batches/{id}/links": {
            "post": {
                "tags": ["Batches"],
                "summary": "Ingest the handle/URL mapping exported from DSpace",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"type": "object"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateGroupRequest": {
            "type": "object",
            "required": ["sustentationDate"],
            "properties": {
                "sustentationDate": {"type": "string", "format": "date"}
            }
        },
        "CreateRecordRequest": {
            "type": "object",
            "required": ["groupId", "title", "author1Name", "author1Dni"],
            "properties": {
                "groupId": {"type": "string"},
                "careerId": {"type": "string"},
                "title": {"type": "string"},
                "author1Name": {"type": "string"},
                "author1Dni": {"type": "string"},
                "author2Name": {"type": "string"},
                "author2Dni": {"type": "string"},
                "author3Name": {"type": "string"},
                "author3Dni": {"type": "string"},
                "advisorName": {"type": "string"},
                "advisorDni": {"type": "string"},
                "advisorOrcid": {"type": "string"},
                "juror1": {"type": "string"},
                "juror2": {"type": "string"},
                "juror3": {"type": "string"},
                "abstract": {"type": "string"},
                "keywords": {"type": "string"}
            }
        },
        "UpdateRecordRequest": {
            "type": "object",
            "required": ["title", "author1Name", "author1Dni"],
            "properties": {
                "careerId": {"type": "string"},
                "title": {"type": "string"},
                "author1Name": {"type": "string"},
                "author1Dni": {"type": "string"},
                "abstract": {"type": "string"},
                "keywords": {"type": "string"}
            }
        },
        "ObservationRequest": {
            "type": "object",
            "required": ["comment"],
            "properties": {
                "comment": {"type": "string"}
            }
        },
        "CreateBatchRequest": {
            "type": "object",
            "required": ["groupId"],
            "properties": {
                "groupId": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "limit": {"type": "integer"},
                "total": {"type": "integer"}
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
