// Package docs registers the OpenAPI document served under /swagger.
// Regenerate with: swag init -g cmd/main.go -o docs
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
        "/admin/cycle": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "Closes the open match and opens the next one out of schedule.",
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Run a tournament cycle now",
                "responses": {
                    "202": {"description": "Accepted", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/matches/current": {
            "get": {
                "description": "The open match with live tallies and the previous round's result.",
                "produces": ["application/json"],
                "tags": ["matches"],
                "summary": "Current match",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.CurrentMatchView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/matches/current/contenders": {
            "get": {
                "produces": ["application/json"],
                "tags": ["matches"],
                "summary": "Contenders of the open match",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/matches/history": {
            "get": {
                "produces": ["application/json"],
                "tags": ["matches"],
                "summary": "Winner history, newest round first",
                "parameters": [
                    {"type": "integer", "description": "page size (max 100)", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "rows to skip", "name": "offset", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}}
                }
            }
        },
        "/matches/{matchID}/tally": {
            "get": {
                "produces": ["application/json"],
                "tags": ["matches"],
                "summary": "Tally of a match",
                "parameters": [
                    {"type": "string", "description": "match ID or \"current\"", "name": "matchID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/matches/{matchID}/votes": {
            "post": {
                "security": [{"BearerAuth": []}],
                "description": "One vote per member per match. 409 already_voted, 422 match_not_open.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["votes"],
                "summary": "Cast a vote",
                "parameters": [
                    {"type": "string", "description": "match ID or \"current\"", "name": "matchID", "in": "path", "required": true},
                    {"description": "vote", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.castVoteRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/services.CastVoteResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.errorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorBody"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.errorBody"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        },
        "/matches/{matchID}/votes/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["votes"],
                "summary": "The caller's vote in a match",
                "parameters": [
                    {"type": "string", "description": "match ID or \"current\"", "name": "matchID", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Vote"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.errorBody"}}
                }
            }
        }
    },
    "definitions": {
        "handlers.castVoteRequest": {
            "type": "object",
            "properties": {"movie_id": {"type": "integer"}}
        },
        "handlers.errorBody": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "error": {"type": "string"}}
        },
        "models.Contender": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "match_id": {"type": "integer"},
                "movie_id": {"type": "integer"},
                "votes": {"type": "integer"}
            }
        },
        "models.Match": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "round_number": {"type": "integer"},
                "round_date": {"type": "string"},
                "status": {"type": "string", "enum": ["open", "closed"]},
                "winner_movie_id": {"type": "integer"},
                "closed_at": {"type": "string"},
                "created_at": {"type": "string"},
                "contenders": {"type": "array", "items": {"$ref": "#/definitions/models.Contender"}}
            }
        },
        "models.Tally": {
            "type": "object",
            "properties": {"movie_id": {"type": "integer"}, "votes": {"type": "integer"}}
        },
        "models.Vote": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "member_id": {"type": "integer"},
                "match_id": {"type": "integer"},
                "contender_id": {"type": "integer"},
                "movie_id": {"type": "integer"},
                "cast_at": {"type": "string"}
            }
        },
        "services.CastVoteResult": {
            "type": "object",
            "properties": {"tally": {"type": "integer"}, "vote": {"$ref": "#/definitions/models.Vote"}}
        },
        "services.CurrentMatchView": {
            "type": "object",
            "properties": {
                "match": {"$ref": "#/definitions/models.Match"},
                "tallies": {"type": "array", "items": {"$ref": "#/definitions/models.Tally"}},
                "total_votes": {"type": "integer"},
                "previous_match": {"type": "object"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Movie Tournament API",
	Description:      "Weekly head-to-head movie matches with member voting.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
