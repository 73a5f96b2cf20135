// Package docs holds the OpenAPI description served at /swagger.
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
                "produces": ["application/json"],
                "tags": ["grader"],
                "summary": "Service health and resolved metric backends",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/types.HealthResponse"}
                    }
                }
            }
        },
        "/questions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["grader"],
                "summary": "Questionnaire, answer scale and brand categories",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/server.QuestionsResponse"}
                    }
                }
            }
        },
        "/submit": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["grader"],
                "summary": "Grade a website",
                "parameters": [
                    {
                        "description": "Website, keywords and questionnaire answers",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/types.GraderRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/types.GraderResponse"}
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/errors.Response"}
                    },
                    "429": {
                        "description": "Too Many Requests",
                        "schema": {"$ref": "#/definitions/errors.Response"}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"$ref": "#/definitions/errors.Response"}
                    }
                }
            }
        },
        "/reports": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "Most recent stored reports",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Number of reports, 1 to 100",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "type": "object",
                            "properties": {
                                "count": {"type": "integer"},
                                "reports": {
                                    "type": "array",
                                    "items": {"$ref": "#/definitions/database.ReportSummary"}
                                }
                            }
                        }
                    },
                    "400": {
                        "description": "Bad Request",
                        "schema": {"$ref": "#/definitions/errors.Response"}
                    },
                    "404": {
                        "description": "Report storage disabled",
                        "schema": {"$ref": "#/definitions/errors.Response"}
                    }
                }
            }
        },
        "/reports/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "A stored report by request ID",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Report ID",
                        "name": "id",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/database.Report"}
                    },
                    "404": {
                        "description": "Not Found",
                        "schema": {"$ref": "#/definitions/errors.Response"}
                    }
                }
            }
        }
    },
    "definitions": {
        "database.Report": {
            "type": "object",
            "properties": {
                "client_request_id": {"type": "string"},
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "response": {"$ref": "#/definitions/types.GraderResponse"},
                "stage": {"type": "string"},
                "total_score": {"type": "integer"},
                "website_url": {"type": "string"}
            }
        },
        "database.ReportSummary": {
            "type": "object",
            "properties": {
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "stage": {"type": "string"},
                "total_score": {"type": "integer"},
                "website_url": {"type": "string"}
            }
        },
        "errors.Response": {
            "type": "object",
            "properties": {
                "details": {
                    "type": "object",
                    "additionalProperties": {"type": "string"}
                },
                "error_code": {"type": "string"},
                "message": {"type": "string"},
                "request_id": {"type": "string"}
            }
        },
        "server.QuestionsResponse": {
            "type": "object",
            "properties": {
                "answer_scale": {
                    "type": "object",
                    "additionalProperties": {"type": "string"}
                },
                "brand_categories": {"type": "array", "items": {"type": "string"}},
                "content": {"type": "array", "items": {"type": "string"}},
                "max_keywords": {"type": "integer"},
                "measurement": {"type": "array", "items": {"type": "string"}},
                "questions": {
                    "type": "object",
                    "additionalProperties": {"type": "string"}
                },
                "technical": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.DeclaredScores": {
            "type": "object",
            "properties": {
                "content_keywords": {"type": "integer"},
                "measurement": {"type": "integer"},
                "technical": {"type": "integer"}
            }
        },
        "types.DimensionScores": {
            "type": "object",
            "properties": {
                "declared": {"$ref": "#/definitions/types.DeclaredScores"},
                "observed": {"$ref": "#/definitions/types.ObservedScores"}
            }
        },
        "types.GraderRequest": {
            "type": "object",
            "required": ["brand_category", "questionnaire_answers", "website_url"],
            "properties": {
                "brand_category": {"type": "string", "example": "SaaS"},
                "client_request_id": {"type": "string"},
                "questionnaire_answers": {"$ref": "#/definitions/types.QuestionnaireAnswers"},
                "target_keywords": {
                    "type": "array",
                    "maxItems": 5,
                    "items": {"type": "string"}
                },
                "website_url": {"type": "string", "example": "https://example.com"}
            }
        },
        "types.GraderResponse": {
            "type": "object",
            "properties": {
                "declared_vs_observed_gap": {"type": "string"},
                "dimension_scores": {"$ref": "#/definitions/types.DimensionScores"},
                "generated_at": {"type": "string"},
                "notes": {"type": "string"},
                "observed_score": {"type": "integer"},
                "questionnaire_score": {"type": "integer"},
                "raw_signals_summary": {"$ref": "#/definitions/types.RawSignalsSummary"},
                "request_id": {"type": "string"},
                "stage": {"type": "string"},
                "top_risks": {"type": "array", "items": {"type": "string"}},
                "total_score": {"type": "integer"}
            }
        },
        "types.HealthResponse": {
            "type": "object",
            "properties": {
                "backends": {"type": "object"},
                "services": {"$ref": "#/definitions/types.ServiceStatus"},
                "status": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "types.ObservedScores": {
            "type": "object",
            "properties": {
                "authority_proxies": {"type": "integer"},
                "core_web_vitals": {"type": "integer"},
                "onpage": {"type": "integer"},
                "serp_reality": {"type": "integer"}
            }
        },
        "types.QuestionnaireAnswers": {
            "type": "object",
            "properties": {
                "C1": {"type": "integer", "minimum": 1, "maximum": 5},
                "C2": {"type": "integer", "minimum": 1, "maximum": 5},
                "C3": {"type": "integer", "minimum": 1, "maximum": 5},
                "C4": {"type": "integer", "minimum": 1, "maximum": 5},
                "M1": {"type": "integer", "minimum": 1, "maximum": 5},
                "M2": {"type": "integer", "minimum": 1, "maximum": 5},
                "T1": {"type": "integer", "minimum": 1, "maximum": 5},
                "T2": {"type": "integer", "minimum": 1, "maximum": 5},
                "T3": {"type": "integer", "minimum": 1, "maximum": 5},
                "T4": {"type": "integer", "minimum": 1, "maximum": 5}
            }
        },
        "types.RawSignalsSummary": {
            "type": "object",
            "properties": {
                "cls": {"type": "number"},
                "cwv_notes": {"type": "string"},
                "domain_age_years": {"type": "integer"},
                "h1_present": {"type": "boolean"},
                "inp_ms": {"type": "integer"},
                "lcp_ms": {"type": "integer"},
                "meta_unique": {"type": "boolean"},
                "onpage_notes": {"type": "string"},
                "referring_domains_estimate": {"type": "integer"},
                "serp_hits_top10": {"type": "integer"},
                "serp_hits_top30": {"type": "integer"},
                "title_present": {"type": "boolean"}
            }
        },
        "types.ServiceStatus": {
            "type": "object",
            "properties": {
                "authority": {"type": "string"},
                "pagespeed": {"type": "string"},
                "serp": {"type": "string"},
                "whois": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/seo/grader",
	Schemes:          []string{},
	Title:            "SEO Maturity Grader API",
	Description:      "Grades a website's SEO maturity from a self-assessment questionnaire and observed signals.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
