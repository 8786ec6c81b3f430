// Package oas carries the OpenAPI document for the control surface.
// The document is maintained by hand, not generated; keep it in sync with
// the routes in internal/bridge when operations change.
package oas

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
        "/api/v1/app/data": {
            "get": {
                "description": "Returns the directories and paths the shell keeps its state in.",
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Describe on-disk state locations",
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.AppData",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/app/info": {
            "get": {
                "description": "Returns the shell build version and host platform.",
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Describe the shell build",
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.AppInfo",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/app/reset": {
            "post": {
                "description": "Force-stops the server and clears its persisted data and session secret. Shell configuration, logs, and run history are kept.",
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Clear server data",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "403": {
                        "description": "Origin not allowed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "500": {
                        "description": "Reset failed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/browser/open": {
            "post": {
                "description": "Opens the given http or https URL in the host's default browser. Other schemes are refused.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Open a URL in the system browser",
                "parameters": [
                    {
                        "description": "URL to open",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/contracts.OpenBrowserRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "403": {
                        "description": "Origin not allowed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/config": {
            "get": {
                "description": "Returns the active shell configuration.",
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Read configuration",
                "responses": {
                    "200": {
                        "description": "Envelope carrying the configuration document",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            },
            "put": {
                "description": "Applies a partial configuration update and persists it. Fields affecting the server command or address take effect on the next start.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Change configuration",
                "parameters": [
                    {
                        "description": "Partial configuration patch",
                        "name": "patch",
                        "in": "body",
                        "required": true,
                        "schema": {"type": "object"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Envelope carrying the updated configuration",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "400": {
                        "description": "Validation failed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "403": {
                        "description": "Origin not allowed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/events": {
            "get": {
                "description": "Streams lifecycle events as server-sent events. Every status change, notification, and reset is pushed to subscribers.",
                "produces": ["text/event-stream"],
                "tags": ["app"],
                "summary": "Subscribe to lifecycle events",
                "responses": {
                    "200": {"description": "SSE stream of contracts.Event objects"}
                }
            }
        },
        "/api/v1/install/package": {
            "post": {
                "description": "Installs or upgrades the server package into the managed environment. Blocks until the install completes.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["runtime"],
                "summary": "Install the server package",
                "parameters": [
                    {
                        "description": "Set upgrade to move to the latest release",
                        "name": "request",
                        "in": "body",
                        "schema": {
                            "type": "object",
                            "properties": {"upgrade": {"type": "boolean"}}
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.PackageStatus",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "403": {
                        "description": "Origin not allowed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "500": {
                        "description": "Install failed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/install/python": {
            "post": {
                "description": "Downloads and installs the managed Python runtime. Blocks until the install completes.",
                "produces": ["application/json"],
                "tags": ["runtime"],
                "summary": "Install the Python runtime",
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.RuntimeStatus",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "403": {
                        "description": "Origin not allowed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "500": {
                        "description": "Install failed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/notifications": {
            "post": {
                "description": "Shows a desktop notification through the host notification service.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Show a desktop notification",
                "parameters": [
                    {
                        "description": "Notification title and body",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/contracts.NotificationRequest"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "403": {
                        "description": "Origin not allowed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/ops": {
            "get": {
                "description": "Lists the names of every registered control operation.",
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "List control operations",
                "responses": {
                    "200": {
                        "description": "Envelope carrying the operation names",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/rpc/{op}": {
            "post": {
                "description": "Invokes a control operation by its catalogue name, for example server:start or get:config. The request body is passed to the operation as its payload.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Invoke an operation by name",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Operation name",
                        "name": "op",
                        "in": "path",
                        "required": true
                    },
                    {
                        "description": "Operation payload",
                        "name": "payload",
                        "in": "body",
                        "schema": {"type": "object"}
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "403": {
                        "description": "Origin not allowed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "404": {
                        "description": "Unknown operation",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/server": {
            "get": {
                "description": "Returns the full state of the supervised server session.",
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "Describe the server session",
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.ServerInfo",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/server/logs": {
            "get": {
                "description": "Returns the most recent lines of captured server output.",
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "Tail server output",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Number of lines to return",
                        "name": "lines",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.LogsResponse",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/server/restart": {
            "post": {
                "description": "Stops the running session if any, then starts a fresh one. Never leaves a half-started session behind.",
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "Restart the server",
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.ServerInfo for the new session",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "403": {
                        "description": "Origin not allowed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "500": {
                        "description": "Restart failed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/server/runs": {
            "get": {
                "description": "Lists journaled server runs, newest first.",
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "List recent runs",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Maximum number of runs to return",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.RunsResponse",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/server/start": {
            "post": {
                "description": "Launches the server process. Responds as soon as the process spawns with the session address and pid; the session stays in status starting until the server answers HTTP, then flips to started.",
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "Start the server",
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.ServerInfo for the new session",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "403": {
                        "description": "Origin not allowed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "500": {
                        "description": "Launch failed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/server/status": {
            "get": {
                "description": "Returns the server session status. Safe to poll; never blocked by the origin gate.",
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "Poll server status",
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.ServerInfo",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/server/stop": {
            "post": {
                "description": "Stops the running session and waits for the port to be released. Stopping an already stopped server succeeds.",
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "Stop the server",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "403": {
                        "description": "Origin not allowed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    },
                    "500": {
                        "description": "Stop failed",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/server/url": {
            "get": {
                "description": "Returns the address of the active session, empty when stopped.",
                "produces": ["application/json"],
                "tags": ["server"],
                "summary": "Get the server address",
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.URLResponse",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/status/package": {
            "get": {
                "description": "Reports whether the server package is installed, its version, and whether a newer release exists.",
                "produces": ["application/json"],
                "tags": ["runtime"],
                "summary": "Poll package status",
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.PackageStatus",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/status/python": {
            "get": {
                "description": "Reports whether the managed Python runtime is installed and its version.",
                "produces": ["application/json"],
                "tags": ["runtime"],
                "summary": "Poll runtime status",
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.RuntimeStatus",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/api/v1/version": {
            "get": {
                "description": "Returns the shell build version.",
                "produces": ["application/json"],
                "tags": ["app"],
                "summary": "Get the shell version",
                "responses": {
                    "200": {
                        "description": "Envelope carrying contracts.VersionResponse",
                        "schema": {"$ref": "#/definitions/contracts.APIResponse"}
                    }
                }
            }
        },
        "/healthz": {
            "get": {
                "description": "Liveness probe aggregating the registered health checkers.",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {
                    "200": {"description": "All checks passing"},
                    "503": {"description": "At least one check failing"}
                }
            }
        },
        "/readyz": {
            "get": {
                "description": "Readiness probe aggregating the registered readiness checkers.",
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Readiness check",
                "responses": {
                    "200": {"description": "Ready to serve"},
                    "503": {"description": "Not ready"}
                }
            }
        }
    },
    "definitions": {
        "contracts.APIResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "data": {"type": "object"},
                "error": {"type": "string"},
                "code": {
                    "description": "Machine-readable failure kind, for example launch_error or reachability_timeout",
                    "type": "string"
                }
            }
        },
        "contracts.AppData": {
            "type": "object",
            "properties": {
                "data_dir": {"type": "string"},
                "log_dir": {"type": "string"},
                "config_path": {"type": "string"},
                "socket_path": {"type": "string"}
            }
        },
        "contracts.AppInfo": {
            "type": "object",
            "properties": {
                "version": {"type": "string"},
                "platform": {"type": "string"},
                "arch": {"type": "string"}
            }
        },
        "contracts.LogsResponse": {
            "type": "object",
            "properties": {
                "lines": {
                    "type": "array",
                    "items": {"type": "string"}
                },
                "count": {"type": "integer"}
            }
        },
        "contracts.NotificationRequest": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "body": {"type": "string"}
            }
        },
        "contracts.OpenBrowserRequest": {
            "type": "object",
            "properties": {
                "url": {"type": "string"}
            }
        },
        "contracts.PackageStatus": {
            "type": "object",
            "properties": {
                "installed": {"type": "boolean"},
                "version": {"type": "string"},
                "latest": {"type": "string"},
                "update_available": {"type": "boolean"}
            }
        },
        "contracts.RunRecord": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "started_at": {"type": "string"},
                "ended_at": {"type": "string"},
                "status": {"type": "string"},
                "url": {"type": "string"},
                "pid": {"type": "integer"},
                "exit_code": {"type": "integer"},
                "error": {"type": "string"}
            }
        },
        "contracts.RunsResponse": {
            "type": "object",
            "properties": {
                "runs": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/contracts.RunRecord"}
                },
                "count": {"type": "integer"}
            }
        },
        "contracts.RuntimeStatus": {
            "type": "object",
            "properties": {
                "installed": {"type": "boolean"},
                "version": {"type": "string"}
            }
        },
        "contracts.ServerInfo": {
            "type": "object",
            "properties": {
                "url": {"type": "string"},
                "lan_url": {"type": "string"},
                "status": {
                    "description": "One of stopped, starting, started, failed",
                    "type": "string"
                },
                "pid": {"type": "integer"},
                "reachable": {"type": "boolean"},
                "started_at": {"type": "string"},
                "last_error": {"type": "string"}
            }
        },
        "contracts.URLResponse": {
            "type": "object",
            "properties": {
                "url": {"type": "string"}
            }
        },
        "contracts.VersionResponse": {
            "type": "object",
            "properties": {
                "version": {"type": "string"}
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

// SwaggerInfo holds the rendered document's variable fields.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Open WebUI Desktop Control API",
	Description:      "Control surface for the Open WebUI Desktop shell. Supervises the local server process, the managed Python runtime, and the shell itself.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
