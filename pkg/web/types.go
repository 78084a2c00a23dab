// Package web provides the HTTP handlers of the relay: the form webhook, health and service metadata.
package web

import "github.com/thalysguimaraes/elementor-whatsapp/pkg/dispatch"

// ErrorResponse is returned by the webhook on every non-dispatch outcome.
type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Message string   `json:"message,omitempty"`
	Form    string   `json:"form,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// WebhookResponse reports the dispatch of one submission.
type WebhookResponse struct {
	Success  bool              `json:"success"`
	Form     string            `json:"form"`
	Message  string            `json:"message"`
	Duration string            `json:"duration"`
	Results  []dispatch.Result `json:"results"`
}

// HealthChecks lists the status of each dependency.
type HealthChecks struct {
	Configuration string `json:"configuration"`
	Database      string `json:"database"`
	Provider      string `json:"provider"`
}

// HealthResponse is served by GET /health.
type HealthResponse struct {
	Status      string       `json:"status"`
	Checks      HealthChecks `json:"checks"`
	ZAPIDetails any          `json:"zapiDetails,omitempty"`
	Timestamp   string       `json:"timestamp"`
}

// ServiceInfo is served by GET /.
type ServiceInfo struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Endpoints map[string]string `json:"endpoints"`
}
