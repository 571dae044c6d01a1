// Package plugin provides the HTTP handler forwarding plugin requests to a plugin.Handler.
package plugin

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/plugin"
)

// Pattern is the route served by Handler.
const Pattern = "POST /v1/plugin/{request}"

// maxBodyBytes bounds plugin request bodies.
const maxBodyBytes = 1 << 20

// Handler serves plugin requests over HTTP.
type Handler struct {
	Pattern string
	plugin  *plugin.Handler
}

// New creates a handler dispatching to p.
func New(p *plugin.Handler) *Handler {
	return &Handler{Pattern: Pattern, plugin: p}
}

// ServeHTTP decodes the request named in the path and writes the JSON response.
// Unknown requests answer 404, malformed bodies 400 and failed requests 500.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("request")
	fields := logrus.Fields{
		"method":  r.Method,
		"path":    r.URL.Path,
		"request": name,
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to read request body")
		writeError(w, http.StatusBadRequest, err)

		return
	}

	response, err := h.plugin.Handle(r.Context(), name, body)

	switch {
	case errors.Is(err, plugin.ErrUnknownRequest):
		logrus.WithFields(fields).Debug("Unknown plugin request")
		writeError(w, http.StatusNotFound, err)

		return
	case errors.Is(err, plugin.ErrMalformedRequest):
		logrus.WithError(err).WithFields(fields).Debug("Malformed plugin request")
		writeError(w, http.StatusBadRequest, err)

		return
	case err != nil:
		logrus.WithError(err).WithFields(fields).Warn("Plugin request failed")
		writeError(w, http.StatusInternalServerError, err)

		return
	}

	logrus.WithFields(fields).Debug("Plugin request handled")
	writeJSON(w, http.StatusOK, response)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"message": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	buf, err := json.Marshal(body)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(buf); err != nil {
		logrus.WithError(err).Error("Failed to write response")
	}
}
