package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ivr-voice-bridge-service/internal/observability"
	"ivr-voice-bridge-service/internal/observability/logging"
	"ivr-voice-bridge-service/internal/observability/metrics"
	"ivr-voice-bridge-service/internal/schema"
	"ivr-voice-bridge-service/internal/service/results"
	"ivr-voice-bridge-service/internal/service/session"
)

// identityField is the webhook parameter carrying the caller's phone number.
const identityField = "ApiPhone"

// LivenessMessage is the fixed payload of GET /.
const LivenessMessage = "IVR voice bridge is running"

// Deps are the collaborators served by the router.
type Deps struct {
	Registry    *session.Registry
	Results     *results.Log
	Validator   *schema.Validator
	Metrics     *metrics.Metrics
	RouteTarget string
	Ready       func() bool
}

type handlers struct {
	Deps
	log zerolog.Logger
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(deps Deps) http.Handler {
	if deps.Validator == nil {
		deps.Validator = schema.New()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.DefaultMetrics
	}
	if deps.RouteTarget == "" {
		deps.RouteTarget = "/5"
	}
	h := &handlers{Deps: deps, log: logging.WithComponent("http")}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestMiddleware(deps.Metrics))

	// Health endpoints
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(LivenessMessage))
	})
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", h.readiness)

	// IVR webhook
	r.Get("/api/ym", h.webhook)
	r.Post("/api/ym", h.webhook)

	// Observability
	r.Get("/results", h.results)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/sessions", h.sessions)
	})

	return r
}

func (h *handlers) readiness(w http.ResponseWriter, _ *http.Request) {
	if h.Ready != nil && !h.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// webhook registers the caller and requests a cycle. A missing or invalid
// identity gets an empty object so the IVR does not treat it as an error.
func (h *handlers) webhook(w http.ResponseWriter, r *http.Request) {
	identity := callerIdentity(r)
	if identity == "" {
		h.Metrics.RecordWebhook("ignored")
		h.log.Debug().Msg("Webhook without caller identity")
		writeJSON(w, struct{}{})
		return
	}
	if err := h.Validator.ValidateIdentity(identity); err != nil {
		h.Metrics.RecordWebhook("invalid")
		h.log.Warn().Err(err).Msg("Webhook with invalid caller identity")
		writeJSON(w, struct{}{})
		return
	}

	logger := logging.WithCaller(identity)
	_, created, err := h.Registry.GetOrCreate(identity)
	if err != nil {
		h.Metrics.RecordWebhook("invalid")
		logger.Error().Err(err).Msg("Failed to register caller")
		writeJSON(w, struct{}{})
		return
	}
	if created {
		h.Metrics.RecordSessionCreated()
	}
	s, err := h.Registry.MarkRequested(identity)
	if err != nil {
		// Reclaimed between the two calls; the next webhook recreates it.
		h.Metrics.RecordWebhook("invalid")
		logger.Error().Err(err).Msg("Failed to request cycle")
		writeJSON(w, struct{}{})
		return
	}

	h.Metrics.RecordWebhook("accepted")
	logger.Info().
		Bool("created", created).
		Int("index", s.SequenceIndex).
		Str("state", s.State.String()).
		Msg("Webhook accepted")
	writeJSON(w, map[string]string{"goto": h.RouteTarget})
}

func (h *handlers) results(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.Results.All())
}

func (h *handlers) sessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.Registry.Snapshot())
}

// callerIdentity reads ApiPhone from the query, a form body or a JSON body.
func callerIdentity(r *http.Request) string {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") && r.Body != nil {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err == nil {
			switch v := body[identityField].(type) {
			case string:
				return strings.TrimSpace(v)
			case float64:
				return fmt.Sprintf("%.0f", v)
			}
		}
		return strings.TrimSpace(r.URL.Query().Get(identityField))
	}
	return strings.TrimSpace(r.FormValue(identityField))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(v)
}
