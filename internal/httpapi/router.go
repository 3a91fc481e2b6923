package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(d Deps) http.Handler {
	if d.Service == "" {
		d.Service = "Email Parser API"
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recover(d.Log))
	r.Use(AccessLog(d.Log))
	r.Use(Cors)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" not allowed on "+r.URL.Path)
	})

	hh := HealthHandler{Service: d.Service}
	r.Get("/", hh.Root)
	r.Get("/health", hh.Health)

	wh := WorkOrdersHandler{Extractor: d.Extractor, Logs: d.Logs, Hub: d.Hub, Log: d.Log}
	r.Get("/work-orders", wh.List)
	r.Post("/process-email", wh.ProcessEmail)

	ch := ConfigHandler{Store: d.Config, Hub: d.Hub, Log: d.Log}
	r.Get("/config", ch.Get)
	r.Post("/config", ch.Post)
	r.Get("/config/validate", ch.Validate)

	ph := ProcessorHandler{Processor: d.Processor}
	r.Post("/start-processor", ph.Start)
	r.Post("/stop-processor", ph.Stop)
	r.Get("/processor-status", ph.Status)

	mh := ModelHandler{Config: d.Config, ChunkDelay: d.ChunkDelay}
	r.Post("/chat", mh.Chat)
	r.Get("/model-status", mh.Status)

	eh := EventsHandler{Hub: d.Hub}
	r.Get("/events", eh.ServeSSE)

	sh := SecretsHandler{Config: d.Config}
	r.Post("/api/secrets/imap", sh.SetIMAPPassword)

	dh := DBHandler{DB: d.DB}
	r.Post("/db/checkpoint", dh.Checkpoint)

	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
