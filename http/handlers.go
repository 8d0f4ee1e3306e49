package http

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"modeldemos/apps"
	"modeldemos/form"
	"modeldemos/monitoring"
)

//go:embed templates static
var assets embed.FS

type handlers struct {
	deps      Deps
	pages     *template.Template
	maxUpload int64
}

func newHandlers(deps Deps, maxUpload int64) (*handlers, error) {
	pages, err := template.New("").Funcs(template.FuncMap{
		"percent": apps.FormatPercent,
	}).ParseFS(assets, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &handlers{deps: deps, pages: pages, maxUpload: maxUpload}, nil
}

func (h *handlers) register(mux *http.ServeMux) {
	static, _ := fs.Sub(assets, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))

	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /apps/{app}", h.handleForm)
	mux.HandleFunc("POST /apps/{app}", h.handleSubmit)

	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/apps", h.handleListApps)
	mux.HandleFunc("POST /api/apps/{app}/predict", h.handlePredict)
	mux.HandleFunc("GET /api/apps/{app}/history", h.handleHistory)

	if h.deps.Feed != nil {
		mux.HandleFunc("GET /ws/predictions", h.deps.Feed.HandleWebSocket)
	}
	if h.deps.Metrics != nil {
		mux.HandleFunc("GET /api/metrics", h.handleMetrics)
		mux.HandleFunc("GET /metrics", h.handlePrometheus)
	}
}

func (h *handlers) lookup(w http.ResponseWriter, r *http.Request) (*apps.App, bool) {
	app, ok := h.deps.Registry.Get(r.PathValue("app"))
	if !ok {
		http.NotFound(w, r)
	}
	return app, ok
}

// predict runs one submission and records its outcome.
func (h *handlers) predict(r *http.Request, app *apps.App, in form.Input) (apps.Result, error) {
	start := time.Now()
	res, err := app.Predict(in)
	h.observe(r, app, in, res, err, time.Since(start))
	return res, err
}

func (h *handlers) observe(r *http.Request, app *apps.App, in form.Input, res apps.Result, err error, took time.Duration) {
	event := apps.Event{
		ID:       uuid.NewString(),
		App:      app.Name,
		Inputs:   summarizeInput(in),
		At:       time.Now(),
		Duration: took,
	}
	fields := []zap.Field{
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("event_id", event.ID),
		zap.String("app", app.Name),
		zap.Duration("took", took),
	}
	outcome := monitoring.OutcomeOK
	if err != nil {
		event.Error = apps.UserMessage(err)
		if apps.IsInputError(err) {
			outcome = monitoring.OutcomeRejected
			h.deps.Logger.Info("prediction rejected", append(fields, zap.Error(err))...)
		} else {
			outcome = monitoring.OutcomeFailed
			h.deps.Logger.Error("prediction failed", append(fields, zap.Error(err))...)
		}
	} else {
		event.Result = &res
		h.deps.Logger.Info("prediction", append(fields, zap.String("message", res.Message))...)
	}
	if h.deps.Metrics != nil {
		h.deps.Metrics.Observe(app.Name, outcome, took)
	}

	h.deps.History.Add(event)
	if h.deps.Store != nil {
		ctx := context.WithoutCancel(r.Context())
		if err := h.deps.Store.Record(ctx, event); err != nil {
			h.deps.Logger.Warn("record prediction", zap.String("event_id", event.ID), zap.Error(err))
		}
	}
	if h.deps.Feed != nil {
		h.deps.Feed.Publish(event)
	}
}

// summarizeInput keeps scalar values and replaces uploads by their size.
func summarizeInput(in form.Input) map[string]string {
	out := make(map[string]string, len(in.Values)+len(in.Files))
	for k, v := range in.Values {
		out[k] = v
	}
	for k, data := range in.Files {
		out[k] = fmt.Sprintf("<%d bytes>", len(data))
	}
	return out
}

// readInput reads the declared fields from a parsed url-encoded or multipart
// form. Only fields present in the request are set.
func readInput(r *http.Request, app *apps.App, maxUpload int64) (form.Input, error) {
	in := form.Input{Values: map[string]string{}, Files: map[string][]byte{}}
	if app.HasImageInput() {
		if err := r.ParseMultipartForm(maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return in, err
		}
	} else if err := r.ParseForm(); err != nil {
		return in, err
	}

	for _, f := range app.Fields {
		if f.Type != form.ImageInput {
			if vs, ok := r.PostForm[f.Name]; ok && len(vs) > 0 {
				in.Values[f.Name] = vs[0]
			}
			continue
		}
		if r.MultipartForm == nil {
			continue
		}
		file, _, err := r.FormFile(f.Name)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return in, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return in, err
		}
		in.Files[f.Name] = data
	}
	return in, nil
}

// requestStatus maps a body-reading error to a status code.
func requestStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func predictionStatus(err error) int {
	if apps.IsInputError(err) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func parseLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return n, nil
}
