package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"modeldemos/apps"
	"modeldemos/form"
)

type errorResponse struct {
	Error string `json:"error"`
}

type predictResponse struct {
	Result apps.Result `json:"result"`
}

type appInfo struct {
	Name        string       `json:"name"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Fields      []form.Field `json:"fields"`
	LoadedAt    time.Time    `json:"loaded_at"`
}

type historyResponse struct {
	App    string `json:"app"`
	Source string `json:"source"`
	Events any    `json:"events"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"apps":   h.deps.Registry.Names(),
	})
}

func (h *handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"apps":   h.deps.Metrics.Snapshot(),
		"system": h.deps.Metrics.SystemStats(),
	}
	if h.deps.Store != nil {
		stored := make(map[string]int)
		for _, name := range h.deps.Registry.Names() {
			n, err := h.deps.Store.Count(r.Context(), name)
			if err != nil {
				h.deps.Logger.Warn("count stored predictions", zap.String("app", name), zap.Error(err))
				continue
			}
			stored[name] = n
		}
		body["stored"] = stored
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *handlers) handlePrometheus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	if err := h.deps.Metrics.ExportPrometheus(w); err != nil {
		h.deps.Logger.Warn("export metrics", zap.Error(err))
	}
}

func (h *handlers) handleListApps(w http.ResponseWriter, r *http.Request) {
	list := h.deps.Registry.List()
	out := make([]appInfo, 0, len(list))
	for _, app := range list {
		out = append(out, appInfo{
			Name:        app.Name,
			Title:       app.Title,
			Description: app.Description,
			Fields:      app.Fields,
			LoadedAt:    app.LoadedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePredict accepts {"inputs": {...}} for tabular apps and a multipart
// upload for image apps.
func (h *handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	app, ok := h.deps.Registry.Get(r.PathValue("app"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown app %q", r.PathValue("app"))})
		return
	}

	var (
		in  form.Input
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		in, err = decodeJSONInput(r)
	} else {
		in, err = readInput(r, app, h.maxUpload)
	}
	if err != nil {
		writeJSON(w, requestStatus(err), errorResponse{Error: err.Error()})
		return
	}

	res, err := h.predict(r, app, in)
	if err != nil {
		writeJSON(w, predictionStatus(err), errorResponse{Error: apps.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{Result: res})
}

func decodeJSONInput(r *http.Request) (form.Input, error) {
	var body struct {
		Inputs map[string]any `json:"inputs"`
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return form.Input{}, fmt.Errorf("decode request: %w", err)
	}

	in := form.Input{Values: make(map[string]string, len(body.Inputs))}
	for name, v := range body.Inputs {
		switch v := v.(type) {
		case json.Number:
			in.Values[name] = v.String()
		case string:
			in.Values[name] = v
		default:
			return form.Input{}, fmt.Errorf("input %q must be a number or a string", name)
		}
	}
	return in, nil
}

// handleHistory serves recent predictions from memory, or from the audit log
// with ?source=db.
func (h *handlers) handleHistory(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("app")
	if _, ok := h.deps.Registry.Get(name); !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: fmt.Sprintf("unknown app %q", name)})
		return
	}
	limit, err := parseLimit(r, 50)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	switch source := r.URL.Query().Get("source"); source {
	case "", "memory":
		events, _ := h.deps.History.Recent(name)
		if len(events) > limit {
			events = events[:limit]
		}
		writeJSON(w, http.StatusOK, historyResponse{App: name, Source: "memory", Events: events})

	case "db":
		if h.deps.Store == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: "prediction log is disabled"})
			return
		}
		entries, err := h.deps.Store.Query(r.Context(), name, limit)
		if err != nil {
			h.deps.Logger.Error("query prediction log", zap.String("app", name), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "query failed"})
			return
		}
		writeJSON(w, http.StatusOK, historyResponse{App: name, Source: "db", Events: entries})

	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("unknown source %q", source)})
	}
}
