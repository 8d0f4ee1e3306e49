package http

import (
	"bytes"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"modeldemos/apps"
	"modeldemos/form"
)

type indexPage struct {
	Apps []*apps.App
}

type fieldView struct {
	form.Field
	Value string
	Min   string
	Max   string
	Step  string
}

type formPage struct {
	App       *apps.App
	Fields    []fieldView
	Multipart bool
	Result    *apps.Result
	Error     string
	Recent    []apps.Event
}

func (h *handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "index.html", indexPage{Apps: h.deps.Registry.List()})
}

func (h *handlers) handleForm(w http.ResponseWriter, r *http.Request) {
	app, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "app.html", h.formPage(app, nil))
}

func (h *handlers) handleSubmit(w http.ResponseWriter, r *http.Request) {
	app, ok := h.lookup(w, r)
	if !ok {
		return
	}
	in, err := readInput(r, app, h.maxUpload)
	if err != nil {
		page := h.formPage(app, in.Values)
		page.Error = "Could not read the submitted form: " + err.Error()
		h.render(w, r, requestStatus(err), "app.html", page)
		return
	}

	res, err := h.predict(r, app, in)
	page := h.formPage(app, in.Values)
	status := http.StatusOK
	if err != nil {
		page.Error = apps.UserMessage(err)
		status = predictionStatus(err)
	} else {
		page.Result = &res
	}
	h.render(w, r, status, "app.html", page)
}

// formPage pre-fills each widget with the submitted value, or its default.
func (h *handlers) formPage(app *apps.App, submitted map[string]string) formPage {
	page := formPage{App: app, Multipart: app.HasImageInput()}
	for _, f := range app.Fields {
		v := fieldView{Field: f, Value: f.Default}
		if s, ok := submitted[f.Name]; ok {
			v.Value = s
		}
		if f.Min != nil {
			v.Min = strconv.FormatFloat(*f.Min, 'f', -1, 64)
		}
		if f.Max != nil {
			v.Max = strconv.FormatFloat(*f.Max, 'f', -1, 64)
		}
		switch {
		case f.Step > 0:
			v.Step = strconv.FormatFloat(f.Step, 'f', -1, 64)
		case f.Integer:
			v.Step = "1"
		default:
			v.Step = "any"
		}
		page.Fields = append(page.Fields, v)
	}
	page.Recent, _ = h.deps.History.Recent(app.Name)
	return page
}

func (h *handlers) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	var buf bytes.Buffer
	if err := h.pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.deps.Logger.Error("render template",
			zap.String("template", name),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}
