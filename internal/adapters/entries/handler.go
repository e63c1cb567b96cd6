// Package entries exposes the tracker over HTTP: session login, entry
// submission, filtered views, charts and exports.
package entries

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"schmerzverlauf/docs/openapi"
	"schmerzverlauf/internal/auth"
	"schmerzverlauf/internal/blob"
	"schmerzverlauf/internal/chart"
	"schmerzverlauf/internal/core"
	"schmerzverlauf/internal/table"
)

// SessionCookie carries the session id issued by login.
const SessionCookie = "schmerzverlauf_session"

const apiPrefix = "/api/v1/"

// Handler provides HTTP access to the tracker.
type Handler struct {
	Service *core.Service
	// Auth gates every route except login and health; nil leaves them open.
	Auth    *auth.Manager
	Exports *Exporter
	Logger  *zap.Logger
}

// NewHandler constructs a tracker HTTP handler.
func NewHandler(svc *core.Service, am *auth.Manager, exports *Exporter, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Service: svc, Auth: am, Exports: exports, Logger: logger}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "tracker service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/healthz":
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	case path == "/api/v1/openapi.yaml":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(openapi.Spec())
		return
	case path == "/api/v1/login":
		h.handleLogin(w, r)
		return
	case path == "/api/v1/logout":
		h.handleLogout(w, r)
		return
	case !strings.HasPrefix(path, apiPrefix):
		http.NotFound(w, r)
		return
	}

	if !h.authorized(r) {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}

	remainder := strings.TrimPrefix(path, apiPrefix)
	if remainder == "exports" || strings.HasPrefix(remainder, "exports/") {
		h.handleArchive(w, r, strings.TrimPrefix(strings.TrimPrefix(remainder, "exports"), "/"))
		return
	}

	segments := strings.Split(remainder, "/")
	kind, err := core.ParseKind(segments[0])
	if err != nil {
		writeError(w, http.StatusNotFound, "table not found")
		return
	}
	switch {
	case len(segments) == 1:
		h.handleTable(w, r, kind)
	case len(segments) == 2:
		h.handleAction(w, r, kind, segments[1])
	default:
		writeError(w, http.StatusNotFound, "endpoint not found")
	}
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request, kind core.Kind, action string) {
	method := http.MethodGet
	if action == "clear" {
		method = http.MethodPost
	}
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	switch {
	case action == "export":
		h.handleExport(w, r, kind)
	case action == "clear":
		h.handleClear(w, r, kind)
	case action == "series" && kind == core.KindPain:
		h.handleSeries(w, r)
	case action == "chart.png" && kind == core.KindPain:
		h.handleChart(w, r)
	case action == "doses" && kind == core.KindMedication:
		h.handleDoses(w, r)
	default:
		writeError(w, http.StatusNotFound, "endpoint not found")
	}
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.Auth == nil {
		return true
	}
	_, err := h.Auth.Lookup(sessionID(r))
	return err == nil
}

func sessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

type loginRequest struct {
	Password string `json:"password"`
}

const emptyBodySentinel = "EOF"

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.Auth == nil {
		writeError(w, http.StatusNotFound, "login not configured")
		return
	}
	var req loginRequest
	if isForm(r) {
		req.Password = r.PostFormValue("password")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err.Error() != emptyBodySentinel {
		writeError(w, http.StatusBadRequest, "invalid login payload")
		return
	}
	session, err := h.Auth.Login(req.Password)
	if err != nil {
		h.Logger.Info("login rejected", zap.String("remote", r.RemoteAddr))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]any{"session": session})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ended := false
	if h.Auth != nil {
		ended = h.Auth.Logout(sessionID(r))
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"logged_out": ended})
}

func (h *Handler) handleTable(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	switch r.Method {
	case http.MethodGet:
		filter, err := parseFilter(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		t, err := h.Service.Table(r.Context(), kind, filter)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, tableResponse(t))
	case http.MethodPost:
		h.handleSubmit(w, r, kind)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	var (
		rec table.Record
		err error
	)
	switch kind {
	case core.KindPain:
		var entry core.PainEntry
		if entry, err = decodePain(r); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rec, err = h.Service.RecordPain(r.Context(), entry)
	case core.KindMedication:
		var entry core.MedicationEntry
		if entry, err = decodeMedication(r); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		rec, err = h.Service.RecordMedication(r.Context(), entry)
	}
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]any{"entry": rec})
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, table.ErrPersist):
		writeError(w, http.StatusInternalServerError, "entry not saved")
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) handleSeries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	series, err := h.Service.PainSeries(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"series": series})
}

func (h *Handler) handleChart(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	series, err := h.Service.PainSeries(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	opts := chart.DefaultRenderOptions()
	if v, ok := positiveInt(r, "width"); ok {
		opts.Width = v
	}
	if v, ok := positiveInt(r, "height"); ok {
		opts.Height = v
	}
	png, err := chart.RenderPNG(series.Points, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

func (h *Handler) handleDoses(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	totals, err := h.Service.DoseTotals(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"totals": totals})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	if err := h.Service.Clear(r.Context(), kind); err != nil {
		writeError(w, http.StatusInternalServerError, "table not cleared")
		return
	}
	store, _ := h.Service.Store(kind)
	writeJSON(w, http.StatusOK, map[string]any{"cleared": store.Name()})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, kind core.Kind) {
	if h.Exports == nil {
		http.NotFound(w, r)
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format, err := ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := ExportRequest{Kind: kind, Filter: filter, Format: format}

	if archive, _ := strconv.ParseBool(r.URL.Query().Get("archive")); archive {
		artifact, err := h.Exports.Archive(r.Context(), req)
		if err != nil {
			h.writeExportError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"export": artifact})
		return
	}

	rendered, err := h.Exports.Render(r.Context(), req)
	if err != nil {
		h.writeExportError(w, err)
		return
	}
	a := rendered.Artifact
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", a.Filename()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered.Payload)
}

func (h *Handler) writeExportError(w http.ResponseWriter, err error) {
	if errors.Is(err, errUnsupported) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	h.Logger.Error("export failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "export failed")
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request, key string) {
	if h.Exports == nil {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if key == "" {
		infos, err := h.Exports.List(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if infos == nil {
			infos = []blob.Info{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"exports": infos})
		return
	}
	info, payload, err := h.Exports.Open(r.Context(), ExportPrefix+key)
	if errors.Is(err, blob.ErrNotFound) {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if info.ContentType != "" {
		w.Header().Set("Content-Type", info.ContentType)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(payload)
}

func parseFilter(r *http.Request) (core.Filter, error) {
	q := r.URL.Query()
	mode, err := table.ParseMatchMode(q.Get("match"))
	if err != nil {
		return core.Filter{}, err
	}
	if q.Get("match") == "" {
		mode = ""
	}
	return core.Filter{Name: q.Get("name"), Match: mode}, nil
}

func positiveInt(r *http.Request, key string) (int, bool) {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 || v > 4096 {
		return 0, false
	}
	return v, true
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data")
}

// painPayload tells an omitted intensity apart from an explicit 0.
type painPayload struct {
	core.PainEntry
	Intensity *int `json:"intensity"`
}

var errIntensityRequired = core.ValidationError{Field: "intensity", Reason: "required"}

func decodePain(r *http.Request) (core.PainEntry, error) {
	var entry core.PainEntry
	if !isForm(r) {
		var payload painPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			return entry, errors.New("invalid pain entry payload")
		}
		if payload.Intensity == nil {
			return entry, errIntensityRequired
		}
		entry = payload.PainEntry
		entry.Intensity = *payload.Intensity
		return entry, nil
	}
	raw := strings.TrimSpace(r.PostFormValue("intensity"))
	if raw == "" {
		return entry, errIntensityRequired
	}
	intensity, err := strconv.Atoi(raw)
	if err != nil {
		return entry, fmt.Errorf("intensity: not a number %q", raw)
	}
	return core.PainEntry{
		Name:      r.PostFormValue("name"),
		Date:      r.PostFormValue("date"),
		Time:      r.PostFormValue("time"),
		Intensity: intensity,
		Location:  r.PostFormValue("location"),
		Note:      r.PostFormValue("note"),
	}, nil
}

func decodeMedication(r *http.Request) (core.MedicationEntry, error) {
	var entry core.MedicationEntry
	if !isForm(r) {
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			return entry, errors.New("invalid medication entry payload")
		}
		return entry, nil
	}
	return core.MedicationEntry{
		Name:       r.PostFormValue("name"),
		Date:       r.PostFormValue("date"),
		Time:       r.PostFormValue("time"),
		Medication: r.PostFormValue("medication"),
		Dose:       r.PostFormValue("dose"),
		Note:       r.PostFormValue("note"),
	}, nil
}

func tableResponse(t table.Table) map[string]any {
	rows := t.Rows()
	if rows == nil {
		rows = []table.Record{}
	}
	return map[string]any{"columns": t.Schema().Names(), "rows": rows, "count": t.Len()}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
