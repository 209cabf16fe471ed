package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"med-assistant/internal/app"
	"med-assistant/internal/assistant"
	"med-assistant/internal/conversation"
	"med-assistant/internal/httputil"
	"med-assistant/internal/risk"
	"med-assistant/internal/session"
)

type sessionResponse struct {
	SessionID uuid.UUID           `json:"session_id"`
	CreatedAt time.Time           `json:"created_at"`
	Turns     []conversation.Turn `json:"turns"`
}

type messageRequest struct {
	Text                        string `json:"text" validate:"max=8000"`
	IncludeMedicineAdvice       bool   `json:"include_medicine_advice"`
	IncludeDoctorRecommendation bool   `json:"include_doctor_recommendation"`
}

type replyResponse struct {
	Reply   string              `json:"reply"`
	Preview string              `json:"preview,omitempty"`
	Outcome assistant.Outcome   `json:"outcome"`
	Turns   []conversation.Turn `json:"turns"`
}

// predictionRequest uses pointers so a missing field is rejected rather than read as zero.
type predictionRequest struct {
	Pregnancies              *float64 `json:"pregnancies" validate:"required"`
	Glucose                  *float64 `json:"glucose" validate:"required"`
	BloodPressure            *float64 `json:"blood_pressure" validate:"required"`
	SkinThickness            *float64 `json:"skin_thickness" validate:"required"`
	Insulin                  *float64 `json:"insulin" validate:"required"`
	BMI                      *float64 `json:"bmi" validate:"required"`
	DiabetesPedigreeFunction *float64 `json:"diabetes_pedigree_function" validate:"required"`
	Age                      *float64 `json:"age" validate:"required"`
}

func (p predictionRequest) features() risk.FeatureVector {
	return risk.FeatureVector{
		Pregnancies:              *p.Pregnancies,
		Glucose:                  *p.Glucose,
		BloodPressure:            *p.BloodPressure,
		SkinThickness:            *p.SkinThickness,
		Insulin:                  *p.Insulin,
		BMI:                      *p.BMI,
		DiabetesPedigreeFunction: *p.DiabetesPedigreeFunction,
		Age:                      *p.Age,
	}
}

type predictionResponse struct {
	Prediction int    `json:"prediction"`
	Label      string `json:"label"`
	Message    string `json:"message"`
}

var uploadTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

func createSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := deps.Sessions.Create(r.Context())
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to create session", err, http.StatusInternalServerError)
			return
		}
		deps.Log.Info("session created", "session_id", sess.ID)
		httputil.WriteJSON(w, http.StatusCreated, sessionResponse{
			SessionID: sess.ID,
			CreatedAt: sess.CreatedAt,
			Turns:     []conversation.Turn{},
		})
	}
}

func getSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(deps, w, r)
		if !ok {
			return
		}
		httputil.WriteJSON(w, http.StatusOK, sessionResponse{
			SessionID: sess.ID,
			CreatedAt: sess.CreatedAt,
			Turns:     nonNil(sess.Log.Turns()),
		})
	}
}

func transcriptHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(deps, w, r)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := io.WriteString(w, conversation.Render(sess.Log.Turns())); err != nil {
			deps.Log.Warn("transcript write failed", "session_id", sess.ID, "err", err)
		}
	}
}

func deleteSessionHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseSessionID(deps, w, r)
		if !ok {
			return
		}
		if err := deps.Sessions.Delete(r.Context(), id); err != nil {
			failSession(deps, w, id, err)
			return
		}
		deps.Log.Info("session deleted", "session_id", id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func messageHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := loadSession(deps, w, r)
		if !ok {
			return
		}
		var req messageRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Fail(deps.Log, w, "invalid request body", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validate(req); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		tr := session.Bind(deps.Sessions, sess.ID)
		reply, err := deps.Assistant.Submit(r.Context(), tr, req.Text, assistant.Flags{
			IncludeMedicineAdvice:       req.IncludeMedicineAdvice,
			IncludeDoctorRecommendation: req.IncludeDoctorRecommendation,
		})
		if err != nil {
			if errors.Is(err, assistant.ErrEmptyMessage) {
				httputil.Fail(deps.Log, w, "text is required", err, http.StatusBadRequest)
				return
			}
			failSession(deps, w, sess.ID, err)
			return
		}
		writeReply(deps, w, r, sess.ID, reply)
	}
}

func uploadHandler(deps app.Deps) http.HandlerFunc {
	maxFileSize := deps.Config.MaxUploadSize

	return func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusRequestEntityTooLarge)
			return
		}
		sess, ok := loadSession(deps, w, r)
		if !ok {
			return
		}

		// Multipart framing adds a little on top of the file itself.
		r.Body = http.MaxBytesReader(w, r.Body, maxFileSize+64*1024)
		file, header, err := r.FormFile("file")
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), err, http.StatusRequestEntityTooLarge)
				return
			}
			httputil.Fail(deps.Log, w, "file is required", err, http.StatusBadRequest)
			return
		}
		defer file.Close()

		if header.Size > maxFileSize {
			httputil.Fail(deps.Log, w, fmt.Sprintf("file too large (max %d bytes)", maxFileSize), nil, http.StatusRequestEntityTooLarge)
			return
		}

		contentType, ok := detectContentType(header.Filename, header.Header.Get("Content-Type"))
		if !ok {
			httputil.Fail(deps.Log, w, "unsupported file type (only PDF, PNG and JPG allowed)", nil, http.StatusBadRequest)
			return
		}

		content, err := io.ReadAll(file)
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to read file", err, http.StatusInternalServerError)
			return
		}

		tr := session.Bind(deps.Sessions, sess.ID)
		reply, err := deps.Assistant.Interpret(r.Context(), tr, assistant.Upload{
			Name:        filepath.Base(header.Filename),
			ContentType: contentType,
			Data:        content,
		})
		switch {
		case err == nil:
			writeReply(deps, w, r, sess.ID, reply)
		case errors.Is(err, assistant.ErrExtraction):
			httputil.Fail(deps.Log, w, "⚠️ Error: "+err.Error(), err, http.StatusUnprocessableEntity)
		case errors.Is(err, assistant.ErrCaptionUnavailable):
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusServiceUnavailable)
		case errors.Is(err, assistant.ErrUnsupportedType):
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
		default:
			failSession(deps, w, sess.ID, err)
		}
	}
}

func predictHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Risk == nil {
			httputil.Fail(deps.Log, w, "diabetes risk model is unavailable", risk.ErrUnavailable, http.StatusServiceUnavailable)
			return
		}
		var req predictionRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Fail(deps.Log, w, "invalid request body", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validate(req); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}
		features := req.features()
		if err := httputil.Validate(features); err != nil {
			httputil.Fail(deps.Log, w, err.Error(), err, http.StatusBadRequest)
			return
		}

		label, err := deps.Risk.Predict(features)
		if err != nil {
			if errors.Is(err, risk.ErrUnavailable) {
				httputil.Fail(deps.Log, w, "diabetes risk model is unavailable", err, http.StatusServiceUnavailable)
				return
			}
			httputil.Fail(deps.Log, w, "prediction failed", err, http.StatusBadRequest)
			return
		}
		deps.Metrics.ObservePrediction(label.String())
		httputil.WriteJSON(w, http.StatusOK, predictionResponse{
			Prediction: int(label),
			Label:      label.String(),
			Message:    label.Message(),
		})
	}
}

func writeReply(deps app.Deps, w http.ResponseWriter, r *http.Request, id uuid.UUID, reply assistant.Reply) {
	sess, err := deps.Sessions.Get(r.Context(), id)
	if err != nil {
		failSession(deps, w, id, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, replyResponse{
		Reply:   reply.Text,
		Preview: reply.Preview,
		Outcome: reply.Outcome,
		Turns:   nonNil(sess.Log.Turns()),
	})
}

func parseSessionID(deps app.Deps, w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.Fail(deps.Log, w, "invalid session id", err, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

func loadSession(deps app.Deps, w http.ResponseWriter, r *http.Request) (session.Session, bool) {
	id, ok := parseSessionID(deps, w, r)
	if !ok {
		return session.Session{}, false
	}
	sess, err := deps.Sessions.Get(r.Context(), id)
	if err != nil {
		failSession(deps, w, id, err)
		return session.Session{}, false
	}
	return sess, true
}

func failSession(deps app.Deps, w http.ResponseWriter, id uuid.UUID, err error) {
	log := deps.Log.With("session_id", id)
	if errors.Is(err, session.ErrNotFound) {
		httputil.Fail(log, w, "session not found", err, http.StatusNotFound)
		return
	}
	httputil.Fail(log, w, "session operation failed", err, http.StatusInternalServerError)
}

// detectContentType trusts a declared PDF/PNG/JPEG type and otherwise falls back to the file extension.
func detectContentType(filename, declared string) (string, bool) {
	declared = strings.ToLower(strings.TrimSpace(strings.SplitN(declared, ";", 2)[0]))
	if assistant.DetectKind(declared) != "" {
		if declared == "image/jpg" {
			declared = "image/jpeg"
		}
		return declared, true
	}
	if declared != "" && declared != "application/octet-stream" {
		return "", false
	}
	ct, ok := uploadTypes[strings.ToLower(filepath.Ext(filename))]
	return ct, ok
}

func nonNil(turns []conversation.Turn) []conversation.Turn {
	if turns == nil {
		return []conversation.Turn{}
	}
	return turns
}
