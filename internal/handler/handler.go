package handler

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Skufu/aidoctor/internal/diagnosis"
	"github.com/Skufu/aidoctor/internal/events"
	"github.com/Skufu/aidoctor/internal/logging"
	"github.com/Skufu/aidoctor/internal/patients"
)

//go:embed templates/*.html
var templatesFS embed.FS

// patientCookie carries the name of the last registered patient between the
// two views.
const patientCookie = "patient"

type Handler struct {
	Diagnosis *diagnosis.Service
	Patients  patients.Store
	Events    events.Publisher
	Log       logrus.FieldLogger
}

func NewHandler(svc *diagnosis.Service, store patients.Store, pub events.Publisher, log logrus.FieldLogger) *Handler {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{Diagnosis: svc, Patients: store, Events: pub, Log: log}
}

// RegisterHandler registers the two views and the JSON API.
func (h *Handler) RegisterHandler(router *gin.Engine) {
	router.GET("/", h.GetPatientPage)
	router.POST("/patient", h.SubmitPatient)
	router.GET("/diagnosis", h.GetDiagnosisPage)
	router.POST("/diagnosis", h.SubmitDiagnosis)

	api := router.Group("/api")
	api.GET("/symptoms", h.ApiListSymptoms)
	api.GET("/patients", h.ApiListPatients)
	api.POST("/patients", h.ApiCreatePatient)
	api.POST("/diagnose", h.ApiDiagnose)
}

// RegisterTemplates installs the embedded view templates.
func (h *Handler) RegisterTemplates(router *gin.Engine) {
	tmpl := template.Must(template.New("").Funcs(template.FuncMap{
		"selected": func(set map[string]bool, name string) bool { return set[name] },
	}).ParseFS(templatesFS, "templates/*.html"))
	router.SetHTMLTemplate(tmpl)
}

// registerPatient validates and stores r, then announces it.
func (h *Handler) registerPatient(ctx *gin.Context, r patients.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if err := h.Patients.Append(ctx.Request.Context(), r); err != nil {
		return err
	}
	h.publish(ctx, events.New(events.TypePatientRegistered, r))
	return nil
}

func (h *Handler) publish(ctx *gin.Context, e events.Event) {
	if err := h.Events.Publish(ctx.Request.Context(), e); err != nil {
		logging.FromContext(ctx, h.Log).WithError(err).WithField("event", e.Type).Warn("event not published")
	}
}

func (h *Handler) currentPatient(ctx *gin.Context) string {
	name, err := ctx.Cookie(patientCookie)
	if err != nil {
		return ""
	}
	return name
}

// errorHandler logs err and writes it as a JSON error body.
func (h *Handler) errorHandler(ctx *gin.Context, status int, err error) {
	logging.FromContext(ctx, h.Log).WithError(err).Error("request failed")
	ctx.JSON(status, gin.H{"error": http.StatusText(status), "description": err.Error()})
}
