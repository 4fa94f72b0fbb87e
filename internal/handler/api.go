package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Skufu/aidoctor/internal/diagnosis"
	"github.com/Skufu/aidoctor/internal/patients"
)

type diagnoseRequest struct {
	Symptoms []string        `json:"symptoms"`
	Pain     *diagnosis.Pain `json:"pain"`
	Patient  string          `json:"patient"`
}

// GET /api/symptoms
func (h *Handler) ApiListSymptoms(ctx *gin.Context) {
	schema := h.Diagnosis.Schema()
	left, right := schema.Halves()
	ctx.JSON(http.StatusOK, gin.H{
		"symptoms": schema.Names(),
		"columns":  [][]string{left, right},
	})
}

// GET /api/patients
func (h *Handler) ApiListPatients(ctx *gin.Context) {
	list, err := h.Patients.List(ctx.Request.Context())
	if err != nil {
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []patients.Record{}
	}
	ctx.JSON(http.StatusOK, gin.H{"patients": list})
}

// POST /api/patients
func (h *Handler) ApiCreatePatient(ctx *gin.Context) {
	var form patientForm
	if err := ctx.ShouldBindJSON(&form); err != nil {
		bindFailure(ctx, err)
		return
	}

	rec := form.record()
	if err := h.registerPatient(ctx, rec); err != nil {
		if isPatientValidation(err) {
			validationFailed(ctx, err.Error())
			return
		}
		h.errorHandler(ctx, http.StatusInternalServerError, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"patient": rec})
}

// POST /api/diagnose
func (h *Handler) ApiDiagnose(ctx *gin.Context) {
	var req diagnoseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		bindFailure(ctx, err)
		return
	}
	if req.Patient == "" {
		req.Patient = h.currentPatient(ctx)
	}

	res, err := h.Diagnosis.Diagnose(ctx.Request.Context(), diagnosis.Request{
		Symptoms: req.Symptoms,
		Pain:     req.Pain,
		Patient:  req.Patient,
	})
	if err != nil {
		var unknown *diagnosis.UnknownSymptomsError
		switch {
		case errors.Is(err, diagnosis.ErrNoSymptoms):
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no_symptoms", "details": err.Error()})
		case errors.As(err, &unknown):
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "unknown_symptoms", "symptoms": unknown.Names})
		case errors.Is(err, diagnosis.ErrInvalidPain):
			validationFailed(ctx, err.Error())
		default:
			h.errorHandler(ctx, http.StatusInternalServerError, err)
		}
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// bindFailure answers 422 for field validation errors and 400 for payloads
// that could not be decoded at all.
func bindFailure(ctx *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		validationFailed(ctx, verrs.Error())
		return
	}
	ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
}

func validationFailed(ctx *gin.Context, details string) {
	ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "details": details})
}
