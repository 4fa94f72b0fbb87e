package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/aidoctor/internal/diagnosis"
	"github.com/Skufu/aidoctor/internal/logging"
	"github.com/Skufu/aidoctor/internal/patients"
)

type patientForm struct {
	Name    string `form:"name" json:"name"`
	Age     *int   `form:"age" json:"age" binding:"omitempty,min=0,max=120"`
	Gender  string `form:"gender" json:"gender" binding:"omitempty,oneof=Male Female Other"`
	City    string `form:"city" json:"city"`
	State   string `form:"state" json:"state"`
	Country string `form:"country" json:"country"`
}

// record applies the form defaults: age 25, first gender option.
func (f patientForm) record() patients.Record {
	r := patients.Record{
		Name:    f.Name,
		Age:     patients.DefaultAge,
		Gender:  f.Gender,
		City:    f.City,
		State:   f.State,
		Country: f.Country,
	}
	if f.Age != nil {
		r.Age = *f.Age
	}
	if r.Gender == "" {
		r.Gender = patients.Genders[0]
	}
	return r
}

type patientPage struct {
	Patient patients.Record
	Genders []string
	MinAge  int
	MaxAge  int
	Success string
	Warning string
	Error   string
}

func newPatientPage(r patients.Record) patientPage {
	return patientPage{
		Patient: r,
		Genders: patients.Genders,
		MinAge:  patients.MinAge,
		MaxAge:  patients.MaxAge,
	}
}

type diagnosisForm struct {
	Symptoms  []string `form:"symptoms"`
	PainArea  string   `form:"pain_area"`
	PainLevel *int     `form:"pain_level"`
	PainTime  string   `form:"pain_time"`
}

func (f diagnosisForm) pain() diagnosis.Pain {
	p := diagnosis.Pain{Area: f.PainArea, Level: diagnosis.DefaultPainLevel, Time: f.PainTime}
	if p.Area == "" {
		p.Area = diagnosis.PainAreas[0]
	}
	if f.PainLevel != nil {
		p.Level = *f.PainLevel
	}
	if p.Time == "" {
		p.Time = diagnosis.PainTimes[0]
	}
	return p
}

type diagnosisPage struct {
	Patient    string
	Left       []string
	Right      []string
	Selected   map[string]bool
	PainAreas  []string
	PainTimes  []string
	PainLevels []int
	Pain       diagnosis.Pain
	Result     *diagnosis.Result
	Error      string
}

func (h *Handler) newDiagnosisPage(ctx *gin.Context) diagnosisPage {
	left, right := h.Diagnosis.Schema().Halves()
	levels := make([]int, 0, diagnosis.MaxPainLevel-diagnosis.MinPainLevel+1)
	for l := diagnosis.MinPainLevel; l <= diagnosis.MaxPainLevel; l++ {
		levels = append(levels, l)
	}
	return diagnosisPage{
		Patient:    h.currentPatient(ctx),
		Left:       left,
		Right:      right,
		Selected:   map[string]bool{},
		PainAreas:  diagnosis.PainAreas,
		PainTimes:  diagnosis.PainTimes,
		PainLevels: levels,
		Pain:       diagnosisForm{}.pain(),
	}
}

func (h *Handler) GetPatientPage(ctx *gin.Context) {
	page := newPatientPage(patients.Record{Age: patients.DefaultAge, Gender: patients.Genders[0]})
	ctx.HTML(http.StatusOK, "patient.html", page)
}

func (h *Handler) SubmitPatient(ctx *gin.Context) {
	var form patientForm
	err := ctx.ShouldBind(&form)
	if strings.TrimSpace(ctx.PostForm("age")) == "" {
		// a cleared age input binds as 0
		form.Age = nil
	}
	if err != nil {
		page := newPatientPage(form.record())
		page.Warning = "Please check the form: " + err.Error()
		ctx.HTML(http.StatusUnprocessableEntity, "patient.html", page)
		return
	}

	rec := form.record()
	page := newPatientPage(rec)
	if err := h.registerPatient(ctx, rec); err != nil {
		switch {
		case errors.Is(err, patients.ErrNameRequired):
			page.Warning = "Please enter patient name."
			ctx.HTML(http.StatusUnprocessableEntity, "patient.html", page)
		case isPatientValidation(err):
			page.Warning = err.Error()
			ctx.HTML(http.StatusUnprocessableEntity, "patient.html", page)
		default:
			logging.FromContext(ctx, h.Log).WithError(err).Error("save patient")
			page.Error = "Patient info could not be saved. Please try again."
			ctx.HTML(http.StatusInternalServerError, "patient.html", page)
		}
		return
	}

	ctx.SetCookie(patientCookie, rec.Name, 0, "/", "", false, true)
	page.Success = "Patient info saved. Go to Diagnosis tab."
	ctx.HTML(http.StatusOK, "patient.html", page)
}

func (h *Handler) GetDiagnosisPage(ctx *gin.Context) {
	ctx.HTML(http.StatusOK, "diagnosis.html", h.newDiagnosisPage(ctx))
}

func (h *Handler) SubmitDiagnosis(ctx *gin.Context) {
	page := h.newDiagnosisPage(ctx)

	var form diagnosisForm
	if err := ctx.ShouldBind(&form); err != nil {
		page.Error = "Please check the form: " + err.Error()
		ctx.HTML(http.StatusUnprocessableEntity, "diagnosis.html", page)
		return
	}
	for _, s := range form.Symptoms {
		page.Selected[s] = true
	}
	pain := form.pain()
	page.Pain = pain

	res, err := h.Diagnosis.Diagnose(ctx.Request.Context(), diagnosis.Request{
		Symptoms: form.Symptoms,
		Pain:     &pain,
		Patient:  page.Patient,
	})
	if err != nil {
		status, message := diagnosisFailure(err)
		if status == http.StatusInternalServerError {
			logging.FromContext(ctx, h.Log).WithError(err).Error("diagnose")
		}
		page.Error = message
		ctx.HTML(status, "diagnosis.html", page)
		return
	}

	page.Result = &res
	ctx.HTML(http.StatusOK, "diagnosis.html", page)
}

// diagnosisFailure maps a Diagnose error to a status and a message for the
// user.
func diagnosisFailure(err error) (int, string) {
	var unknown *diagnosis.UnknownSymptomsError
	switch {
	case errors.Is(err, diagnosis.ErrNoSymptoms):
		return http.StatusUnprocessableEntity, "Please select at least one symptom."
	case errors.As(err, &unknown), errors.Is(err, diagnosis.ErrInvalidPain):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "Diagnosis failed. Please try again."
	}
}

func isPatientValidation(err error) bool {
	return errors.Is(err, patients.ErrNameRequired) ||
		errors.Is(err, patients.ErrInvalidAge) ||
		errors.Is(err, patients.ErrInvalidGender)
}
