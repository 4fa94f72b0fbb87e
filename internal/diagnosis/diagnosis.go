// Package diagnosis turns a symptom selection into a predicted disease with
// its cause and medicine.
package diagnosis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Skufu/aidoctor/internal/classifier"
	"github.com/Skufu/aidoctor/internal/diseases"
	"github.com/Skufu/aidoctor/internal/events"
	"github.com/Skufu/aidoctor/internal/features"
)

var ErrNoSymptoms = errors.New("please select at least one symptom")

// UnknownSymptomsError lists selected names the model was not trained on.
type UnknownSymptomsError struct {
	Names []string
}

func (e *UnknownSymptomsError) Error() string {
	return fmt.Sprintf("unknown symptoms: %s", strings.Join(e.Names, ", "))
}

// Request is one diagnosis submission.
type Request struct {
	Symptoms []string
	Pain     *Pain
	Patient  string
}

// Result is what the diagnosis view renders.
type Result struct {
	Disease     string          `json:"disease"`
	DisplayName string          `json:"display_name"`
	Symptoms    []string        `json:"symptoms"`
	Advice      diseases.Advice `json:"advice"`
	Pain        *Pain           `json:"pain,omitempty"`
	Patient     string          `json:"patient,omitempty"`
}

type Service struct {
	schema *features.Schema
	model  classifier.Predictor
	table  *diseases.Table
	events events.Publisher
	log    logrus.FieldLogger
}

func NewService(schema *features.Schema, model classifier.Predictor, table *diseases.Table, pub events.Publisher, log logrus.FieldLogger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		schema: schema,
		model:  model,
		table:  table,
		events: pub,
		log:    log,
	}
}

func (s *Service) Schema() *features.Schema { return s.schema }

// Diagnose validates the selection, encodes it, predicts and looks up the
// disease. Nothing reaches the model unless at least one known symptom is
// selected.
func (s *Service) Diagnose(ctx context.Context, req Request) (Result, error) {
	if len(req.Symptoms) == 0 {
		return Result{}, ErrNoSymptoms
	}
	if unknown := s.schema.Unknown(req.Symptoms); len(unknown) > 0 {
		return Result{}, &UnknownSymptomsError{Names: unknown}
	}
	if req.Pain != nil {
		if err := req.Pain.Validate(); err != nil {
			return Result{}, err
		}
	}

	vector := features.Encode(s.schema, req.Symptoms)
	label, err := s.model.Predict(ctx, vector)
	if err != nil {
		return Result{}, fmt.Errorf("predict disease: %w", err)
	}

	res := Result{
		Disease:     label,
		DisplayName: DisplayName(label),
		Symptoms:    vector.Active(),
		Advice:      s.table.Lookup(label),
		Pain:        req.Pain,
		Patient:     req.Patient,
	}

	if err := s.events.Publish(ctx, events.New(events.TypeDiagnosisCompleted, res)); err != nil {
		s.log.WithError(err).Warn("diagnosis event not published")
	}
	return res, nil
}

// DisplayName title-cases a model label for display.
func DisplayName(label string) string {
	// a Caser keeps state between calls, so one per call
	return cases.Title(language.English).String(strings.TrimSpace(label))
}
