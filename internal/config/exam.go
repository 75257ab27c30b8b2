package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

// ExamSettings are the school-wide knobs for exams and grading.
type ExamSettings struct {
	AssessmentTypes       []string
	MinDurationMinutes    int
	MaxDurationMinutes    int
	DefaultDifficulty     models.DifficultyLevel
	GradeBands            models.GradeBands
	ImportRequiredHeaders []string
}

func DefaultExamSettings() ExamSettings {
	return ExamSettings{
		AssessmentTypes:       []string{"ca", "ca1", "ca2", "exam", "test"},
		MinDurationMinutes:    1,
		MaxDurationMinutes:    300,
		DefaultDifficulty:     models.DifficultyMedium,
		GradeBands:            models.DefaultGradeBands(),
		ImportRequiredHeaders: []string{"subject", "class"},
	}
}

func LoadExamSettings() (ExamSettings, error) {
	s := DefaultExamSettings()

	if v := os.Getenv("EXAM_ASSESSMENT_TYPES"); v != "" {
		s.AssessmentTypes = nil
		for _, t := range splitList(v) {
			s.AssessmentTypes = append(s.AssessmentTypes, strings.ToLower(t))
		}
	}
	s.MinDurationMinutes = getEnvInt("EXAM_MIN_DURATION_MINUTES", s.MinDurationMinutes)
	s.MaxDurationMinutes = getEnvInt("EXAM_MAX_DURATION_MINUTES", s.MaxDurationMinutes)

	if v := os.Getenv("EXAM_DEFAULT_DIFFICULTY"); v != "" {
		d, ok := models.ParseDifficulty(v)
		if !ok {
			return s, fmt.Errorf("invalid EXAM_DEFAULT_DIFFICULTY %q", v)
		}
		s.DefaultDifficulty = d
	}

	if v := os.Getenv("EXAM_GRADE_BANDS"); v != "" {
		bands, err := ParseGradeBands(v)
		if err != nil {
			return s, err
		}
		s.GradeBands = bands
	}

	if v, ok := os.LookupEnv("IMPORT_REQUIRED_HEADERS"); ok {
		s.ImportRequiredHeaders = nil
		for _, h := range splitList(v) {
			s.ImportRequiredHeaders = append(s.ImportRequiredHeaders, strings.ToLower(h))
		}
	}

	return s, s.Validate()
}

func (s ExamSettings) Validate() error {
	if s.MinDurationMinutes < 1 {
		return fmt.Errorf("exam min duration must be at least 1 minute")
	}
	if s.MaxDurationMinutes < s.MinDurationMinutes {
		return fmt.Errorf("exam max duration %d is below min duration %d", s.MaxDurationMinutes, s.MinDurationMinutes)
	}
	if len(s.AssessmentTypes) == 0 {
		return fmt.Errorf("at least one assessment type is required")
	}
	if len(s.GradeBands) == 0 {
		return fmt.Errorf("at least one grade band is required")
	}
	return nil
}

func (s ExamSettings) IsAssessmentType(t string) bool {
	t = strings.ToLower(t)
	for _, known := range s.AssessmentTypes {
		if known == t {
			return true
		}
	}
	return false
}

// ParseGradeBands reads "A:70,B:60,F:0" into bands sorted by descending threshold.
func ParseGradeBands(value string) (models.GradeBands, error) {
	var bands models.GradeBands
	for _, part := range splitList(value) {
		grade, min, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("invalid grade band %q: want GRADE:MIN", part)
		}
		threshold, err := strconv.ParseFloat(strings.TrimSpace(min), 64)
		if err != nil || threshold < 0 || threshold > 100 {
			return nil, fmt.Errorf("invalid grade band threshold %q", part)
		}
		bands = append(bands, models.GradeBand{MinPercentage: threshold, Grade: strings.TrimSpace(grade)})
	}
	sort.SliceStable(bands, func(i, j int) bool {
		return bands[i].MinPercentage > bands[j].MinPercentage
	})
	return bands, nil
}
