package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/kirillkom/exam-audit-engine/internal/core/domain"
)

// JSONLoader reads the question dataset from a JSON file. Both a bare array
// and a {"questions": [...]} wrapper are accepted.
type JSONLoader struct{}

func NewJSONLoader() *JSONLoader { return &JSONLoader{} }

type answerDTO struct {
	AnswerIndex   *int   `json:"answerIndex"`
	ExternalIndex *int   `json:"externalIndex"`
	Position      *int   `json:"position"`
	Index         *int   `json:"index"`
	Text          string `json:"text"`
	IsCorrect     bool   `json:"isCorrect"`
}

// externalIndex resolves the answer's stable 1-based index from whichever
// key the dataset generation carried; answers without a usable index fall
// back to their slice position + 1.
func (a answerDTO) externalIndex(position int) int {
	for _, candidate := range []*int{a.AnswerIndex, a.ExternalIndex, a.Position, a.Index} {
		if candidate != nil && *candidate > 0 {
			return *candidate
		}
	}
	return position + 1
}

type maintenanceDTO struct {
	NeedsMaintenance bool     `json:"needsMaintenance"`
	Severity         *int     `json:"severity"`
	Reasons          []string `json:"reasons"`
}

type abstractionDTO struct {
	Summary string `json:"summary"`
}

type auditDTO struct {
	Status      string          `json:"status"`
	Confidence  float64         `json:"confidence"`
	Maintenance *maintenanceDTO `json:"maintenance"`
	Abstraction *abstractionDTO `json:"questionAbstraction"`
}

type questionDTO struct {
	ID              string          `json:"id"`
	QuestionText    string          `json:"questionText"`
	ExplanationText string          `json:"explanationText"`
	Answers         []answerDTO     `json:"answers"`
	CorrectIndices  []int           `json:"correctIndices"`
	ExamYear        json.RawMessage `json:"examYear"` // datasets carry both "2019" and 2019
	ImageFiles      []string        `json:"imageFiles"`
	ImageURLs       []string        `json:"imageUrls"`
	Audit           *auditDTO       `json:"aiAudit"`
}

func (l *JSONLoader) LoadQuestions(ctx context.Context, path string) ([]domain.Question, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}

	var dtos []questionDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		var wrapper struct {
			Questions []questionDTO `json:"questions"`
		}
		if werr := json.Unmarshal(raw, &wrapper); werr != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse dataset",
				fmt.Errorf("%s is neither a question array nor a questions wrapper: %w", path, err))
		}
		dtos = wrapper.Questions
	}

	questions := make([]domain.Question, 0, len(dtos))
	for i, dto := range dtos {
		if strings.TrimSpace(dto.ID) == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "parse dataset",
				fmt.Errorf("question at position %d has no id", i))
		}
		questions = append(questions, dto.toDomain())
	}
	return questions, nil
}

func (dto questionDTO) toDomain() domain.Question {
	answers := make([]domain.Answer, 0, len(dto.Answers))
	for i, a := range dto.Answers {
		answers = append(answers, domain.Answer{
			ExternalIndex: a.externalIndex(i),
			Text:          a.Text,
			IsCorrect:     a.IsCorrect,
		})
	}

	q := domain.Question{
		ID:              dto.ID,
		QuestionText:    dto.QuestionText,
		ExplanationText: dto.ExplanationText,
		Answers:         answers,
		CorrectIndices:  dto.CorrectIndices,
		ExamYear:        yearString(dto.ExamYear),
		ImageRefs:       trimmedNonEmpty(dto.ImageFiles),
		ImageURLs:       trimmedNonEmpty(dto.ImageURLs),
	}
	if dto.Audit != nil {
		prior := &domain.PriorAudit{
			Status:     domain.AuditStatus(dto.Audit.Status),
			Confidence: dto.Audit.Confidence,
		}
		if m := dto.Audit.Maintenance; m != nil {
			severity := 1
			if m.Severity != nil {
				severity = *m.Severity
			}
			prior.Maintenance = domain.Maintenance{
				NeedsMaintenance: m.NeedsMaintenance,
				Severity:         severity,
				Reasons:          m.Reasons,
			}
		}
		if a := dto.Audit.Abstraction; a != nil {
			prior.AbstractionSummary = strings.TrimSpace(a.Summary)
		}
		q.PriorAudit = prior
	}
	return q
}

func yearString(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	s = strings.Trim(s, `"`)
	if s == "null" {
		return ""
	}
	return s
}

func trimmedNonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if t := strings.TrimSpace(s); t != "" {
			out = append(out, t)
		}
	}
	return out
}
