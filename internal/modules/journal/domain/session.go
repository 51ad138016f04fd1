package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	catalog "dansprotocol/internal/modules/catalog/domain"
)

type Status string

const (
	StatusNotStarted      Status = "notStarted"
	StatusPart1           Status = "part1"
	StatusPart2           Status = "part2"
	StatusPart3Synthesis  Status = "part3Synthesis"
	StatusPart3Components Status = "part3Components"
	StatusCompleted       Status = "completed"

	// legacyStatusPart3 predates the synthesis/components split.
	legacyStatusPart3 = "part3"
)

func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusNotStarted, StatusPart1, StatusPart2, StatusPart3Synthesis, StatusPart3Components, StatusCompleted:
		return s, nil
	case legacyStatusPart3:
		return StatusPart3Synthesis, nil
	default:
		return "", fmt.Errorf("unknown session status %q", raw)
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

func (s *Status) UnmarshalText(b []byte) error {
	parsed, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// WakeTime is a wall-clock hour and minute.
type WakeTime struct {
	Hour   int
	Minute int
}

func (w WakeTime) Validate() error {
	if w.Hour < 0 || w.Hour > 23 || w.Minute < 0 || w.Minute > 59 {
		return fmt.Errorf("invalid wake time %02d:%02d", w.Hour, w.Minute)
	}
	return nil
}

// On combines the wake time with the calendar day of date, in date's location.
func (w WakeTime) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), w.Hour, w.Minute, 0, 0, date.Location())
}

type Session struct {
	ID          string           `json:"id"`
	StartDate   time.Time        `json:"start_date"`
	WakeUpTime  time.Time        `json:"wake_up_time"`
	Language    catalog.Language `json:"language"`
	Status      Status           `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt time.Time        `json:"completed_at,omitempty"`
}

// SetStatus moves the session to status; CompletedAt is stamped only the
// first time the session reaches completed.
func (s *Session) SetStatus(status Status, now time.Time) {
	s.Status = status
	if status == StatusCompleted && s.CompletedAt.IsZero() {
		s.CompletedAt = now
	}
}

// After reports whether s is more recent than other by start date, then creation time.
func (s Session) After(other Session) bool {
	if !s.StartDate.Equal(other.StartDate) {
		return s.StartDate.After(other.StartDate)
	}
	return s.CreatedAt.After(other.CreatedAt)
}

type Entry struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"session_id"`
	Part        catalog.Part `json:"part"`
	QuestionKey string       `json:"question_key"`
	Response    string       `json:"response"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Answered reports whether the entry carries a non-blank response.
func (e Entry) Answered() bool {
	return strings.TrimSpace(e.Response) != ""
}

type ComponentField string

const (
	FieldAntiVision      ComponentField = "anti_vision"
	FieldVision          ComponentField = "vision"
	FieldOneYearGoal     ComponentField = "one_year_goal"
	FieldOneMonthProject ComponentField = "one_month_project"
	FieldDailyLevers     ComponentField = "daily_levers"
	FieldConstraints     ComponentField = "constraints"
)

func ParseComponentField(raw string) (ComponentField, error) {
	switch f := ComponentField(strings.TrimSpace(raw)); f {
	case FieldAntiVision, FieldVision, FieldOneYearGoal, FieldOneMonthProject, FieldDailyLevers, FieldConstraints:
		return f, nil
	default:
		return "", fmt.Errorf("unknown component field %q", raw)
	}
}

type LifeGameComponents struct {
	SessionID       string   `json:"session_id"`
	AntiVision      string   `json:"anti_vision"`
	Vision          string   `json:"vision"`
	OneYearGoal     string   `json:"one_year_goal"`
	OneMonthProject string   `json:"one_month_project"`
	DailyLevers     []string `json:"daily_levers"`
	Constraints     string   `json:"constraints"`
}

func (c *LifeGameComponents) Set(field ComponentField, value string) error {
	switch field {
	case FieldAntiVision:
		c.AntiVision = value
	case FieldVision:
		c.Vision = value
	case FieldOneYearGoal:
		c.OneYearGoal = value
	case FieldOneMonthProject:
		c.OneMonthProject = value
	case FieldDailyLevers:
		c.DailyLevers = ParseDailyLevers(value)
	case FieldConstraints:
		c.Constraints = value
	default:
		return fmt.Errorf("unknown component field %q", field)
	}
	return nil
}

// ParseDailyLevers splits on newlines and commas, trimming and dropping empty items.
func ParseDailyLevers(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '\n' || r == ',' || r == '\r'
	})
	levers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			levers = append(levers, p)
		}
	}
	return levers
}

func EncodeLevers(levers []string) (string, error) {
	if levers == nil {
		levers = []string{}
	}
	b, err := json.Marshal(levers)
	if err != nil {
		return "", fmt.Errorf("encode daily levers: %w", err)
	}
	return string(b), nil
}

func DecodeLevers(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	levers := []string{}
	if err := json.Unmarshal([]byte(raw), &levers); err != nil {
		return nil, fmt.Errorf("decode daily levers: %w", err)
	}
	return levers, nil
}
