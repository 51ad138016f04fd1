package dto

import (
	"fmt"
	"strings"
	"time"

	catalog "dansprotocol/internal/modules/catalog/domain"
	journal "dansprotocol/internal/modules/journal/domain"
	"dansprotocol/internal/modules/protocol/domain"
)

type EntryView struct {
	QuestionID string
	Part       int
	Response   string
	CreatedAt  time.Time
}

type SessionView struct {
	ID          string
	StartDate   string
	WakeUp      string
	Language    string
	Status      string
	CompletedAt string
}

type QuestionView struct {
	ID   string
	Part int
	Type string
	Text string
}

type ComponentsView struct {
	AntiVision      string
	Vision          string
	OneYearGoal     string
	OneMonthProject string
	DailyLevers     []string
	Constraints     string
}

type NotificationView struct {
	ID         string
	Kind       string
	FireAt     time.Time
	QuestionID string
}

// QuestionFilter selects catalog questions and the language to show them in.
type QuestionFilter struct {
	Part     catalog.Part
	Type     catalog.Type
	Language catalog.Language
}

type ComponentInput struct {
	Field journal.ComponentField
	Value string
}

func NewEntryViews(entries []journal.Entry) []EntryView {
	out := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, EntryView{QuestionID: e.QuestionKey, Part: int(e.Part), Response: e.Response, CreatedAt: e.CreatedAt})
	}
	return out
}

func NewSessionView(s journal.Session) SessionView {
	v := SessionView{
		ID:        s.ID,
		StartDate: s.StartDate.Format("2006-01-02"),
		WakeUp:    s.WakeUpTime.Format("15:04"),
		Language:  string(s.Language),
		Status:    string(s.Status),
	}
	if !s.CompletedAt.IsZero() {
		v.CompletedAt = s.CompletedAt.Format("2006-01-02 15:04")
	}
	return v
}

func NewSessionViews(sessions []journal.Session) []SessionView {
	out := make([]SessionView, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, NewSessionView(s))
	}
	return out
}

func NewQuestionViews(questions []catalog.Question, lang catalog.Language) []QuestionView {
	out := make([]QuestionView, 0, len(questions))
	for _, q := range questions {
		out = append(out, QuestionView{ID: q.ID, Part: int(q.Part), Type: string(q.Type), Text: q.Text(lang)})
	}
	return out
}

func NewComponentsView(c journal.LifeGameComponents) ComponentsView {
	return ComponentsView{
		AntiVision:      c.AntiVision,
		Vision:          c.Vision,
		OneYearGoal:     c.OneYearGoal,
		OneMonthProject: c.OneMonthProject,
		DailyLevers:     append([]string(nil), c.DailyLevers...),
		Constraints:     c.Constraints,
	}
}

func NewNotificationViews(ns []domain.Notification) []NotificationView {
	out := make([]NotificationView, 0, len(ns))
	for _, n := range ns {
		out = append(out, NotificationView{ID: n.ID, Kind: string(n.Kind), FireAt: n.FireAt, QuestionID: n.QuestionID})
	}
	return out
}

// ParseOnboardingInput reads a YYYY-MM-DD date (empty means today), an HH:MM
// wake time and a language code.
func ParseOnboardingInput(date, wake, lang string, today time.Time) (OnboardingInput, error) {
	start := today
	if strings.TrimSpace(date) != "" {
		d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), today.Location())
		if err != nil {
			return OnboardingInput{}, fmt.Errorf("invalid start date %q: %w", date, err)
		}
		start = d
	}
	var w journal.WakeTime
	if _, err := fmt.Sscanf(strings.TrimSpace(wake), "%d:%d", &w.Hour, &w.Minute); err != nil {
		return OnboardingInput{}, fmt.Errorf("invalid wake time %q: %w", wake, err)
	}
	if err := w.Validate(); err != nil {
		return OnboardingInput{}, err
	}
	language, err := catalog.ParseLanguage(lang)
	if err != nil {
		return OnboardingInput{}, err
	}
	return OnboardingInput{StartDate: start, Wake: w, Language: language}, nil
}

func ParseQuestionFilter(part int, typ, lang string) (QuestionFilter, error) {
	f := QuestionFilter{Part: catalog.Part(part), Type: catalog.Type(strings.TrimSpace(typ)), Language: catalog.English}
	if err := f.Part.Validate(); err != nil {
		return QuestionFilter{}, err
	}
	if err := f.Type.Validate(); err != nil {
		return QuestionFilter{}, err
	}
	if strings.TrimSpace(lang) != "" {
		language, err := catalog.ParseLanguage(lang)
		if err != nil {
			return QuestionFilter{}, err
		}
		f.Language = language
	}
	return f, nil
}

func ParseComponentInput(field, value string) (ComponentInput, error) {
	f, err := journal.ParseComponentField(field)
	if err != nil {
		return ComponentInput{}, err
	}
	return ComponentInput{Field: f, Value: value}, nil
}
