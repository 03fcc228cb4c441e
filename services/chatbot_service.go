package services

import (
	"context"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/schollz/closestmatch"

	"fitTrackAPI/internal/apperr"
	"fitTrackAPI/internal/llm"
	"fitTrackAPI/internal/types/chat"
)

const (
	replyDiet     = "Aim for a balanced plate: lean protein, complex carbs, healthy fats, and plenty of veggies. Track hydration too!"
	replyWorkout  = "Try alternating push/pull/legs across the week with 48h rest per muscle group. Progressive overload is key."
	replySchedule = "A solid weekly plan: 3 strength days, 2 cardio days, 2 rest/recovery days with mobility."
	replyCalories = "A rough TDEE estimate can guide your intake. Consider a 300-500 kcal deficit for fat loss, surplus for muscle gain."
	replyDefault  = "I'm here to help with fitness, workouts, and nutrition. Ask me about training splits, diet tips, or recovery!"

	// fuzzyThreshold is the share of a word's bigrams a keyword must contain.
	fuzzyThreshold = 0.6
	minFuzzyLength = 4
)

type replyRule struct {
	keywords []string
	reply    string
}

// Rules are checked in order; the first topic mentioned wins.
var replyRules = []replyRule{
	{keywords: []string{"diet", "nutrition"}, reply: replyDiet},
	{keywords: []string{"workout", "exercise"}, reply: replyWorkout},
	{keywords: []string{"schedule", "plan"}, reply: replySchedule},
	{keywords: []string{"calorie", "calories"}, reply: replyCalories},
}

// RuleResponder answers from the keyword rules, tolerating small typos.
type RuleResponder struct {
	matcher *closestmatch.ClosestMatch
	topic   map[string]int
}

func NewRuleResponder() *RuleResponder {
	keywords := []string{}
	topic := map[string]int{}
	for i, rule := range replyRules {
		for _, kw := range rule.keywords {
			keywords = append(keywords, kw)
			topic[kw] = i
		}
	}
	return &RuleResponder{
		matcher: closestmatch.New(keywords, []int{2}),
		topic:   topic,
	}
}

func (r *RuleResponder) Reply(text string) string {
	t := strings.ToLower(text)
	for _, rule := range replyRules {
		for _, kw := range rule.keywords {
			if strings.Contains(t, kw) {
				return rule.reply
			}
		}
	}

	best := -1
	for _, word := range strings.FieldsFunc(t, func(c rune) bool { return !unicode.IsLetter(c) }) {
		if len(word) < minFuzzyLength {
			continue
		}
		candidate := r.matcher.Closest(word)
		if candidate == "" || bigramOverlap(word, candidate) < fuzzyThreshold {
			continue
		}
		if i := r.topic[candidate]; best == -1 || i < best {
			best = i
		}
	}
	if best >= 0 {
		return replyRules[best].reply
	}
	return replyDefault
}

// bigramOverlap is the share of the bigrams of word found in candidate.
func bigramOverlap(word, candidate string) float64 {
	grams := map[string]bool{}
	for i := 0; i+2 <= len(candidate); i++ {
		grams[candidate[i:i+2]] = true
	}
	total, hits := 0, 0
	for i := 0; i+2 <= len(word); i++ {
		total++
		if grams[word[i:i+2]] {
			hits++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

type BotStore interface {
	BotHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*chat.BotMessage, error)
	SaveBotMessage(ctx context.Context, m *chat.BotMessage) error
}

type ChatbotService struct {
	store BotStore
	rules *RuleResponder
	model llm.LLM
}

// NewChatbotService answers from model when it is non-nil, falling back to
// the keyword rules.
func NewChatbotService(store BotStore, model llm.LLM) *ChatbotService {
	return &ChatbotService{store: store, rules: NewRuleResponder(), model: model}
}

func (s *ChatbotService) History(ctx context.Context, userID uuid.UUID) ([]*chat.BotMessage, error) {
	messages, err := s.store.BotHistory(ctx, userID, chat.BotHistoryLimit)
	if err != nil {
		return nil, apperr.Internal("failed to get chatbot history", err)
	}
	return messages, nil
}

func (s *ChatbotService) SendMessage(ctx context.Context, userID uuid.UUID, text string) (*chat.BotExchange, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Message text is required", apperr.FieldError{Field: "text", Message: "required"})
	}

	userMsg := &chat.BotMessage{ID: uuid.New(), UserID: userID, Role: chat.BotRoleUser, Text: text, CreatedAt: time.Now().UTC()}
	if err := s.store.SaveBotMessage(ctx, userMsg); err != nil {
		return nil, apperr.Internal("failed to save chatbot message", err)
	}

	assistantMsg := &chat.BotMessage{
		ID:        uuid.New(),
		UserID:    userID,
		Role:      chat.BotRoleAssistant,
		Text:      s.reply(ctx, text),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.SaveBotMessage(ctx, assistantMsg); err != nil {
		return nil, apperr.Internal("failed to save chatbot reply", err)
	}

	return &chat.BotExchange{User: userMsg, Assistant: assistantMsg}, nil
}

func (s *ChatbotService) reply(ctx context.Context, text string) string {
	if s.model == nil {
		return s.rules.Reply(text)
	}

	prompt := "You are a friendly fitness assistant. Answer briefly about training, nutrition or recovery.\n\nUser: " + text + "\nAssistant:"
	answer, err := s.model.GenerateResponse(ctx, prompt)
	answer = strings.TrimSpace(answer)
	if err != nil || answer == "" {
		if err != nil {
			log.Printf("Chatbot: LLM failed, using rules: %v", err)
		}
		return s.rules.Reply(text)
	}
	return answer
}
