package app

import (
	"math/rand"
	"sync"
)

// Message is a notification template.
type Message struct {
	Title string
	Body  string
}

// StudyMessages is the fixed set study reminders are drawn from.
var StudyMessages = []Message{
	{Title: "⏳ Time to Study!", Body: "Stay consistent and keep your streak alive!"},
	{Title: "📚 Quick Review Time", Body: "Open your flashcards for a 5-minute session!"},
	{Title: "🔥 Keep Going!", Body: "You're building a strong habit — continue now!"},
	{Title: "💡 Study Tip", Body: "Short study bursts beat long cramming sessions!"},
	{Title: "🧠 Strengthen Your Memory", Body: "A quick revision goes a long way!"},
}

// StreakMessage is the content of the daily streak alert.
var StreakMessage = Message{
	Title: "🔥 Don’t break your streak",
	Body:  "Study once today to keep your progress going!",
}

// MessagePicker selects one message out of a non-empty set.
type MessagePicker interface {
	Pick(messages []Message) Message
}

// RandomPicker picks uniformly at random. Safe for concurrent use.
type RandomPicker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewRandomPicker returns a picker whose sequence is fully determined by seed.
func NewRandomPicker(seed int64) *RandomPicker {
	return &RandomPicker{rnd: rand.New(rand.NewSource(seed))}
}

func (p *RandomPicker) Pick(messages []Message) Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return messages[p.rnd.Intn(len(messages))]
}

// FixedPicker always returns the message at Index.
type FixedPicker struct {
	Index int
}

func (p FixedPicker) Pick(messages []Message) Message {
	return messages[p.Index%len(messages)]
}
