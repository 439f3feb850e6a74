package nlq

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vidpulse/video-analytics-bot/internal/schema"
)

func TestSystemPromptContainsSchemaAndExamples(t *testing.T) {
	prompt := SystemPrompt(schema.New())

	assert.Contains(t, prompt, "videos")
	assert.Contains(t, prompt, "video_snapshots")
	assert.Contains(t, prompt, "delta_views_count")
	for _, ex := range promptExamples {
		assert.Contains(t, prompt, ex.question)
		assert.Contains(t, prompt, ex.sql)
	}
}

func TestUserPromptPlain(t *testing.T) {
	got := UserPrompt(Request{Question: "Сколько всего видео?"})

	assert.Contains(t, got, "Сколько всего видео?")
	assert.NotContains(t, got, "Предыдущая попытка")
}

func TestUserPromptCarriesPriorErrors(t *testing.T) {
	got := UserPrompt(Request{
		Question: "Сколько всего видео?",
		PriorErrors: []PriorError{
			{SQL: "SELECT * FROM video", Reason: "unknown reference: video"},
		},
	})

	assert.Contains(t, got, "Предыдущая попытка не сработала.")
	assert.Contains(t, got, "SELECT * FROM video")
	assert.Contains(t, got, "unknown reference: video")
}

func TestNormalizeQuestionJoinsDigitGroups(t *testing.T) {
	assert.Equal(t,
		"Сколько видео набрало больше 100000 просмотров?",
		NormalizeQuestion("Сколько видео набрало больше 100 000 просмотров?"))

	assert.Equal(t,
		"больше 1000000",
		NormalizeQuestion("больше 1 000 000"))
}

func TestNormalizeQuestionCollapsesWhitespace(t *testing.T) {
	assert.Equal(t,
		"Сколько всего видео?",
		NormalizeQuestion("  Сколько   всего \n видео?  "))
}

func TestNormalizeQuestionCanonicalizesPhrasings(t *testing.T) {
	assert.Equal(t,
		"сколько видео в базе?",
		NormalizeQuestion("какое количество видео в базе?"))

	assert.Equal(t,
		"Сколько просмотров за всё время?",
		NormalizeQuestion("Сколько просмотров за весь период?"))
}
