// Package vision: движки, которые отвечают на вопрос "есть ли на фото клещ".
package vision

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// Prompt: вопрос модели. Ответ ожидается одним словом.
const Prompt = "Please provide a quick and brief response. Is this image a tick? Only answer with 'Yes', 'No', or 'Uncertain'"

type Verdict string

const (
	VerdictYes       Verdict = "yes"
	VerdictNo        Verdict = "no"
	VerdictUncertain Verdict = "uncertain"
)

// Classification: ответ движка: разобранный вердикт и сырой текст модели.
type Classification struct {
	Verdict Verdict
	Raw     string
}

type Engine interface {
	Name() string
	GetModel() string
	Classify(ctx context.Context, img []byte, mime string) (Classification, error)
}

var ErrUnknownEngine = errors.New("unknown vision engine; use 'azure' or 'gemini'")

type Engines struct {
	Azure  Engine
	Gemini Engine
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	var eng Engine
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "azure", "gpt", "openai":
		eng = e.Azure
	case "gemini":
		eng = e.Gemini
	}
	if eng == nil {
		return nil, ErrUnknownEngine
	}
	return eng, nil
}

// hedges: оговорки, при которых ответ считается неуверенным, даже если начинается с yes/no.
var hedges = []string{"uncertain", "unsure", "not sure", "not certain", "can't tell", "cannot tell", "maybe", "possibly", "unclear"}

// ParseVerdict выделяет вердикт из свободного текста модели.
// Решает первое слово целиком: "No" это no, а "Not sure" и "Nope" нет.
// Всё, что не удалось узнать, считается неуверенным ответом.
func ParseVerdict(text string) Verdict {
	s := strings.ToLower(strings.TrimSpace(text))
	for _, h := range hedges {
		if strings.Contains(s, h) {
			return VerdictUncertain
		}
	}
	words := strings.FieldsFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
	if len(words) == 0 {
		return VerdictUncertain
	}
	switch words[0] {
	case "yes":
		return VerdictYes
	case "no":
		return VerdictNo
	default:
		return VerdictUncertain
	}
}

const (
	positiveText  = "这是蜱虫"
	uncertainText = "这可能是蜱虫"
	negativeText  = "这不是蜱虫"
)

// Result переводит вердикт в текстовый контракт клиента: отрицательный ответ
// начинается с негативного маркера, остальные его не содержат.
// Неуверенный ответ клиент показывает как найденного клеща.
func Result(c Classification, negativeMarker string) string {
	switch c.Verdict {
	case VerdictNo:
		return negativeMarker + "," + negativeText
	case VerdictYes:
		return positiveText
	default:
		return uncertainText
	}
}
