// Package saveshare: двухшаговый сценарий "сохранить → поделиться/экспорт".
// Сохранение имитируется задержкой, данные никуда не пишутся.
package saveshare

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Step int

const (
	StepSave  Step = 1
	StepShare Step = 2

	TotalSteps = 2

	DefaultDelay = 2 * time.Second

	Location = "Victoria, Australia"
	Species  = "Tick detected (analysis required)"
	AppName  = "TickSafe Victoria"

	ExportNotice = "PDF export is not available yet. The report would include the image, confidence level, timestamp and recommendations."
	CopiedNotice = "Detection details copied to clipboard!"
	SharedNotice = "Detection shared."
)

var (
	ErrSaveInProgress = errors.New("save already in progress")
	ErrAlreadySaved   = errors.New("detection already saved")
	ErrNotSaved       = errors.New("detection is not saved yet")
	ErrClosed         = errors.New("save/share flow is closed")
	ErrNoShareTarget  = errors.New("no share capability and no clipboard")
)

// Summary: то, что показывается на шаге 1 и уходит в share.
type Summary struct {
	Reference  string
	Date       string // en-AU
	Time       string
	Confidence int
	Location   string
	Species    string
}

// Sharer: системная возможность "поделиться". Может отсутствовать.
type Sharer interface {
	Share(title, text string) error
}

// Clipboard: запасной путь: положить текст туда, откуда пользователь его скопирует.
type Clipboard interface {
	Copy(text string) error
}

type Flow struct {
	mu      sync.Mutex
	step    Step
	saving  bool
	saved   bool
	closed  bool
	delay   time.Duration
	timer   *time.Timer
	summary Summary
}

type Option func(*Flow)

func WithDelay(d time.Duration) Option {
	return func(f *Flow) {
		if d >= 0 {
			f.delay = d
		}
	}
}

// WithClock фиксирует момент, от которого считаются дата и время сводки.
func WithClock(now time.Time) Option {
	return func(f *Flow) { f.summary.Date, f.summary.Time = formatAU(now) }
}

func New(confidence int, opts ...Option) *Flow {
	date, tm := formatAU(time.Now())
	f := &Flow{
		step:  StepSave,
		delay: DefaultDelay,
		summary: Summary{
			Reference:  uuid.NewString(),
			Date:       date,
			Time:       tm,
			Confidence: confidence,
			Location:   Location,
			Species:    Species,
		},
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func formatAU(t time.Time) (string, string) {
	return t.Format("02/01/2006"), t.Format("03:04 pm")
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

func (f *Flow) Saving() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saving
}

func (f *Flow) Saved() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saved
}

func (f *Flow) Summary() Summary {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.summary
}

// Save запускает имитацию сохранения. onSaved вызывается после задержки,
// только если поток ещё открыт. Close отменяет задачу.
func (f *Flow) Save(onSaved func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.closed:
		return ErrClosed
	case f.saved:
		return ErrAlreadySaved
	case f.saving:
		return ErrSaveInProgress
	}
	f.saving = true
	f.timer = time.AfterFunc(f.delay, func() { f.finishSave(onSaved) })
	return nil
}

func (f *Flow) finishSave(onSaved func()) {
	f.mu.Lock()
	if f.closed || !f.saving {
		f.mu.Unlock()
		return
	}
	f.saving = false
	f.saved = true
	f.step = StepShare
	f.timer = nil
	f.mu.Unlock()

	if onSaved != nil {
		onSaved()
	}
}

// Export: экспорт пока только уведомляет пользователя, файл не создаётся.
func (f *Flow) Export() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return "", ErrClosed
	}
	if !f.saved {
		return "", ErrNotSaved
	}
	return ExportNotice, nil
}

// ShareTitle / ShareText: тексты для системного share.
func (f *Flow) ShareTitle() string { return "Tick Detection Result" }

func (f *Flow) ShareText() string {
	s := f.Summary()
	return fmt.Sprintf("Tick detected with %d%% confidence on %s", s.Confidence, s.Date)
}

// ClipboardText: текст для копирования, когда share недоступен.
func (f *Flow) ClipboardText() string {
	s := f.Summary()
	return fmt.Sprintf("Tick detected with %d%% confidence on %s. Detected using %s app.", s.Confidence, s.Date, AppName)
}

// Share отдаёт результат системному share; если его нет или он отказал,
// копирует сводку в clipboard и возвращает уведомление для пользователя.
func (f *Flow) Share(platform Sharer, clip Clipboard) (string, error) {
	f.mu.Lock()
	closed, saved := f.closed, f.saved
	f.mu.Unlock()
	if closed {
		return "", ErrClosed
	}
	if !saved {
		return "", ErrNotSaved
	}

	if platform != nil {
		if err := platform.Share(f.ShareTitle(), f.ShareText()); err == nil {
			return SharedNotice, nil
		}
	}
	if clip == nil {
		return "", ErrNoShareTarget
	}
	if err := clip.Copy(f.ClipboardText()); err != nil {
		return "", fmt.Errorf("copy to clipboard: %w", err)
	}
	return CopiedNotice, nil
}

// Close завершает поток и отменяет незавершённое сохранение. Повторный вызов безопасен.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.saving = false
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}
