// Package session: состояние одного пользователя: текущий экран,
// сессия распознавания и открытый сценарий сохранения.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"ticksafe/api/internal/detect"
	"ticksafe/api/internal/saveshare"
)

// InitialConfidence: значение уверенности до первого ответа сервиса.
const InitialConfidence = 82

const (
	FailedNotice    = "Detection unavailable, try again."
	ImageReadNotice = "Could not read the selected image. Please choose another one."
)

var (
	ErrNavigationLocked = errors.New("navigation is locked while save/share is open")
	ErrAnalysisInFlight = errors.New("analysis already in progress")
	ErrNoImage          = errors.New("no image selected")
	ErrNoResult         = errors.New("no positive detection result")
	ErrNoTabs           = errors.New("tabs are not shown on this screen")
	ErrNoSaveShare      = errors.New("save/share is not open")
	ErrResultShown      = errors.New("result already shown, reset first")
)

// SubState: вложенное состояние экрана распознавания.
type SubState string

const (
	Idle           SubState = "idle"
	ImageSelected  SubState = "image-selected"
	Processing     SubState = "processing"
	ResultPositive SubState = "result-positive"
	ResultNegative SubState = "result-negative"
	Failed         SubState = "failed"
)

// Ticket связывает запущенный анализ с сессией, для которой он запущен.
type Ticket uint64

// detection: DetectionSession: живёт от выбора картинки до reset или ухода с экрана.
type detection struct {
	image      detect.Image
	processing bool
	result     bool
	failed     bool
	confidence int
	count      int
	cur        cursor
}

// Machine: конечный автомат экранов одного чата. Все переходы под mu.
type Machine struct {
	mu sync.Mutex

	screen    Screen
	det       *detection
	emergency cursor
	flow      *saveshare.Flow
	ticket    Ticket
	notice    string

	saveDelay time.Duration
}

type Option func(*Machine)

// WithSaveDelay задаёт задержку имитации сохранения.
func WithSaveDelay(d time.Duration) Option {
	return func(m *Machine) { m.saveDelay = d }
}

func New(opts ...Option) *Machine {
	m := &Machine{
		screen:    Welcome,
		emergency: newCursor(),
		saveDelay: saveshare.DefaultDelay,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// View: снимок состояния для отрисовки.
type View struct {
	Screen     Screen
	Chrome     Chrome
	Sub        SubState
	Image      detect.Image
	Confidence int
	Count      int
	Tab        Tab
	Page       int
	Pages      int
	Notice     string

	SaveShareOpen bool
	SaveStep      saveshare.Step
	Saving        bool
	Summary       saveshare.Summary
}

// HasTabs: показывается ли интерфейс из трёх вкладок.
func (v View) HasTabs() bool {
	if v.SaveShareOpen {
		return false
	}
	return v.Screen == Emergency || (v.Screen == Identification && v.Sub == ResultPositive)
}

func (m *Machine) View() View {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := View{
		Screen:     m.screen,
		Chrome:     chromeFor(m.screen, m.flow != nil),
		Sub:        m.subLocked(),
		Confidence: InitialConfidence,
		Notice:     m.notice,
	}
	if d := m.det; d != nil {
		v.Image = d.image
		v.Confidence = d.confidence
		v.Count = d.count
	}
	if c := m.cursorLocked(); c != nil {
		v.Tab, v.Page, v.Pages = c.tab, c.page, c.pages()
	}
	if m.flow != nil {
		v.SaveShareOpen = true
		v.SaveStep = m.flow.Step()
		v.Saving = m.flow.Saving()
		v.Summary = m.flow.Summary()
	}
	return v
}

func (m *Machine) Screen() Screen {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.screen
}

func (m *Machine) Sub() SubState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subLocked()
}

func (m *Machine) Chrome() Chrome {
	m.mu.Lock()
	defer m.mu.Unlock()
	return chromeFor(m.screen, m.flow != nil)
}

// NavigationLocked: true ровно пока открыт сценарий сохранения.
func (m *Machine) NavigationLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flow != nil
}

func (m *Machine) subLocked() SubState {
	d := m.det
	switch {
	case d == nil:
		return Idle
	case d.processing:
		return Processing
	case d.failed:
		return Failed
	case d.result && d.count > 0:
		return ResultPositive
	case d.result:
		return ResultNegative
	default:
		return ImageSelected
	}
}

// cursorLocked: курсор вкладок, видимый на текущем экране, или nil.
func (m *Machine) cursorLocked() *cursor {
	switch {
	case m.screen == Emergency:
		return &m.emergency
	case m.screen == Identification && m.subLocked() == ResultPositive:
		return &m.det.cur
	}
	return nil
}

// Navigate переключает экран. Уход с экрана распознавания уничтожает сессию.
func (m *Machine) Navigate(to Screen) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.flow != nil {
		return ErrNavigationLocked
	}
	m.notice = ""
	if m.screen == to {
		return nil
	}
	if m.screen == Identification {
		m.dropDetectionLocked()
	}
	if to == Emergency {
		m.emergency = newCursor()
	}
	m.screen = to
	return nil
}

// SelectImage начинает новую сессию распознавания с выбранной картинкой.
func (m *Machine) SelectImage(img detect.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.flow != nil {
		return ErrNavigationLocked
	}
	if m.det != nil && m.det.processing {
		return ErrAnalysisInFlight
	}
	if img == "" {
		return ErrNoImage
	}
	m.screen = Identification
	m.notice = ""
	m.ticket++
	m.det = &detection{image: img, confidence: InitialConfidence, cur: newCursor()}
	return nil
}

// BeginAnalysis переводит сессию в processing и выдаёт билет на результат.
// Повторный вызов до завершения первого возвращает ErrAnalysisInFlight.
func (m *Machine) BeginAnalysis() (Ticket, detect.Image, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.det == nil {
		return 0, "", ErrNoImage
	}
	if m.det.processing {
		return 0, "", ErrAnalysisInFlight
	}
	if m.det.result {
		return 0, "", ErrResultShown
	}
	m.ticket++
	m.det.processing = true
	m.det.failed = false
	m.notice = ""
	return m.ticket, m.det.image, nil
}

// FinishAnalysis применяет результат, если билет ещё актуален.
// Возвращает false для устаревшего результата (после reset или ухода с экрана).
func (m *Machine) FinishAnalysis(t Ticket, out detect.Outcome, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	d := m.det
	if d == nil || t != m.ticket || !d.processing {
		return false
	}
	d.processing = false

	switch {
	case detect.IsImageReadError(err):
		m.det = nil
		m.notice = ImageReadNotice
	case err != nil:
		d.failed = true
		m.notice = FailedNotice
	default:
		d.result = true
		d.confidence = out.Confidence
		d.count = out.Count
		d.cur = newCursor()
	}
	return true
}

// Analyze: BeginAnalysis, один вызов детектора без блокировки, FinishAnalysis.
func (m *Machine) Analyze(ctx context.Context, d detect.Detector) error {
	t, img, err := m.BeginAnalysis()
	if err != nil {
		return err
	}
	out, err := d.Detect(ctx, img)
	m.FinishAnalysis(t, out, err)
	return err
}

// Reset возвращает распознавание в idle из любого под-состояния.
func (m *Machine) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropDetectionLocked()
	m.notice = ""
}

func (m *Machine) dropDetectionLocked() {
	if m.flow != nil {
		m.flow.Close()
		m.flow = nil
	}
	m.det = nil
	m.ticket++
}

func (m *Machine) SelectTab(t Tab) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.cursorLocked()
	if c == nil || m.flow != nil {
		return ErrNoTabs
	}
	c.selectTab(t)
	return nil
}

// NextPage / PrevPage листают страницы активной вкладки. false: листать некуда.
func (m *Machine) NextPage() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.cursorLocked()
	if c == nil || m.flow != nil {
		return false, ErrNoTabs
	}
	return c.next(), nil
}

func (m *Machine) PrevPage() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.cursorLocked()
	if c == nil || m.flow != nil {
		return false, ErrNoTabs
	}
	return c.prev(), nil
}

// CompletePages возвращает активную вкладку на первую страницу.
func (m *Machine) CompletePages() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.cursorLocked()
	if c == nil || m.flow != nil {
		return ErrNoTabs
	}
	c.page = 1
	return nil
}

// OpenSaveShare открывает сценарий сохранения поверх положительного результата.
// Пока он открыт, навигация заблокирована.
func (m *Machine) OpenSaveShare() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.screen != Identification || m.subLocked() != ResultPositive {
		return ErrNoResult
	}
	if m.flow == nil {
		m.flow = saveshare.New(m.det.confidence, saveshare.WithDelay(m.saveDelay))
	}
	return nil
}

// Save запускает имитацию сохранения. onSaved вызывается по таймеру,
// если сценарий к тому моменту не закрыт.
func (m *Machine) Save(onSaved func()) error {
	f, err := m.currentFlow()
	if err != nil {
		return err
	}
	return f.Save(onSaved)
}

func (m *Machine) Export() (string, error) {
	f, err := m.currentFlow()
	if err != nil {
		return "", err
	}
	return f.Export()
}

func (m *Machine) Share(platform saveshare.Sharer, clip saveshare.Clipboard) (string, error) {
	f, err := m.currentFlow()
	if err != nil {
		return "", err
	}
	return f.Share(platform, clip)
}

// CloseSaveShare закрывает сценарий (Complete или Back) и возвращает к результату.
func (m *Machine) CloseSaveShare() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flow == nil {
		return ErrNoSaveShare
	}
	m.flow.Close()
	m.flow = nil
	return nil
}

func (m *Machine) currentFlow() (*saveshare.Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flow == nil {
		return nil, ErrNoSaveShare
	}
	return m.flow, nil
}

// Close освобождает таймеры (при удалении сессии из Store).
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.flow != nil {
		m.flow.Close()
		m.flow = nil
	}
}
