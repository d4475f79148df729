// Package content хранит статические тексты приложения: карты риска, переносчиков,
// растительность, удаление клеща, экстренные протоколы и таблицу клещей.
// Один источник для всех экранов, которые их показывают.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

type ID string

const (
	Welcome    ID = "welcome"
	RiskMaps   ID = "riskmaps"
	Seasonal   ID = "seasonal"
	Animals    ID = "animals"
	Vegetation ID = "vegetation"
	Removal    ID = "removal"
	Emergency  ID = "emergency"
	TickChart  ID = "tickchart"
)

var ErrUnknownContent = errors.New("unknown content id")

type Fact struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

type Section struct {
	Heading   string   `yaml:"heading"`
	Subtitle  string   `yaml:"subtitle"`
	Badge     string   `yaml:"badge"`
	Text      string   `yaml:"text"`
	Media     string   `yaml:"media"`
	ListTitle string   `yaml:"list_title"`
	Items     []string `yaml:"items"`
	Facts     []Fact   `yaml:"facts"`
}

type Page struct {
	Title    string    `yaml:"title"`
	Footer   string    `yaml:"footer"`
	Media    string    `yaml:"media"`
	Dial     string    `yaml:"dial"` // ключ DialTarget
	Sections []Section `yaml:"sections"`

	// Номер страницы (1-based) и всего страниц; заполняется в Render.
	Number int `yaml:"-"`
	Total  int `yaml:"-"`
}

//go:embed content.yaml
var raw []byte

var (
	loadOnce sync.Once
	library  map[ID][]Page
	loadErr  error
)

func load() (map[ID][]Page, error) {
	loadOnce.Do(func() {
		var m map[ID][]Page
		if err := yaml.Unmarshal(raw, &m); err != nil {
			loadErr = fmt.Errorf("content: bad yaml: %w", err)
			return
		}
		library = m
	})
	return library, loadErr
}

// Render возвращает страницу page (1-based) указанного контента.
// Номер вне диапазона прижимается к ближайшей странице.
func Render(id ID, page int) (Page, error) {
	lib, err := load()
	if err != nil {
		return Page{}, err
	}
	pages, ok := lib[id]
	if !ok || len(pages) == 0 {
		return Page{}, fmt.Errorf("%w: %q", ErrUnknownContent, id)
	}
	if page < 1 {
		page = 1
	}
	if page > len(pages) {
		page = len(pages)
	}
	p := pages[page-1]
	p.Number = page
	p.Total = len(pages)
	return p, nil
}

// Pages: количество страниц контента (0 для неизвестного id).
func Pages(id ID) int {
	lib, err := load()
	if err != nil {
		return 0
	}
	return len(lib[id])
}
