package session

import (
	"fmt"
	"strings"
)

// Screen: верхнеуровневый экран приложения. Активен ровно один.
type Screen string

const (
	Welcome           Screen = "welcome"
	Identification    Screen = "identification"
	RiskMaps          Screen = "riskmaps"
	SeasonalRiskMap   Screen = "seasonal-risk-map"
	AnimalPresence    Screen = "animal-presence"
	VegetationDensity Screen = "vegetation-density"
	Emergency         Screen = "emergency"
)

var screens = []Screen{Welcome, Identification, RiskMaps, SeasonalRiskMap, AnimalPresence, VegetationDensity, Emergency}

func Screens() []Screen { return append([]Screen(nil), screens...) }

func ParseScreen(s string) (Screen, error) {
	v := Screen(strings.ToLower(strings.TrimSpace(s)))
	for _, sc := range screens {
		if sc == v {
			return sc, nil
		}
	}
	return "", fmt.Errorf("unknown screen %q", s)
}

// Title: заголовок верхней панели.
func (s Screen) Title() string {
	switch s {
	case RiskMaps:
		return "Trail Risk Assessment"
	case SeasonalRiskMap:
		return "Seasonal Tick Risk Map"
	case AnimalPresence:
		return "Animal Presence"
	case VegetationDensity:
		return "Vegetation Density Risk Levels"
	case Emergency:
		return "Emergency Protocols"
	default:
		return "Tick Identification"
	}
}

// IsRiskSubPage: подстраницы оценки маршрута, у них есть кнопка "назад" на riskmaps.
func (s Screen) IsRiskSubPage() bool {
	return s == SeasonalRiskMap || s == AnimalPresence || s == VegetationDensity
}

// NavItem: кнопка нижней навигации.
type NavItem struct {
	Screen Screen
	Label  string
}

var navItems = []NavItem{
	{Screen: RiskMaps, Label: "Trail"},
	{Screen: Identification, Label: "Detect"},
	{Screen: Emergency, Label: "Emergency"},
}

func NavItems() []NavItem { return append([]NavItem(nil), navItems...) }

// Chrome: состояние навигационной обвязки текущего экрана.
type Chrome struct {
	Visible  bool
	Disabled bool // открыт модальный под-сценарий
	Title    string
	Back     Screen // "" если кнопки назад нет
	Active   Screen // подсвеченный пункт навигации, "" если ни один
}

func chromeFor(s Screen, modal bool) Chrome {
	if s == Welcome {
		return Chrome{}
	}
	c := Chrome{Visible: true, Disabled: modal, Title: s.Title()}
	if s.IsRiskSubPage() {
		c.Back = RiskMaps
	}
	for _, it := range navItems {
		if it.Screen == s {
			c.Active = s
		}
	}
	return c
}
