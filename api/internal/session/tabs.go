package session

import (
	"fmt"

	"ticksafe/api/internal/content"
)

// Tab: вкладка интерфейса экстренного протокола.
type Tab string

const (
	TabRemoval   Tab = "removal"
	TabEmergency Tab = "emergency"
	TabChart     Tab = "tickchart"
)

var tabs = []Tab{TabRemoval, TabEmergency, TabChart}

func Tabs() []Tab { return append([]Tab(nil), tabs...) }

func ParseTab(s string) (Tab, error) {
	for _, t := range tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q", s)
}

func (t Tab) Label() string {
	switch t {
	case TabEmergency:
		return "Emergency"
	case TabChart:
		return "Tick Chart"
	default:
		return "Tick Removal"
	}
}

// Content: какой статический блок показывает вкладка.
func (t Tab) Content() content.ID {
	switch t {
	case TabEmergency:
		return content.Emergency
	case TabChart:
		return content.TickChart
	default:
		return content.Removal
	}
}

// cursor: выбранная вкладка и страница внутри неё.
type cursor struct {
	tab  Tab
	page int
}

func newCursor() cursor { return cursor{tab: TabRemoval, page: 1} }

func (c *cursor) selectTab(t Tab) {
	c.tab = t
	c.page = 1
}

func (c *cursor) pages() int {
	if n := content.Pages(c.tab.Content()); n > 0 {
		return n
	}
	return 1
}

func (c *cursor) next() bool {
	if c.page >= c.pages() {
		return false
	}
	c.page++
	return true
}

func (c *cursor) prev() bool {
	if c.page <= 1 {
		return false
	}
	c.page--
	return true
}
