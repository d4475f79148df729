package content

// DialTarget: фиксированный номер для звонка через системную звонилку.
type DialTarget struct {
	Key     string
	Label   string
	Number  string // для tel:
	Display string
}

var dialTargets = []DialTarget{
	{Key: "emergency", Label: "Call 000 - Emergency", Number: "000", Display: "000"},
	{Key: "nurse", Label: "Call 1300 60 60 24", Number: "1300606024", Display: "1300 60 60 24"},
	{Key: "poisons", Label: "Call 13 11 26", Number: "131126", Display: "13 11 26"},
}

func Dial(key string) (DialTarget, bool) {
	for _, d := range dialTargets {
		if d.Key == key {
			return d, true
		}
	}
	return DialTarget{}, false
}

// TelURI: ссылка для системной звонилки.
func (d DialTarget) TelURI() string { return "tel:" + d.Number }
