package telegram

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ticksafe/api/internal/content"
	"ticksafe/api/internal/saveshare"
	"ticksafe/api/internal/session"
)

// screen: готовое к отправке сообщение экрана.
type screen struct {
	Text     string
	Keyboard tgbotapi.InlineKeyboardMarkup
}

func riskPageContent(s session.Screen) content.ID {
	switch s {
	case session.SeasonalRiskMap:
		return content.Seasonal
	case session.AnimalPresence:
		return content.Animals
	case session.VegetationDensity:
		return content.Vegetation
	default:
		return content.RiskMaps
	}
}

// buildScreen: чистая функция от снимка состояния.
func buildScreen(v session.View) (screen, error) {
	var b strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton

	if v.Chrome.Visible {
		fmt.Fprintf(&b, "🔹 <b>%s</b>\n", esc(v.Chrome.Title))
	}

	switch v.Screen {
	case session.Welcome:
		p, err := content.Render(content.Welcome, 1)
		if err != nil {
			return screen{}, err
		}
		renderPage(&b, p, true)
		rows = append(rows, row(btn("Get Started", cbNav+string(session.Identification))))

	case session.RiskMaps:
		p, err := content.Render(content.RiskMaps, 1)
		if err != nil {
			return screen{}, err
		}
		renderPage(&b, p, false)
		for _, s := range []session.Screen{session.SeasonalRiskMap, session.AnimalPresence, session.VegetationDensity} {
			rows = append(rows, row(btn(s.Title()+" →", cbNav+string(s))))
		}

	case session.SeasonalRiskMap, session.AnimalPresence, session.VegetationDensity:
		p, err := content.Render(riskPageContent(v.Screen), 1)
		if err != nil {
			return screen{}, err
		}
		renderPage(&b, p, false)
		rows = append(rows, row(btn("← Back", cbNav+string(v.Chrome.Back))))

	case session.Emergency:
		r, err := tabScreen(&b, v)
		if err != nil {
			return screen{}, err
		}
		rows = append(rows, r...)

	case session.Identification:
		r, err := identificationScreen(&b, v)
		if err != nil {
			return screen{}, err
		}
		rows = append(rows, r...)
	}

	if v.Notice != "" {
		b.WriteString("\n⚠️ <i>" + esc(v.Notice) + "</i>")
	}
	if v.Chrome.Visible {
		rows = append(rows, navRow(v.Chrome))
	}
	return screen{Text: strings.TrimSpace(b.String()), Keyboard: tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}}, nil
}

// tabScreen: три вкладки экстренного протокола со страницами.
func tabScreen(b *strings.Builder, v session.View) ([][]tgbotapi.InlineKeyboardButton, error) {
	p, err := content.Render(v.Tab.Content(), v.Page)
	if err != nil {
		return nil, err
	}
	b.WriteString("\n")
	renderPage(b, p, true)

	rows := [][]tgbotapi.InlineKeyboardButton{tabRow(v.Tab)}
	if r := dialRow(p.Dial); r != nil {
		rows = append(rows, r)
	}
	if r := pageRow(v.Page, v.Pages); r != nil {
		rows = append(rows, r)
	}
	return rows, nil
}

func identificationScreen(b *strings.Builder, v session.View) ([][]tgbotapi.InlineKeyboardButton, error) {
	if v.SaveShareOpen {
		return saveShareScreen(b, v), nil
	}
	switch v.Sub {
	case session.ImageSelected:
		b.WriteString("\n📷 Image selected\n<b>Ready for Analysis</b>")
		return [][]tgbotapi.InlineKeyboardButton{
			row(btn("Start AI Analysis", cbAnalyze)),
			row(btn("Choose Different Image", cbReset)),
		}, nil

	case session.Processing:
		b.WriteString("\n⏳ <b>Analyzing Image</b>\nOur AI is identifying potential ticks and assessing risk levels...")
		return nil, nil

	case session.Failed:
		b.WriteString("\n❌ <b>Detection unavailable</b>\nThe detection service could not be reached. Your image is kept, try again.")
		return [][]tgbotapi.InlineKeyboardButton{
			row(btn("Try Again", cbAnalyze)),
			row(btn("Choose Different Image", cbReset)),
		}, nil

	case session.ResultNegative:
		b.WriteString("\n✅ <b>No ticks detected</b>\n")
		fmt.Fprintf(b, "%d%% confidence", v.Confidence)
		return [][]tgbotapi.InlineKeyboardButton{
			row(btn("Analyze New Image", cbReset)),
		}, nil

	case session.ResultPositive:
		b.WriteString("\n<b>Emergency Protocols - Tick detected</b>\n")
		fmt.Fprintf(b, "%d%% confidence\n", v.Confidence)
		rows := [][]tgbotapi.InlineKeyboardButton{
			row(btn("Analyze New", cbReset), btn("Save & Share", cbSSOpen)),
		}
		r, err := tabScreen(b, v)
		if err != nil {
			return nil, err
		}
		return append(rows, r...), nil
	}

	// idle
	b.WriteString("\n<b>AI Tick Detection</b>\n\n")
	b.WriteString("<b>Photo Guidelines</b>\nFor best results, ensure the image is clear, well-lit, and the tick is visible.\n\n")
	b.WriteString("Send a photo (or an image file) to start.")
	return nil, nil
}

func saveShareScreen(b *strings.Builder, v session.View) [][]tgbotapi.InlineKeyboardButton {
	fmt.Fprintf(b, "\nStep %d of %d\n", v.SaveStep, saveshare.TotalSteps)
	s := v.Summary

	if v.SaveStep == saveshare.StepShare {
		b.WriteString("\n✅ <b>Detection Saved</b>\n\n<b>Share &amp; Export</b>\n")
		fmt.Fprintf(b, "Reference: <code>%s</code>\n", esc(s.Reference))
		return [][]tgbotapi.InlineKeyboardButton{
			row(btn("Export as PDF", cbSSExport)),
			row(btn("Share Detection", cbSSShare)),
			row(btn("Complete", cbSSClose)),
		}
	}

	b.WriteString("\n<b>Save Detection</b>\nSave this detection for your records\n\n")
	fmt.Fprintf(b, "Date: %s\nTime: %s\nConfidence: <b>%d%%</b>\nLocation: %s\nSpecies: %s\n",
		esc(s.Date), esc(s.Time), s.Confidence, esc(s.Location), esc(s.Species))

	if v.Saving {
		b.WriteString("\n⏳ Saving...")
		return [][]tgbotapi.InlineKeyboardButton{row(btn("← Back", cbSSClose))}
	}
	return [][]tgbotapi.InlineKeyboardButton{
		row(btn("💾 Save Detection", cbSSSave)),
		row(btn("← Back", cbSSClose)),
	}
}
