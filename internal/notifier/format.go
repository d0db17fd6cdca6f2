package notifier

import (
	"html"
	"strconv"
	"strings"

	"github.com/fermaport/notifier/internal/model"
)

// Message is a formatted notification ready for delivery. Text is
// Telegram HTML; Link, when set, becomes an inline button.
type Message struct {
	Text string
	Link string
}

const (
	portalLabel          = "Фермерский портал"
	unknownProducerLabel = "Производитель"
)

// FormatUpdate renders one content update into a notification. Pure:
// the producer display name is resolved by the caller, and identical
// inputs always yield identical output.
func FormatUpdate(u *model.ContentUpdate, producerName, baseURL string) Message {
	var b strings.Builder

	writeHeader(&b, u.ProducerScoped(), producerName)

	switch u.EntityType {
	case model.EntityProduct:
		writeProduct(&b, u)
	case model.EntityNews:
		b.WriteString("📰 <b>Новость</b>\n")
		b.WriteString(html.EscapeString(title(u.NewData)))
	case model.EntityPromotion:
		b.WriteString("🔥 <b>Акция</b>\n")
		b.WriteString(html.EscapeString(title(u.NewData)))
	case model.EntityEvent:
		b.WriteString("📅 <b>Событие</b>\n")
		b.WriteString(html.EscapeString(title(u.NewData)))
	default:
		b.WriteString("📢 <b>" + html.EscapeString(string(u.EntityType)) + "</b>\n")
		b.WriteString(html.EscapeString(title(u.NewData)))
	}

	link := DeepLink(baseURL, u.EntityType, u.EntityID)
	if link != "" {
		b.WriteString("\n\n<a href=\"" + link + "\">Открыть на портале</a>")
	}

	return Message{Text: b.String(), Link: link}
}

// FormatDirect renders a pre-composed notification (the direct and
// webhook entry points carry their own title and body).
func FormatDirect(producerName, titleText, body, link string) Message {
	var b strings.Builder

	writeHeader(&b, producerName != "", producerName)

	b.WriteString("<b>" + html.EscapeString(titleText) + "</b>\n")
	b.WriteString(html.EscapeString(body))

	if link != "" {
		b.WriteString("\n\n<a href=\"" + link + "\">Открыть на портале</a>")
	}

	return Message{Text: b.String(), Link: link}
}

// DeepLink builds the portal page URL for an entity, or "" for types
// that have no public page.
func DeepLink(baseURL string, t model.EntityType, entityID string) string {
	if baseURL == "" || entityID == "" {
		return ""
	}
	base := strings.TrimRight(baseURL, "/")
	switch t {
	case model.EntityProduct:
		return base + "/dashboard/product/" + entityID
	case model.EntityNews:
		return base + "/news/" + entityID
	case model.EntityPromotion:
		return base + "/promotions/" + entityID
	}
	return ""
}

func writeHeader(b *strings.Builder, producerScoped bool, producerName string) {
	if producerScoped {
		name := producerName
		if name == "" {
			name = unknownProducerLabel
		}
		b.WriteString("<b>" + html.EscapeString(name) + "</b>\n\n")
		return
	}
	b.WriteString("<b>" + portalLabel + "</b>\n\n")
}

func writeProduct(b *strings.Builder, u *model.ContentUpdate) {
	name := u.NewData.String("name")
	price, hasPrice := u.NewData.Number("price")

	if u.Action == model.ActionUpdate && hasPrice {
		b.WriteString("💰 <b>Новая цена</b>\n")
	} else {
		b.WriteString("🆕 <b>Новый товар</b>\n")
	}

	b.WriteString(html.EscapeString(name))
	if hasPrice {
		b.WriteString(" — " + FormatPrice(price) + " ₽")
	}
}

func title(d model.UpdateData) string {
	if t := d.String("title"); t != "" {
		return t
	}
	return d.String("name")
}

// FormatPrice renders a price without a spurious fractional part:
// 500 stays "500", 99.9 stays "99.9".
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}
