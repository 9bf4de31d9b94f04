package notionsync

import (
	"fmt"
	"strings"
	"time"

	"github.com/dvloznov/vaultmind/internal/alerts"
	"github.com/jomei/notionapi"
)

// Property names in the alerts database.
const (
	PropTitle    = "Alert"
	PropKey      = "Alert Key"
	PropKind     = "Kind"
	PropStatus   = "Status"
	PropAmount   = "Amount"
	PropCategory = "Category"
	PropMerchant = "Merchant"
	PropRaised   = "Raised"
)

// Alert page statuses.
const (
	StatusOpen     = "Open"
	StatusResolved = "Resolved"
)

// AlertKey identifies an alert across evaluations. A weekly spike is keyed
// by the ISO week it was raised in, a top category by its name and a
// duplicate subscription by merchant and day.
func AlertKey(a alerts.Alert, now time.Time) string {
	switch a.Kind {
	case alerts.KindWeeklySpike:
		year, week := now.ISOWeek()
		return fmt.Sprintf("%s|%d-W%02d", a.Kind, year, week)
	case alerts.KindTopCategory:
		return fmt.Sprintf("%s|%s", a.Kind, strings.ToLower(a.Category))
	case alerts.KindDuplicateSubscription:
		return fmt.Sprintf("%s|%s|%s", a.Kind, a.Merchant, a.Day)
	default:
		return fmt.Sprintf("%s|%s", a.Kind, a.Message)
	}
}

// AlertToNotionProperties converts an alert into properties for a new page.
func AlertToNotionProperties(a alerts.Alert, key string, raised time.Time) notionapi.Properties {
	props := notionapi.Properties{
		PropTitle: notionapi.TitleProperty{
			Title: richText(a.Message),
		},
		PropKey: notionapi.RichTextProperty{
			RichText: richText(key),
		},
		PropKind: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(a.Kind)},
		},
		PropStatus: statusProperty(StatusOpen),
		PropAmount: notionapi.NumberProperty{
			Number: a.Amount.InexactFloat64(),
		},
		PropRaised: notionapi.DateProperty{
			Date: &notionapi.DateObject{
				Start: func() *notionapi.Date {
					d := notionapi.Date(raised)
					return &d
				}(),
			},
		},
	}

	if a.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: a.Category},
		}
	}
	if a.Merchant != "" {
		props[PropMerchant] = notionapi.RichTextProperty{
			RichText: richText(a.Merchant),
		}
	}

	return props
}

func statusProperty(status string) notionapi.SelectProperty {
	return notionapi.SelectProperty{Select: notionapi.Option{Name: status}}
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

// extractAlertKey returns the Alert Key property, or "" when absent.
func extractAlertKey(page notionapi.Page) string {
	if prop, ok := page.Properties[PropKey]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}

// extractStatus returns the Status select value, or "" when absent.
func extractStatus(page notionapi.Page) string {
	if prop, ok := page.Properties[PropStatus]; ok {
		if sel, ok := prop.(*notionapi.SelectProperty); ok {
			return sel.Select.Name
		}
	}
	return ""
}
