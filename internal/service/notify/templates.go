package notify

import (
	"fmt"
	"strconv"
	"time"

	"github.com/globalbeauty/concierge-api/internal/model"
)

// TemplateKind names an email template.
type TemplateKind string

const (
	TemplateBookingReceived    TemplateKind = "bookingReceived"
	TemplateContactingHospital TemplateKind = "contactingHospital"
	TemplateProposedOptions    TemplateKind = "proposedOptions"
	TemplateBookingConfirmed   TemplateKind = "bookingConfirmed"
	TemplateBookingCancelled   TemplateKind = "bookingCancelled"
)

type renderedEmail struct {
	Subject string
	Body    string
}

type templateData struct {
	ClinicName string
	Procedure  string
	Date       string
	TimeSlot   string
	AccessCode string
	Price      string // formatted with currency, empty when not set
	Note       string // cancellation note, empty when none
}

// render builds the localized subject and body for a template. Locales
// without a translation fall back to English.
func render(kind TemplateKind, locale model.Locale, data templateData) renderedEmail {
	set, ok := templates[kind]
	if !ok {
		return renderedEmail{}
	}
	fn, ok := set[locale]
	if !ok {
		fn = set[model.LocaleEN]
	}
	return fn(data)
}

func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

func formatPrice(price float64, currency model.Currency) string {
	if currency == "" {
		currency = model.CurrencyKRW
	}
	return strconv.FormatFloat(price, 'f', -1, 64) + " " + string(currency)
}

var templates = map[TemplateKind]map[model.Locale]func(templateData) renderedEmail{
	TemplateBookingReceived: {
		model.LocaleEN: func(d templateData) renderedEmail {
			return renderedEmail{
				Subject: "We received your booking request",
				Body: fmt.Sprintf(
					"<p>Thank you for your request for <strong>%s</strong> at %s.</p>"+
						"<p>Our concierge team will get back to you within 8 hours.</p>"+
						"<p>Your access code: <strong>%s</strong></p>",
					d.Procedure, d.ClinicName, d.AccessCode),
			}
		},
		model.LocaleJA: func(d templateData) renderedEmail {
			return renderedEmail{
				Subject: "ご予約リクエストを受け付けました",
				Body: fmt.Sprintf(
					"<p>%sでの<strong>%s</strong>のご予約リクエストを受け付けました。</p>"+
						"<p>コンシェルジュチームが8時間以内にご連絡いたします。</p>"+
						"<p>アクセスコード: <strong>%s</strong></p>",
					d.ClinicName, d.Procedure, d.AccessCode),
			}
		},
		model.LocaleZH: func(d templateData) renderedEmail {
			return renderedEmail{
				Subject: "我们已收到您的预约请求",
				Body: fmt.Sprintf(
					"<p>感谢您在%s预约<strong>%s</strong>。</p>"+
						"<p>我们的礼宾团队将在8小时内与您联系。</p>"+
						"<p>您的访问码: <strong>%s</strong></p>",
					d.ClinicName, d.Procedure, d.AccessCode),
			}
		},
	},
	TemplateContactingHospital: {
		model.LocaleEN: func(d templateData) renderedEmail {
			return renderedEmail{
				Subject: "We are contacting the clinic",
				Body: fmt.Sprintf(
					"<p>Our concierge team is checking availability for <strong>%s</strong> at %s.</p>"+
						"<p>We will send you the available options shortly.</p>",
					d.Procedure, d.ClinicName),
			}
		},
		model.LocaleJA: func(d templateData) renderedEmail {
			return renderedEmail{
				Subject: "クリニックに確認中です",
				Body: fmt.Sprintf(
					"<p>コンシェルジュチームが%sでの<strong>%s</strong>の空き状況を確認しています。</p>"+
						"<p>まもなく候補日程をお送りいたします。</p>",
					d.ClinicName, d.Procedure),
			}
		},
		model.LocaleZH: func(d templateData) renderedEmail {
			return renderedEmail{
				Subject: "我们正在与诊所联系",
				Body: fmt.Sprintf(
					"<p>我们的礼宾团队正在确认%s的<strong>%s</strong>可预约时间。</p>"+
						"<p>我们将很快向您发送可选方案。</p>",
					d.ClinicName, d.Procedure),
			}
		},
	},
	TemplateProposedOptions: {
		model.LocaleEN: func(d templateData) renderedEmail {
			return renderedEmail{
				Subject: "Appointment options for your booking request",
				Body: fmt.Sprintf(
					"<p>The clinic has proposed appointment options for your <strong>%s</strong> request at %s.</p>"+
						"<p>Sign in or use your access code <strong>%s</strong> to review them and confirm.</p>",
					d.Procedure, d.ClinicName, d.AccessCode),
			}
		},
		model.LocaleJA: func(d templateData) renderedEmail {
			return renderedEmail{
				Subject: "ご予約の候補日程のご案内",
				Body: fmt.Sprintf(
					"<p>%sでの<strong>%s</strong>について、クリニックから候補日程が届きました。</p>"+
						"<p>アクセスコード<strong>%s</strong>でご確認のうえ、ご希望の日程をお選びください。</p>",
					d.ClinicName, d.Procedure, d.AccessCode),
			}
		},
		model.LocaleZH: func(d templateData) renderedEmail {
			return renderedEmail{
				Subject: "您的预约备选方案",
				Body: fmt.Sprintf(
					"<p>诊所已为您在%s的<strong>%s</strong>预约提供了备选时间。</p>"+
						"<p>请使用访问码<strong>%s</strong>查看并确认。</p>",
					d.ClinicName, d.Procedure, d.AccessCode),
			}
		},
	},
	TemplateBookingConfirmed: {
		model.LocaleEN: func(d templateData) renderedEmail {
			body := fmt.Sprintf(
				"<p>Your <strong>%s</strong> appointment at %s is confirmed.</p>"+
					"<p>Date: %s %s</p>",
				d.Procedure, d.ClinicName, d.Date, d.TimeSlot)
			if d.Price != "" {
				body += fmt.Sprintf("<p>Price: %s</p>", d.Price)
			}
			return renderedEmail{Subject: "Your booking is confirmed", Body: body}
		},
		model.LocaleJA: func(d templateData) renderedEmail {
			body := fmt.Sprintf(
				"<p>%sでの<strong>%s</strong>のご予約が確定しました。</p>"+
					"<p>日時: %s %s</p>",
				d.ClinicName, d.Procedure, d.Date, d.TimeSlot)
			if d.Price != "" {
				body += fmt.Sprintf("<p>料金: %s</p>", d.Price)
			}
			return renderedEmail{Subject: "ご予約が確定しました", Body: body}
		},
		model.LocaleZH: func(d templateData) renderedEmail {
			body := fmt.Sprintf(
				"<p>您在%s的<strong>%s</strong>预约已确认。</p>"+
					"<p>日期: %s %s</p>",
				d.ClinicName, d.Procedure, d.Date, d.TimeSlot)
			if d.Price != "" {
				body += fmt.Sprintf("<p>价格: %s</p>", d.Price)
			}
			return renderedEmail{Subject: "您的预约已确认", Body: body}
		},
	},
	TemplateBookingCancelled: {
		model.LocaleEN: func(d templateData) renderedEmail {
			body := fmt.Sprintf(
				"<p>Your request for <strong>%s</strong> at %s has been cancelled.</p>",
				d.Procedure, d.ClinicName)
			if d.Note != "" {
				body += fmt.Sprintf("<p>Reason: %s</p>", d.Note)
			}
			body += "<p>You are welcome to submit a new request anytime.</p>"
			return renderedEmail{Subject: "Your booking request was cancelled", Body: body}
		},
		model.LocaleJA: func(d templateData) renderedEmail {
			body := fmt.Sprintf(
				"<p>%sでの<strong>%s</strong>のご予約リクエストはキャンセルされました。</p>",
				d.ClinicName, d.Procedure)
			if d.Note != "" {
				body += fmt.Sprintf("<p>理由: %s</p>", d.Note)
			}
			body += "<p>いつでも新しいリクエストをお送りください。</p>"
			return renderedEmail{Subject: "ご予約リクエストがキャンセルされました", Body: body}
		},
		model.LocaleZH: func(d templateData) renderedEmail {
			body := fmt.Sprintf(
				"<p>您在%s预约<strong>%s</strong>的请求已被取消。</p>",
				d.ClinicName, d.Procedure)
			if d.Note != "" {
				body += fmt.Sprintf("<p>原因: %s</p>", d.Note)
			}
			body += "<p>欢迎随时提交新的请求。</p>"
			return renderedEmail{Subject: "您的预约请求已取消", Body: body}
		},
	},
}
