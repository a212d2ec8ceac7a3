package notify

import (
	"bytes"
	"html/template"
	"net/url"

	"campus-notice/internal/core/config"
	"campus-notice/internal/domain"
)

var tpl = template.Must(template.New("mail").Parse(`
{{define "verify"}}<p>Hi {{.Name}},</p>
<p>Please click the following link to verify your email: <a href="{{.Link}}">Click Here</a></p>{{end}}

{{define "pending"}}<p>You have received a new registration request from {{.Name}} ({{.Roll}}).</p>
<p>To review pending requests click: <a href="{{.Link}}">Click Here</a></p>{{end}}

{{define "approved"}}<p>You have been approved to use the app.</p>
<p>You can use <a href="{{.Link}}">this link</a> to login.</p>{{end}}

{{define "denied"}}<p>You have <strong>not</strong> been approved to use the app.</p>
<p>Feedback from the admin:</p><p>{{.Feedback}}</p>
<p>You can use <a href="{{.Link}}">this link</a> to register again.</p>
<p>For any queries contact: {{.AdminName}}, email: {{.AdminEmail}}, phone: {{.AdminPhone}}</p>{{end}}
`))

type tplData struct {
	Name       string
	Roll       string
	Link       string
	Feedback   string
	AdminName  string
	AdminEmail string
	AdminPhone string
}

// Composer renders the notification mails of the verification workflow.
type Composer struct {
	from       string
	studentURL string
	adminURL   string
}

func NewComposer(mailCfg config.Mail, fe config.Frontend) *Composer {
	return &Composer{from: mailCfg.From, studentURL: fe.StudentBaseURL, adminURL: fe.AdminBaseURL}
}

func (c *Composer) render(name string, d tplData) string {
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, name, d); err != nil {
		// 模板是编译期常量，这里出错只可能是数据问题；退化为纯链接
		return `<p><a href="` + template.HTMLEscapeString(d.Link) + `">` + template.HTMLEscapeString(d.Link) + `</a></p>`
	}
	return buf.String()
}

func verifyLink(base, token string) string {
	return base + "/verifyEmail?token=" + url.QueryEscape(token)
}

func (c *Composer) UserVerification(u *domain.User, token string) Mail {
	return Mail{
		From:    c.from,
		To:      u.Email,
		Subject: "Student Email Confirmation",
		HTML:    c.render("verify", tplData{Name: u.Username, Link: verifyLink(c.studentURL, token)}),
	}
}

func (c *Composer) AdminVerification(a *domain.Admin, token string) Mail {
	return Mail{
		From:    c.from,
		To:      a.Email,
		Subject: "Admin Email Confirmation",
		HTML:    c.render("verify", tplData{Name: a.AdminName, Link: verifyLink(c.adminURL, token)}),
	}
}

// PendingApproval fans one mail out per admin notification address.
func (c *Composer) PendingApproval(u *domain.User, adminEmails []string) []Mail {
	body := c.render("pending", tplData{Name: u.Username, Roll: u.RollNumber, Link: c.adminURL + "/unverifiedStudents"})
	out := make([]Mail, 0, len(adminEmails))
	for _, to := range adminEmails {
		out = append(out, Mail{
			From:    c.from,
			ReplyTo: u.Email,
			To:      to,
			Subject: "Request to access notices app",
			HTML:    body,
		})
	}
	return out
}

func (c *Composer) AccessApproved(u *domain.User, by *domain.Admin) Mail {
	return Mail{
		From:    c.from,
		ReplyTo: by.Email,
		To:      u.Email,
		Subject: "App access approved",
		HTML:    c.render("approved", tplData{Name: u.Username, Link: c.studentURL + "/login"}),
	}
}

func (c *Composer) AccessDenied(u *domain.User, by *domain.Admin, feedback string) Mail {
	return Mail{
		From:    c.from,
		ReplyTo: by.Email,
		To:      u.Email,
		Subject: "App access denied",
		HTML: c.render("denied", tplData{
			Name:       u.Username,
			Link:       c.studentURL + "/register",
			Feedback:   feedback,
			AdminName:  by.AdminName,
			AdminEmail: by.Email,
			AdminPhone: by.PhoneNumber,
		}),
	}
}
