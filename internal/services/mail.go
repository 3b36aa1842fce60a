package services

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net/smtp"
	"os"
	"strings"
)

type MailService struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	SiteURL  string
	Enabled  bool
}

func NewMailService() *MailService {
	host := os.Getenv("SMTP_HOST")
	port := os.Getenv("SMTP_PORT")
	user := os.Getenv("SMTP_USER")
	pass := os.Getenv("SMTP_PASS")
	from := os.Getenv("SMTP_FROM")

	enabled := host != "" && port != "" && user != "" && pass != "" && from != ""
	if !enabled {
		log.Println("⚠️ MailService disabled: Missing SMTP environment variables.")
	}

	siteURL := os.Getenv("SITE_URL")
	if siteURL == "" {
		siteURL = "http://localhost:8080"
	}

	return &MailService{
		Host:     host,
		Port:     port,
		Username: user,
		Password: pass,
		From:     from,
		SiteURL:  siteURL,
		Enabled:  enabled,
	}
}

func (s *MailService) sendAsync(to []string, subject string, body string) {
	if !s.Enabled {
		return
	}

	go func() {
		auth := smtp.PlainAuth("", s.Username, s.Password, s.Host)
		addr := fmt.Sprintf("%s:%s", s.Host, s.Port)

		mime := "MIME-version: 1.0;\nContent-Type: text/html; charset=\"UTF-8\";\n\n"
		msg := []byte(fmt.Sprintf("To: %s\r\n"+
			"From: 兰亭通讯员 <%s>\r\n"+
			"Subject: %s\r\n"+
			"%s\r\n%s", strings.Join(to, ","), s.From, subject, mime, body))

		err := smtp.SendMail(addr, auth, s.From, to, msg)
		if err != nil {
			log.Printf("❌ Failed to send email to %v: %v", to, err)
		} else {
			log.Printf("✅ Email sent to %v: %s", to, subject)
		}
	}()
}

// 邮件模板内联在二进制里，免去对运行目录的依赖
var (
	replyMailTmpl = template.Must(template.New("reply").Parse(`
<p><b>{{.ActiveUser}}</b> 回复了你在《{{.ArticleTitle}}》下的评论：</p>
<blockquote>{{.ReplyContent}}</blockquote>
<p>你的原评论：</p>
<blockquote>{{.OriginalContent}}</blockquote>
<p><a href="{{.Link}}">点此查看</a></p>`))

	milestoneMailTmpl = template.Must(template.New("milestone").Parse(`
<p>你的{{if eq .Kind "comment"}}评论{{else}}文章{{end}}《{{.ArticleTitle}}》{{if eq .Threshold 1}}收到了第一个赞{{else}}点赞数达到了 {{.Threshold}}{{end}}。</p>
<p><a href="{{.Link}}">点此查看</a></p>`))
)

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute template %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func (s *MailService) SendReplyNotification(email, activeUser, articleTitle, replyContent, originalContent, link string) {
	body, err := render(replyMailTmpl, map[string]string{
		"ActiveUser":      activeUser,
		"ArticleTitle":    articleTitle,
		"ReplyContent":    replyContent,
		"OriginalContent": originalContent,
		"Link":            s.SiteURL + link,
	})
	if err != nil {
		log.Printf("Error rendering reply email: %v", err)
		return
	}
	s.sendAsync([]string{email}, "💬 [新回响] "+activeUser+" 回复了你在《"+articleTitle+"》下的评论", body)
}

func (s *MailService) SendMilestoneNotification(email, articleTitle string, kind TargetKind, threshold int, link string) {
	body, err := render(milestoneMailTmpl, map[string]interface{}{
		"ArticleTitle": articleTitle,
		"Kind":         string(kind),
		"Threshold":    threshold,
		"Link":         s.SiteURL + link,
	})
	if err != nil {
		log.Printf("Error rendering milestone email: %v", err)
		return
	}
	s.sendAsync([]string{email}, fmt.Sprintf("👍 [兰亭] 《%s》收获了新的点赞里程碑", articleTitle), body)
}
