// Package notify delivers confirmation notices after a post is generated.
//
// Notification is fire-and-forget: the pipeline calls Notify once per
// created post and logs — never propagates — any failure.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/fsakai/autopost/internal/model"
)

// Notifier is implemented by anything that can tell a user a post is
// awaiting confirmation.
type Notifier interface {
	Notify(ctx context.Context, user *model.User, post *model.GeneratedPost) error
}

// LogNotifier writes the notice to the log. Used when SMTP is not
// configured, and in tests.
type LogNotifier struct {
	Logger *slog.Logger
}

var _ Notifier = (*LogNotifier)(nil)

func (n *LogNotifier) Notify(_ context.Context, user *model.User, post *model.GeneratedPost) error {
	n.Logger.Info("post awaiting confirmation",
		slog.String("email", user.Email),
		slog.String("postId", post.ID),
		slog.Time("targetTime", post.TargetTime),
	)
	return nil
}

// EmailNotifier sends the confirmation notice over SMTP.
type EmailNotifier struct {
	Addr     string // host:port
	From     string
	Password string
	BaseURL  string // dashboard base URL for the approve/reject links
	Logger   *slog.Logger
}

var _ Notifier = (*EmailNotifier)(nil)

// Notify sends the plain-text confirmation mail. The ctx deadline is not
// honored by net/smtp itself; the server's write timeout bounds the call
// in practice.
func (n *EmailNotifier) Notify(_ context.Context, user *model.User, post *model.GeneratedPost) error {
	subject := "📸 Instagram投稿確認 - 新しい投稿が生成されました"
	body := n.body(post)

	msg := strings.Join([]string{
		"From: " + n.From,
		"To: " + user.Email,
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=UTF-8",
		"",
		body,
	}, "\r\n")

	host := n.Addr
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	auth := smtp.PlainAuth("", n.From, n.Password, host)

	if err := smtp.SendMail(n.Addr, auth, n.From, []string{user.Email}, []byte(msg)); err != nil {
		return fmt.Errorf("sending confirmation mail: %w", err)
	}

	n.Logger.Info("confirmation mail sent",
		slog.String("email", user.Email),
		slog.String("postId", post.ID),
	)
	return nil
}

func (n *EmailNotifier) body(post *model.GeneratedPost) string {
	return fmt.Sprintf(`Instagram投稿確認

新しい投稿が生成されました。内容を確認して承認または拒否してください。

投稿詳細:
- キーワード: %s
- 生成された情報: %s
- 投稿予定時刻: %s

キャプション:
%s

承認: %s/posts/confirm/%s?action=approve
拒否: %s/posts/confirm/%s?action=reject
ダッシュボード: %s/posts
`,
		strings.Join(post.Keywords, ", "),
		post.Info,
		post.TargetTime.Format("2006/01/02 15:04"),
		post.Caption,
		n.BaseURL, post.ID,
		n.BaseURL, post.ID,
		n.BaseURL,
	)
}
