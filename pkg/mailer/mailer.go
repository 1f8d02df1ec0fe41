package mailer

import (
	"fmt"

	"go.uber.org/zap"
	gomail "gopkg.in/gomail.v2"

	"github.com/Aliwaris512/Apploye/config"
)

// Mailer SMTP 邮件发送器，目前仅承载密码重置 OTP
type Mailer struct {
	cfg    *config.MailConfig
	logger *zap.Logger
}

// NewMailer 创建邮件发送器
func NewMailer(cfg *config.MailConfig, logger *zap.Logger) *Mailer {
	return &Mailer{cfg: cfg, logger: logger}
}

// SendOTP 发送密码重置验证码
func (m *Mailer) SendOTP(to, otp string, ttlMinutes int) error {
	if m.cfg.SMTPHost == "" {
		// 未配置 SMTP 时降级为日志输出，便于本地开发
		m.logger.Warn("SMTP 未配置，OTP 仅记录日志", zap.String("to", to))
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Apploye 密码重置验证码")
	msg.SetBody("text/plain", fmt.Sprintf(
		"您的密码重置验证码为 %s，%d 分钟内有效。如非本人操作请忽略本邮件。",
		otp, ttlMinutes,
	))

	d := gomail.NewDialer(m.cfg.SMTPHost, m.cfg.SMTPPort, m.cfg.Username, m.cfg.Password)
	if err := d.DialAndSend(msg); err != nil {
		return fmt.Errorf("发送 OTP 邮件失败: %w", err)
	}
	return nil
}
