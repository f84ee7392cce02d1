package service

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

type emailService struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func NewEmailService(host string, port int, username, password, from string) EmailService {
	return &emailService{
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

func (s *emailService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.host, s.port, s.username, s.password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

func (s *emailService) SendBankWelcome(ctx context.Context, email, bankName string) error {
	body := fmt.Sprintf("Hello %s,\n\nYour DonorLink account has been created. Submit your certification documents to start the verification process.\n\nBest regards,\nThe DonorLink Team", bankName)
	return s.send(email, "Welcome to DonorLink", body)
}

func (s *emailService) SendVerificationDecision(ctx context.Context, email, bankName string, approved bool, notes string) error {
	var body string
	if approved {
		body = fmt.Sprintf("Hello %s,\n\nYour certification has been reviewed and approved. You can now activate a subscription to start accepting donors.", bankName)
	} else {
		body = fmt.Sprintf("Hello %s,\n\nYour certification could not be approved at this time.", bankName)
	}
	if notes != "" {
		body += fmt.Sprintf("\n\nReviewer notes: %s", notes)
	}
	body += "\n\nBest regards,\nThe DonorLink Team"
	return s.send(email, "Verification Update - DonorLink", body)
}

func (s *emailService) SendSubscriptionActivated(ctx context.Context, email, bankName, tier string, expiresAt time.Time) error {
	body := fmt.Sprintf("Hello %s,\n\nYour %s subscription is active until %s. Your bank is now visible to prospective donors.\n\nBest regards,\nThe DonorLink Team",
		bankName, tier, expiresAt.Format("January 2, 2006"))
	return s.send(email, "Subscription Activated - DonorLink", body)
}

func (s *emailService) SendSubscriptionExpiryReminder(ctx context.Context, email, bankName string, expiresAt time.Time) error {
	body := fmt.Sprintf("Hello %s,\n\nYour DonorLink subscription expires on %s. Renew before then to stay visible to prospective donors.\n\nBest regards,\nThe DonorLink Team",
		bankName, expiresAt.Format("January 2, 2006"))
	return s.send(email, "Subscription Expiring Soon - DonorLink", body)
}

func (s *emailService) SendDonorWelcome(ctx context.Context, email, firstName, bankName string) error {
	body := fmt.Sprintf("Hello %s,\n\nYour donor account with %s has been created. Your next step is to request a counseling session.\n\nBest regards,\nThe DonorLink Team",
		firstName, bankName)
	return s.send(email, "Welcome to DonorLink", body)
}

func (s *emailService) SendEligibilityDecision(ctx context.Context, email, firstName string, approved bool, notes string) error {
	var body string
	if approved {
		body = fmt.Sprintf("Hello %s,\n\nCongratulations, your eligibility has been approved and your onboarding is complete.", firstName)
	} else {
		body = fmt.Sprintf("Hello %s,\n\nAfter review, we are unable to approve your eligibility at this time.", firstName)
	}
	if notes != "" {
		body += fmt.Sprintf("\n\nNotes: %s", notes)
	}
	body += "\n\nBest regards,\nThe DonorLink Team"
	return s.send(email, "Eligibility Decision - DonorLink", body)
}
