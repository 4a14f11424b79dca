package service

import (
	"fmt"
	"log"
	"strings"
	"time"

	"hostbook/internal/db"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// UserGetter resolves users for notification addressing.
type UserGetter interface {
	GetByID(id int) (*db.User, error)
}

// NotifyConfig carries the delivery credentials, injected from main instead
// of read from the environment at call sites.
type NotifyConfig struct {
	SendGridAPIKey   string
	FromEmail        string
	FromName         string
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

// NotifyService sends booking emails and SMS. Every send is fire-and-forget:
// failures are logged and never surface to the reservation flow.
type NotifyService struct {
	users UserGetter
	cfg   NotifyConfig
}

func NewNotifyService(users UserGetter, cfg NotifyConfig) *NotifyService {
	if cfg.FromName == "" {
		cfg.FromName = "Booking Support"
	}
	return &NotifyService{users: users, cfg: cfg}
}

// BookingConfirmed emails the customer and the host, and texts the host when
// a phone number is on file.
func (s *NotifyService) BookingConfirmed(b *db.Booking) {
	booking := *b
	go func() {
		host, err := s.users.GetByID(booking.HostID)
		if err != nil || host == nil {
			log.Printf("Notify: could not load host %d for booking %d: %v", booking.HostID, booking.ID, err)
			return
		}

		loc, errLoc := time.LoadLocation("Asia/Kolkata")
		if errLoc != nil {
			loc = time.FixedZone("IST", 5*3600+1800)
		}
		start := booking.StartTime.In(loc).Format("02 Jan 2006 15:04 MST")
		end := booking.EndTime.In(loc).Format("02 Jan 2006 15:04 MST")

		customerBody := fmt.Sprintf(
			"Hi %s,\n\nYour booking with %s has been confirmed.\n\n"+
				"Time: %s - %s\n"+
				"Amount paid: %s %.2f\n\n"+
				"Thank you for using our platform.",
			booking.CustomerName, host.Name, start, end, booking.Currency, booking.Amount,
		)
		if err := s.sendEmail(booking.CustomerEmail, booking.CustomerName, "Booking Confirmed!", customerBody); err != nil {
			log.Printf("Notify: confirmation email to customer failed for booking %d: %v", booking.ID, err)
		}

		hostBody := fmt.Sprintf(
			"Hi %s,\n\nYou have a new booking from %s.\n\n"+
				"Time: %s - %s\n"+
				"Amount: %s %.2f\n\n"+
				"Check your dashboard for details.",
			host.Name, booking.CustomerName, start, end, booking.Currency, booking.Amount,
		)
		if err := s.sendEmail(host.Email, host.Name, "New Booking Received!", hostBody); err != nil {
			log.Printf("Notify: confirmation email to host failed for booking %d: %v", booking.ID, err)
		}

		if host.Phone != "" {
			sms := fmt.Sprintf("New booking from %s: %s. Details in your email.",
				booking.CustomerName, booking.StartTime.In(loc).Format("02/01 15:04"))
			if err := s.sendSMS(host.Phone, sms); err != nil {
				log.Printf("Notify: SMS to host failed for booking %d: %v", booking.ID, err)
			}
		}
	}()
}

// SendCustomEmail delivers a host-authored message to a customer. Unlike the
// confirmation path this is synchronous; the handler reports the outcome.
func (s *NotifyService) SendCustomEmail(to, subject, body, fromName string) error {
	htmlBody := "<p>" + strings.ReplaceAll(body, "\n", "<br>") + "</p>" +
		"<hr><p style=\"color:#888;font-size:12px\">This message was sent by " + fromName + " via the booking app.</p>"

	if s.cfg.SendGridAPIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is not configured")
	}
	from := sgmail.NewEmail(fromName, s.cfg.FromEmail)
	msg := sgmail.NewSingleEmail(from, subject, sgmail.NewEmail("", to), body, htmlBody)
	client := sendgrid.NewSendClient(s.cfg.SendGridAPIKey)
	response, err := client.Send(msg)
	if err != nil {
		return fmt.Errorf("sending email via SendGrid: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("SendGrid returned status %d: %s", response.StatusCode, response.Body)
	}
	log.Printf("Custom email sent to %s from %s", to, fromName)
	return nil
}

func (s *NotifyService) sendEmail(toEmail, toName, subject, plainText string) error {
	if s.cfg.SendGridAPIKey == "" {
		return fmt.Errorf("SENDGRID_API_KEY is not configured")
	}
	from := sgmail.NewEmail(s.cfg.FromName, s.cfg.FromEmail)
	to := sgmail.NewEmail(toName, toEmail)
	htmlContent := "<p>" + strings.ReplaceAll(plainText, "\n", "<br>") + "</p>"
	message := sgmail.NewSingleEmail(from, subject, to, plainText, htmlContent)

	client := sendgrid.NewSendClient(s.cfg.SendGridAPIKey)
	response, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("sending email via SendGrid: %w", err)
	}
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return fmt.Errorf("SendGrid returned status %d: %s", response.StatusCode, response.Body)
	}
	return nil
}

func (s *NotifyService) sendSMS(toNumber, body string) error {
	if s.cfg.TwilioAccountSID == "" || s.cfg.TwilioAuthToken == "" || s.cfg.TwilioFromNumber == "" {
		return fmt.Errorf("twilio credentials are not configured")
	}
	if !strings.HasPrefix(toNumber, "+") {
		log.Printf("Notify: destination number %q is not E.164, SMS may fail", toNumber)
	}

	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: s.cfg.TwilioAccountSID,
		Password: s.cfg.TwilioAuthToken,
	})
	params := &openapi.CreateMessageParams{}
	params.SetTo(toNumber)
	params.SetFrom(s.cfg.TwilioFromNumber)
	params.SetBody(body)

	if _, err := client.Api.CreateMessage(params); err != nil {
		return fmt.Errorf("sending SMS: %w", err)
	}
	return nil
}
